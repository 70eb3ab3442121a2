// Package credentials owns account registration and password verification.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/id"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// ErrDuplicateEmail indicates the email is already registered.
var ErrDuplicateEmail = storage.ErrDuplicateEmail

// Service registers users and checks their passwords.
type Service struct {
	store       storage.UserStore
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService builds a credential service over store.
func NewService(store storage.UserStore) *Service {
	return &Service{
		store:       store,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// Register creates a regular user and returns its ID.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	created, err := s.Create(ctx, user.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     user.RoleUser,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// Create validates input, hashes the password, and persists the user.
//
// Uniqueness is decided by the store's email constraint, so concurrent
// registrations for one email produce exactly one account.
func (s *Service) Create(ctx context.Context, input user.CreateUserInput) (user.User, error) {
	if s == nil || s.store == nil {
		return user.User{}, fmt.Errorf("user store is not configured")
	}
	created, err := user.CreateUser(input, s.clock, s.idGenerator)
	if err != nil {
		return user.User{}, err
	}
	if err := s.store.PutUser(ctx, created); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return user.User{}, ErrDuplicateEmail
		}
		return user.User{}, fmt.Errorf("put user: %w", err)
	}
	return created, nil
}

// Verify reports whether password matches the user's stored hash.
func (s *Service) Verify(u user.User, password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return user.CheckPassword(u.PasswordHash, password)
}

// SetPassword rehashes and stores a new password for u.
func (s *Service) SetPassword(ctx context.Context, u user.User, password string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("user store is not configured")
	}
	if password == "" {
		return apperrors.New(apperrors.CodeValidation, "password is required")
	}
	hash, err := user.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.SetPasswordHash(ctx, u.ID, hash, s.clock().UTC()); err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}
