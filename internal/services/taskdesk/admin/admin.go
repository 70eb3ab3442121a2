// Package admin implements account administration and the startup admin
// bootstrap.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/louisbranch/taskdesk/internal/platform/pagination"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

const (
	defaultListUsersPageSize = 50
	maxListUsersPageSize     = 200
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = storage.ErrNotFound

// Creator creates accounts with an explicit role.
type Creator interface {
	Create(ctx context.Context, input user.CreateUserInput) (user.User, error)
}

// FileRemover deletes all stored files for an owner.
type FileRemover interface {
	RemoveOwner(ownerID string) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	RevokeUser(userID string) int
}

// BootstrapConfig names the admin account created when none exists.
type BootstrapConfig struct {
	Username string `env:"TASKDESK_ADMIN_USERNAME" envDefault:"admin"`
	Email    string `env:"TASKDESK_ADMIN_EMAIL"    envDefault:"admin@gmail.com"`
	Password string `env:"TASKDESK_ADMIN_PASSWORD" envDefault:"admin"`
}

// Service administers user accounts.
type Service struct {
	users    storage.UserStore
	creator  Creator
	files    FileRemover
	sessions SessionRevoker
	logf     func(string, ...any)
}

// NewService builds an admin service. sessions may be nil.
func NewService(users storage.UserStore, creator Creator, files FileRemover, sessions SessionRevoker) *Service {
	return &Service{
		users:    users,
		creator:  creator,
		files:    files,
		sessions: sessions,
		logf:     log.Printf,
	}
}

// ListUsers returns a page of regular users ordered by ID.
func (s *Service) ListUsers(ctx context.Context, pageSize int, pageToken string) (storage.UserPage, error) {
	if s == nil || s.users == nil {
		return storage.UserPage{}, fmt.Errorf("user store is not configured")
	}
	size := pagination.ClampPageSize(pageSize, pagination.PageSizeConfig{
		Default: defaultListUsersPageSize,
		Max:     maxListUsersPageSize,
	})
	page, err := s.users.ListUsersByRole(ctx, user.RoleUser, size, pageToken)
	if err != nil {
		return storage.UserPage{}, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}

// DeleteUser removes the user with its tasks and documents, then its files.
// File removal failures are logged; the account is already gone by then.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	if s == nil || s.users == nil {
		return fmt.Errorf("user store is not configured")
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if s.sessions != nil {
		s.sessions.RevokeUser(userID)
	}
	if s.files != nil {
		if err := s.files.RemoveOwner(userID); err != nil {
			s.logf("remove upload directory for user %s: %v", userID, err)
		}
	}
	return nil
}

// EnsureAdmin creates the configured admin unless an admin already exists.
// It reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, cfg BootstrapConfig) (bool, error) {
	if s == nil || s.users == nil || s.creator == nil {
		return false, fmt.Errorf("admin bootstrap is not configured")
	}
	exists, err := s.users.HasUserWithRole(ctx, user.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.creator.Create(ctx, user.CreateUserInput{
		Username: cfg.Username,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     user.RoleAdmin,
	}); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
