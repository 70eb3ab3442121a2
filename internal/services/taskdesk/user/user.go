package user

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/id"
	"golang.org/x/crypto/bcrypt"
)

// Role grants access to operations beyond the caller's own resources.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DefaultProfileImage is the placeholder reference for users without an upload.
const DefaultProfileImage = "default.jpg"

var (
	// ErrMissingFields indicates an empty username, email, or password.
	ErrMissingFields = apperrors.New(apperrors.CodeValidation, "username, email, and password are required")
	// ErrPasswordTooLong indicates a password beyond the hash input limit.
	ErrPasswordTooLong = apperrors.WithMetadata(apperrors.CodeValidation, "password is too long", map[string]string{"Max": "72"})
)

// User represents an account record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CreateUserInput describes the data needed to create a user.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// CreateUser builds a new user with a hashed password from validated input.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	hash, err := HashPassword(normalized.Password)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:           userID,
		Username:     normalized.Username,
		Email:        normalized.Email,
		PasswordHash: hash,
		Role:         normalized.Role,
		ProfileImage: DefaultProfileImage,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizeCreateUserInput trims identifiers, lowercases the email, and
// defaults the role. The password is kept verbatim.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = NormalizeEmail(input.Email)
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return CreateUserInput{}, ErrMissingFields
	}
	switch input.Role {
	case "":
		input.Role = RoleUser
	case RoleUser, RoleAdmin:
	default:
		return CreateUserInput{}, apperrors.WithMetadata(apperrors.CodeValidation, "unknown role", map[string]string{"Role": string(input.Role)})
	}
	return input, nil
}

// NormalizeEmail canonicalizes an email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// HashPassword returns a salted one-way hash of password.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash string, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
