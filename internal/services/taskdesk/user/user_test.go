package user

import (
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
)

func TestCreateUserNormalizesInput(t *testing.T) {
	fixed := time.Date(2026, 1, 23, 10, 0, 0, 0, time.FixedZone("X", 3600))
	created, err := CreateUser(CreateUserInput{
		Username: "  alice ",
		Email:    " Alice@Example.COM ",
		Password: "pw1",
	}, func() time.Time { return fixed }, func() (string, error) { return "user-123", nil })
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID != "user-123" {
		t.Fatalf("expected id user-123, got %q", created.ID)
	}
	if created.Username != "alice" {
		t.Fatalf("expected trimmed username, got %q", created.Username)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", created.Email)
	}
	if created.Role != RoleUser {
		t.Fatalf("expected default role user, got %q", created.Role)
	}
	if created.ProfileImage != DefaultProfileImage {
		t.Fatalf("expected default profile image, got %q", created.ProfileImage)
	}
	if !created.CreatedAt.Equal(fixed.UTC()) || created.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC created_at, got %v", created.CreatedAt)
	}
	if created.PasswordHash == "" || created.PasswordHash == "pw1" {
		t.Fatal("expected password to be hashed")
	}
	if !CheckPassword(created.PasswordHash, "pw1") {
		t.Fatal("expected hash to verify original password")
	}
}

func TestCreateUserRequiresFields(t *testing.T) {
	tests := []CreateUserInput{
		{Email: "a@x.com", Password: "pw"},
		{Username: "a", Password: "pw"},
		{Username: "a", Email: "a@x.com"},
		{Username: "  ", Email: "  ", Password: "pw"},
	}
	for _, input := range tests {
		_, err := CreateUser(input, nil, func() (string, error) { return "id", nil })
		if !errors.Is(err, ErrMissingFields) {
			t.Fatalf("input %+v: expected missing fields, got %v", input, err)
		}
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	_, err := CreateUser(CreateUserInput{Username: "a", Email: "a@x.com", Password: "pw", Role: "root"}, nil, nil)
	if apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateUserIDGeneratorError(t *testing.T) {
	_, err := CreateUser(CreateUserInput{Username: "a", Email: "a@x.com", Password: "pw"}, nil, func() (string, error) {
		return "", errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected id generator error")
	}
}

func TestCreateUserDefaultGenerator(t *testing.T) {
	created, err := CreateUser(CreateUserInput{Username: "a", Email: "a@x.com", Password: "pw", Role: RoleAdmin}, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(created.ID) != 26 {
		t.Fatalf("expected generated id, got %q", created.ID)
	}
	if !created.IsAdmin() {
		t.Fatal("expected admin role")
	}
}

func TestCheckPasswordMismatch(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if CheckPassword(hash, "Secret") {
		t.Fatal("expected mismatch for different password")
	}
	if CheckPassword("not-a-hash", "secret") {
		t.Fatal("expected mismatch for malformed hash")
	}
}

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	second, err := HashPassword("same")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salted hashes")
	}
}

func TestHashPasswordTooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected too long error, got %v", err)
	}
}
