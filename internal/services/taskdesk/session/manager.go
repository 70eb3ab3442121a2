package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/platform/id"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

// DefaultIdleTimeout is how long a session survives without activity.
const DefaultIdleTimeout = 10 * time.Minute

var (
	// ErrAuthFailed is returned for any login failure, without saying which
	// part was wrong.
	ErrAuthFailed = apperrors.New(apperrors.CodeAuthFailed, "invalid email or password")
	// ErrUnauthenticated indicates a missing, unknown, or expired session.
	ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
)

// PasswordVerifier checks a password against a stored user.
type PasswordVerifier interface {
	Verify(u user.User, password string) bool
}

// Config tunes session lifetime and handle signing.
type Config struct {
	// IdleTimeout defaults to DefaultIdleTimeout.
	IdleTimeout time.Duration
	// SigningKey signs handles. A random key is generated when empty, which
	// invalidates all handles on restart.
	SigningKey []byte
}

type entry struct {
	userID    string
	expiresAt time.Time
}

// Manager tracks active sessions.
type Manager struct {
	users       storage.UserStore
	verifier    PasswordVerifier
	signer      signer
	idleTimeout time.Duration
	dummyHash   string
	clock       func() time.Time
	idGenerator func() (string, error)

	mu       sync.Mutex
	sessions map[string]entry
}

// NewManager builds a session manager over users.
func NewManager(users storage.UserStore, verifier PasswordVerifier, cfg Config) (*Manager, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("password verifier is required")
	}
	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	sign, err := newSigner(key)
	if err != nil {
		return nil, err
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	// Compared against when no account matches, so lookups for unknown
	// emails cost one bcrypt comparison like a wrong password does.
	dummyHash, err := user.HashPassword("taskdesk-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Manager{
		users:       users,
		verifier:    verifier,
		signer:      sign,
		idleTimeout: idle,
		dummyHash:   dummyHash,
		clock:       time.Now,
		idGenerator: id.NewID,
		sessions:    make(map[string]entry),
	}, nil
}

// Login verifies credentials and opens a session, returning its handle.
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := m.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("get user by email: %w", err)
		}
		user.CheckPassword(m.dummyHash, password)
		return "", ErrAuthFailed
	}
	if !m.verifier.Verify(u, password) {
		return "", ErrAuthFailed
	}

	sessionID, err := m.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	now := m.clock().UTC()
	handle, err := m.signer.sign(handleClaims{SessionID: sessionID, UserID: u.ID}, now)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.sessions[sessionID] = entry{userID: u.ID, expiresAt: now.Add(m.idleTimeout)}
	m.mu.Unlock()
	return handle, nil
}

// Logout ends the session named by handle. Unknown or invalid handles are
// ignored.
func (m *Manager) Logout(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	claims, err := m.signer.verify(handle)
	if err != nil {
		return nil
	}
	m.mu.Lock()
	delete(m.sessions, claims.SessionID)
	m.mu.Unlock()
	return nil
}

// CurrentIdentity resolves handle to its user and slides the idle expiry.
func (m *Manager) CurrentIdentity(ctx context.Context, handle string) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	claims, err := m.signer.verify(handle)
	if err != nil {
		return user.User{}, ErrUnauthenticated
	}

	now := m.clock().UTC()
	m.mu.Lock()
	current, ok := m.sessions[claims.SessionID]
	switch {
	case !ok:
		m.mu.Unlock()
		return user.User{}, ErrUnauthenticated
	case !now.Before(current.expiresAt):
		delete(m.sessions, claims.SessionID)
		m.mu.Unlock()
		return user.User{}, ErrUnauthenticated
	case current.userID != claims.UserID:
		m.mu.Unlock()
		return user.User{}, ErrUnauthenticated
	}
	current.expiresAt = now.Add(m.idleTimeout)
	m.sessions[claims.SessionID] = current
	m.mu.Unlock()

	u, err := m.users.GetUser(ctx, current.userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			m.drop(claims.SessionID)
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, fmt.Errorf("get session user: %w", err)
	}
	return u, nil
}

// RevokeUser ends every session bound to userID.
func (m *Manager) RevokeUser(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sessionID, current := range m.sessions {
		if current.userID == userID {
			delete(m.sessions, sessionID)
			removed++
		}
	}
	return removed
}

// Sweep removes sessions idle past their expiry at now and reports how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for sessionID, current := range m.sessions {
		if !now.Before(current.expiresAt) {
			delete(m.sessions, sessionID)
			removed++
		}
	}
	return removed
}

// Active reports the number of tracked sessions.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) drop(sessionID string) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
}
