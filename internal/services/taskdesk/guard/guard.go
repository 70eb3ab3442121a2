// Package guard authorizes callers before protected operations run.
package guard

import (
	"context"

	apperrors "github.com/louisbranch/taskdesk/internal/platform/errors"
	"github.com/louisbranch/taskdesk/internal/services/taskdesk/user"
)

var (
	// ErrUnauthenticated indicates the caller has no valid session.
	ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "authentication required")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = apperrors.New(apperrors.CodeForbidden, "insufficient role")
)

// IdentityResolver maps a session handle to its user.
type IdentityResolver interface {
	CurrentIdentity(ctx context.Context, handle string) (user.User, error)
}

// Guard checks authentication and roles.
type Guard struct {
	sessions IdentityResolver
}

// New builds a guard over sessions.
func New(sessions IdentityResolver) *Guard {
	return &Guard{sessions: sessions}
}

// RequireAuth returns the caller's user or ErrUnauthenticated. Errors that
// are not authentication failures, such as a canceled context, pass through.
func (g *Guard) RequireAuth(ctx context.Context, handle string) (user.User, error) {
	if g == nil || g.sessions == nil {
		return user.User{}, ErrUnauthenticated
	}
	u, err := g.sessions.CurrentIdentity(ctx, handle)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeUnauthenticated {
			return user.User{}, ErrUnauthenticated
		}
		return user.User{}, err
	}
	return u, nil
}

// RequireRole authenticates first, so anonymous callers always see
// ErrUnauthenticated rather than ErrForbidden.
func (g *Guard) RequireRole(ctx context.Context, handle string, role user.Role) (user.User, error) {
	u, err := g.RequireAuth(ctx, handle)
	if err != nil {
		return user.User{}, err
	}
	if u.Role != role {
		return user.User{}, ErrForbidden
	}
	return u, nil
}
