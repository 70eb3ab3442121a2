package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errInvalidHandle = errors.New("session handle is invalid")

// handleClaims binds a session id to the user it was issued for.
type handleClaims struct {
	SessionID string
	UserID    string
}

// signer produces and verifies HS256 session handles.
type signer struct {
	key []byte
}

func newSigner(key []byte) (signer, error) {
	if len(key) < 32 {
		return signer{}, fmt.Errorf("session signing key must be at least 32 bytes")
	}
	copied := make([]byte, len(key))
	copy(copied, key)
	return signer{key: copied}, nil
}

func (s signer) sign(claims handleClaims, issuedAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:       claims.SessionID,
		Subject:  claims.UserID,
		IssuedAt: jwt.NewNumericDate(issuedAt),
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign session handle: %w", err)
	}
	return signed, nil
}

// verify checks the signature and returns the bound claims. Expiry is not
// part of the handle.
func (s signer) verify(handle string) (handleClaims, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return handleClaims{}, errInvalidHandle
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(handle, &parsed, func(token *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return handleClaims{}, fmt.Errorf("%w: %v", errInvalidHandle, err)
	}
	if parsed.ID == "" || parsed.Subject == "" {
		return handleClaims{}, errInvalidHandle
	}
	return handleClaims{SessionID: parsed.ID, UserID: parsed.Subject}, nil
}
