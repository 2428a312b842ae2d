// Package auth holds the client's authentication session and notifies
// observers of login/logout transitions.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session errors.
var (
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrNoSubject    = errors.New("token has no subject claim")
)

// Session is the authenticated identity the client currently holds.
type Session struct {
	// UserID identifies the authenticated user; private channel names are
	// derived from it.
	UserID string

	// Token is the bearer credential for the REST API and the channel
	// authorization handshake.
	Token string

	// ExpiresAt is the token expiry, zero when the token carries none.
	ExpiresAt time.Time
}

// IsExpired reports whether the session's token has expired.
func (s Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// SessionFromToken derives a session from a bearer token by reading its JWT
// claims. The signature is not verified: the client is not the token's
// audience gatekeeper, it only needs the subject and expiry the server
// encoded.
func SessionFromToken(token string) (Session, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Session{}, ErrNoSubject
	}

	session := Session{
		UserID: sub,
		Token:  token,
	}

	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}

	return session, nil
}
