package iopps

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// SessionInfo is the advisory view of a session cookie produced by the edge
// fast path. It is decoded without a signature check and must never be
// trusted for consequential actions; the Verifier is the authoritative
// layer.
type SessionInfo struct {
	UserID         string
	Email          string
	Role           string
	Admin          bool
	EmailVerified  bool
	SignInProvider string
	ExpiresAt      time.Time
}

// ValidAt reports whether the session carries an expiry that is still in the
// future. A missing expiry claim counts as invalid.
func (s *SessionInfo) ValidAt(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return s.ExpiresAt.After(now)
}

// DecodeSessionUnverified parses the token structure and claims without
// verifying the signature. It returns an error only for structurally
// unparseable tokens; expiry is left for the caller to judge via ValidAt.
func DecodeSessionUnverified(raw string) (*SessionInfo, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}

	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, &SessionClaims{})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "unable to decode session").
			WithTextCode(TextCodeInvalidToken).
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &SessionInfo{
		UserID:         claims.UserID(),
		Email:          claims.Email,
		Role:           claims.UserRole,
		Admin:          claims.Admin,
		EmailVerified:  claims.EmailVerified,
		SignInProvider: claims.SignInProvider,
		ExpiresAt:      claims.Expires(),
	}, nil
}
