package iopps

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the claim set carried by a session credential. Provider
// attributes (email_verified, sign_in_provider, admin) are optional and are
// validated once at the verification boundary; call sites read the typed
// fields instead of re-checking claim shapes ad hoc.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID            string `json:"uid,omitempty"`
	UserRole       string `json:"role,omitempty"`
	Email          string `json:"email,omitempty"`
	EmailVerified  bool   `json:"email_verified,omitempty"`
	SignInProvider string `json:"sign_in_provider,omitempty"`
	Admin          bool   `json:"admin,omitempty"`
}

// UserID returns the uid claim, falling back to the subject.
func (c *SessionClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the global role claim.
func (c *SessionClaims) Role() string {
	return c.UserRole
}

// IsAdmin reports whether the claims grant administrative privilege: either
// the admin boolean or role == "admin".
func (c *SessionClaims) IsAdmin() bool {
	return c.Admin || c.UserRole == RoleAdmin
}

// Expires returns the expiration time, zero when the claim is absent.
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issued-at time, zero when the claim is absent.
func (c *SessionClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
