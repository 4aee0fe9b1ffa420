package iopps

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized  = "unauthorized"
	TextCodeInvalidToken  = "invalid_token"
	TextCodeTokenExpired  = "token_expired"
	TextCodeForbidden     = "forbidden"
	TextCodeNotFound      = "not_found"
	TextCodeValidation    = "validation_failed"
	TextCodeMisconfigured = "server_misconfigured"
)

// ErrUnauthorized is returned when a request carries no usable credential.
var ErrUnauthorized = errors.New("missing or malformed authorization", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken is returned when a credential is present but fails
// verification (bad signature, malformed, revoked).
var ErrInvalidToken = errors.New("invalid authentication token", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a credential verified structurally but is
// past its expiry.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when a valid credential lacks the required
// privilege.
var ErrForbidden = errors.New("insufficient privilege", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("entity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrServerMisconfigured is returned when a dependency failed to initialize.
// This is a 5xx, not the caller's fault.
var ErrServerMisconfigured = errors.New("server misconfigured", errors.CategoryInternal).
	WithTextCode(TextCodeMisconfigured).
	WithCode(errors.CodeInternal)

// ValidationError wraps a request-payload validation failure as a 400.
func ValidationError(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryValidation, "invalid request payload").
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}

// StatusFromError maps an error to the HTTP status a boundary handler should
// respond with. Unknown errors map to 500.
func StatusFromError(err error) int {
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code
	}
	return errors.CodeInternal
}

// IsTokenExpiredError checks for expired-credential failures.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError checks for structurally invalid credentials.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeInvalidToken {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed")
}
