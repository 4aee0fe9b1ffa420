package iopps

import "strings"

const bearerScheme = "Bearer"

// Verifier is the authoritative credential check for API handlers: it
// extracts the bearer token from an Authorization header value and runs it
// through the configured TokenValidator. Verification failures are never
// transient within a single request, so there are no retries.
type Verifier struct {
	validator TokenValidator
	logger    Logger
}

// NewVerifier returns a Verifier backed by the given validator.
func NewVerifier(validator TokenValidator) *Verifier {
	return &Verifier{
		validator: validator,
		logger:    defLogger{},
	}
}

// WithLogger overrides the logger.
func (v *Verifier) WithLogger(logger Logger) *Verifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Verify validates the Authorization header value and returns the decoded
// claims. Missing or malformed headers yield ErrUnauthorized; a missing
// validator yields ErrServerMisconfigured; verification failures yield
// ErrTokenExpired or ErrInvalidToken.
func (v *Verifier) Verify(authorization string) (*SessionClaims, error) {
	raw, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}

	if v.validator == nil {
		v.logger.Error("Verifier has no token validator configured")
		return nil, ErrServerMisconfigured
	}

	claims, err := v.validator.Validate(raw)
	if err != nil {
		v.logger.Info("credential verification failed", "error", err)
		return nil, err
	}

	return claims, nil
}

// VerifyAdmin validates the credential via Verify and additionally requires
// administrative privilege in the claims. This is a pure claim check with no
// database lookup; it trusts that claims were set correctly at mint time.
func (v *Verifier) VerifyAdmin(authorization string) (*SessionClaims, error) {
	claims, err := v.Verify(authorization)
	if err != nil {
		return nil, err
	}

	if !claims.IsAdmin() {
		v.logger.Info("admin gate rejected caller", "subject", claims.UserID(), "role", claims.Role())
		return nil, ErrForbidden
	}

	return claims, nil
}

// BearerToken extracts the raw token from an Authorization header value
// using the Bearer scheme.
func BearerToken(header string) (string, error) {
	l := len(bearerScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], bearerScheme) && header[l] == ' ' {
		token := strings.TrimSpace(header[l+1:])
		if token != "" {
			return token, nil
		}
	}
	return "", ErrUnauthorized
}
