package iopps

// MultiTokenValidator tries validators in order until one succeeds. It
// treats a malformed or invalid-signature token as "try next" (a first-party
// token is garbage to the provider validator and vice versa) and returns the
// last such error if all validators fail. Expired tokens fail immediately.
type MultiTokenValidator struct {
	validators []TokenValidator
}

var _ TokenValidator = (*MultiTokenValidator)(nil)

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (*SessionClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := v.Validate(tokenString)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrInvalidToken
}
