package iopps

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ProviderValidator validates credentials minted by the identity provider
// against its published JWK Set. Keys are refreshed in the background so a
// provider key rotation does not require a restart.
type ProviderValidator struct {
	jwks     *keyfunc.JWKS
	issuer   string
	audience []string
	logger   Logger
	now      func() time.Time
}

var _ TokenValidator = (*ProviderValidator)(nil)

// NewProviderValidator fetches the provider JWKS and returns a validator
// bound to it. The returned validator owns a background refresh goroutine;
// call Close during shutdown.
func NewProviderValidator(jwksURL, issuer string, audience []string, logger Logger) (*ProviderValidator, error) {
	if logger == nil {
		logger = defLogger{}
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("provider JWKS background refresh failed", "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to fetch provider JWK Set")
	}

	return &ProviderValidator{
		jwks:     jwks,
		issuer:   issuer,
		audience: audience,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// WithClock injects a custom clock (useful for tests).
func (v *ProviderValidator) WithClock(clock func() time.Time) *ProviderValidator {
	if clock != nil {
		v.now = clock
	}
	return v
}

// Validate satisfies the TokenValidator interface.
func (v *ProviderValidator) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(v.now))
	if v.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.issuer))
	}
	if len(v.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(v.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, v.jwks.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrInvalidToken.Category, ErrInvalidToken.Message).
			WithTextCode(ErrInvalidToken.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	v.logger.Error("ProviderValidator could not decode or validate claims")
	return nil, ErrInvalidToken
}

// Close stops the background JWKS refresh.
func (v *ProviderValidator) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}
