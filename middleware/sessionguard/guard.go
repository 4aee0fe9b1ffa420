// Package sessionguard implements the edge session guard: a cheap,
// advisory check that runs on every page request and decides whether to
// redirect based on an unsigned decode of the session cookie. It reads
// structure and expiry only; authoritative verification happens in the API
// layer for anything consequential.
package sessionguard

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	iopps "github.com/wingchucks/iopps-sub007"
)

// Decision is the outcome of the guard's transition table for one request.
type Decision int

const (
	// Allow passes the request through unmodified.
	Allow Decision = iota
	// RedirectLogin sends the caller to the login page, preserving the
	// requested path in the redirect query parameter.
	RedirectLogin
	// RedirectHome sends an authenticated caller away from auth pages.
	RedirectHome
	// RedirectVerifyEmail forces a password-provider session with an
	// unverified email onto the verification page.
	RedirectVerifyEmail
)

type Config struct {
	// CookieName is the session cookie to decode.
	CookieName string
	// ProtectedPrefixes require a valid session.
	ProtectedPrefixes []string
	// AuthPages redirect away when a valid session is present.
	AuthPages []string
	// UnverifiedAllowed are protected paths reachable with an unverified
	// email.
	UnverifiedAllowed []string
	// SkipPrefixes bypass the guard entirely: static assets and the
	// auth-session API prefix, which would otherwise redirect-loop during
	// cookie sync.
	SkipPrefixes []string

	LoginPath       string
	HomePath        string
	VerifyEmailPath string

	Now    func() time.Time
	Logger iopps.Logger
}

// ConfigDefault mirrors the production routing tables. ProtectedPrefixes and
// AuthPages must stay disjoint; UnverifiedAllowed names protected paths that
// remain reachable with an unverified email and so nests under
// ProtectedPrefixes. The guard evaluates the tables in that order.
var ConfigDefault = Config{
	CookieName:        "session",
	ProtectedPrefixes: []string{"/feed", "/profile", "/dashboard", "/admin", "/post"},
	AuthPages:         []string{"/login", "/signup", "/forgot-password"},
	UnverifiedAllowed: []string{"/profile/settings"},
	SkipPrefixes:      []string{"/_static", "/assets", "/favicon.ico", "/api/auth/session"},
	LoginPath:         "/login",
	HomePath:          "/feed",
	VerifyEmailPath:   "/verify-email",
}

func configDefault(config ...Config) Config {
	if len(config) == 0 {
		return withFallbacks(ConfigDefault)
	}
	return withFallbacks(config[0])
}

func withFallbacks(cfg Config) Config {
	if cfg.CookieName == "" {
		cfg.CookieName = ConfigDefault.CookieName
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = ConfigDefault.LoginPath
	}
	if cfg.HomePath == "" {
		cfg.HomePath = ConfigDefault.HomePath
	}
	if cfg.VerifyEmailPath == "" {
		cfg.VerifyEmailPath = ConfigDefault.VerifyEmailPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = iopps.DefaultLogger()
	}
	return cfg
}

// Skip reports whether the guard ignores the path entirely.
func (cfg Config) Skip(path string) bool {
	return hasPrefix(path, cfg.SkipPrefixes)
}

// Decide runs the transition table for one request. The protected-prefix
// check is evaluated before the auth-page check before the verification
// check; session may be nil for anonymous callers.
func (cfg Config) Decide(path string, session *iopps.SessionInfo, now time.Time) Decision {
	hasValidSession := session.ValidAt(now)

	if hasPrefix(path, cfg.ProtectedPrefixes) && !hasValidSession {
		return RedirectLogin
	}

	if hasPrefix(path, cfg.AuthPages) && hasValidSession {
		return RedirectHome
	}

	if hasPrefix(path, cfg.ProtectedPrefixes) && hasValidSession &&
		!hasPrefix(path, cfg.UnverifiedAllowed) &&
		!session.EmailVerified && session.SignInProvider == "password" {
		return RedirectVerifyEmail
	}

	return Allow
}

// New returns the guard as Fiber middleware.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if cfg.Skip(path) {
			return c.Next()
		}

		var session *iopps.SessionInfo
		if raw := c.Cookies(cfg.CookieName); raw != "" {
			info, err := iopps.DecodeSessionUnverified(raw)
			if err != nil {
				// Treat an undecodable cookie as no session.
				cfg.Logger.Debug("session cookie decode failed", "path", path, "error", err)
			} else {
				session = info
			}
		}

		switch cfg.Decide(path, session, cfg.Now()) {
		case RedirectLogin:
			return c.Redirect(cfg.LoginPath+"?redirect="+url.QueryEscape(path), fiber.StatusFound)
		case RedirectHome:
			return c.Redirect(cfg.HomePath, fiber.StatusFound)
		case RedirectVerifyEmail:
			return c.Redirect(cfg.VerifyEmailPath, fiber.StatusFound)
		default:
			return c.Next()
		}
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
