// Package notify owns notification preferences, standing job alerts, and
// the unsubscribe token codec that lets recipients opt out of a category
// without authenticating.
package notify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// Category identifies a notification category a recipient can opt out of.
type Category string

const (
	// CategoryAll disables every channel of every category.
	CategoryAll Category = "all"
	// CategoryJobAlerts covers job alert emails and standing alert records.
	CategoryJobAlerts Category = "job_alerts"
	// CategoryEventUpdates covers event, powwow, and conference updates.
	CategoryEventUpdates Category = "event_updates"
	// CategoryScholarshipUpdates covers scholarship deadline reminders.
	CategoryScholarshipUpdates Category = "scholarship_updates"
	// CategoryCommunityDigest covers the periodic community digest.
	CategoryCommunityDigest Category = "community_digest"
)

// Categories returns the closed category enumeration.
func Categories() []Category {
	return []Category{
		CategoryAll,
		CategoryJobAlerts,
		CategoryEventUpdates,
		CategoryScholarshipUpdates,
		CategoryCommunityDigest,
	}
}

// ParseCategory validates a raw category string against the closed
// enumeration.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	switch c {
	case CategoryAll, CategoryJobAlerts, CategoryEventUpdates,
		CategoryScholarshipUpdates, CategoryCommunityDigest:
		return c, true
	default:
		return "", false
	}
}

const dayFormat = "2006-01-02"

// Codec generates and verifies day-scoped unsubscribe tokens. A token binds
// an email and a category to the UTC date it was generated on; verification
// accepts today's and yesterday's token so a link minted at 23:59 UTC still
// validates minutes later. Tokens are derived, never stored.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec returns a Codec keyed with the given secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// WithClock injects a custom clock (useful for tests).
func (c *Codec) WithClock(clock func() time.Time) *Codec {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Generate computes the token for the email/category pair scoped to today's
// UTC date.
func (c *Codec) Generate(email string, category Category) string {
	return c.tokenFor(email, category, c.now().UTC().Format(dayFormat))
}

// Verify recomputes candidates for today and yesterday (UTC) and compares
// each against the supplied token in constant time.
func (c *Codec) Verify(email string, category Category, token string) bool {
	if token == "" {
		return false
	}

	now := c.now().UTC()
	today := c.tokenFor(email, category, now.Format(dayFormat))
	yesterday := c.tokenFor(email, category, now.AddDate(0, 0, -1).Format(dayFormat))

	return subtle.ConstantTimeCompare([]byte(token), []byte(today)) == 1 ||
		subtle.ConstantTimeCompare([]byte(token), []byte(yesterday)) == 1
}

func (c *Codec) tokenFor(email string, category Category, day string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(email + ":" + string(category) + ":" + day))
	return hex.EncodeToString(mac.Sum(nil))
}
