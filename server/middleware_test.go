package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIPLimiter(t *testing.T) {
	t.Run("enforces the burst per IP", func(t *testing.T) {
		current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter := newIPLimiter(rate.Limit(1), 1, func() time.Time { return current })

		assert.True(t, limiter.allow("10.0.0.1"))
		assert.False(t, limiter.allow("10.0.0.1"))
		// A different IP gets its own bucket.
		assert.True(t, limiter.allow("10.0.0.2"))
	})

	t.Run("evicts idle entries after the TTL", func(t *testing.T) {
		current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter := newIPLimiter(rate.Limit(1), 1, func() time.Time { return current })

		limiter.allow("10.0.0.1")
		limiter.allow("10.0.0.2")
		assert.Len(t, limiter.entries, 2)

		current = current.Add(limiterTTL + time.Minute)
		limiter.allow("10.0.0.3")

		assert.Len(t, limiter.entries, 1)
		assert.Contains(t, limiter.entries, "10.0.0.3")
	})

	t.Run("recently seen entries survive the sweep", func(t *testing.T) {
		current := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
		limiter := newIPLimiter(rate.Limit(1), 1, func() time.Time { return current })

		limiter.allow("10.0.0.1")

		current = current.Add(limiterTTL - time.Minute)
		limiter.allow("10.0.0.2")

		current = current.Add(2 * time.Minute)
		limiter.allow("10.0.0.3")

		assert.NotContains(t, limiter.entries, "10.0.0.1")
		assert.Contains(t, limiter.entries, "10.0.0.2")
		assert.Contains(t, limiter.entries, "10.0.0.3")
	})
}
