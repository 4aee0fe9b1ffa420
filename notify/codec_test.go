package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wingchucks/iopps-sub007/notify"
)

var codecNow = time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)

func newTestCodec(at time.Time) *notify.Codec {
	return notify.NewCodec([]byte("unsubscribe-secret")).
		WithClock(func() time.Time { return at })
}

func TestCodec_GenerateAndVerify(t *testing.T) {
	codec := newTestCodec(codecNow)

	t.Run("round trip", func(t *testing.T) {
		token := codec.Generate("member@example.com", notify.CategoryJobAlerts)
		assert.NotEmpty(t, token)
		assert.True(t, codec.Verify("member@example.com", notify.CategoryJobAlerts, token))
	})

	t.Run("token is bound to the category", func(t *testing.T) {
		token := codec.Generate("member@example.com", notify.CategoryJobAlerts)
		assert.False(t, codec.Verify("member@example.com", notify.CategoryEventUpdates, token))
	})

	t.Run("token is bound to the email", func(t *testing.T) {
		token := codec.Generate("member@example.com", notify.CategoryAll)
		assert.False(t, codec.Verify("other@example.com", notify.CategoryAll, token))
	})

	t.Run("different secrets do not cross-validate", func(t *testing.T) {
		other := notify.NewCodec([]byte("different-secret")).
			WithClock(func() time.Time { return codecNow })
		token := codec.Generate("member@example.com", notify.CategoryAll)
		assert.False(t, other.Verify("member@example.com", notify.CategoryAll, token))
	})

	t.Run("empty token never verifies", func(t *testing.T) {
		assert.False(t, codec.Verify("member@example.com", notify.CategoryAll, ""))
	})
}

func TestCodec_DayWindow(t *testing.T) {
	t.Run("yesterday's token still verifies", func(t *testing.T) {
		token := newTestCodec(codecNow.AddDate(0, 0, -1)).
			Generate("member@example.com", notify.CategoryCommunityDigest)

		assert.True(t, newTestCodec(codecNow).
			Verify("member@example.com", notify.CategoryCommunityDigest, token))
	})

	t.Run("two-day-old token is rejected", func(t *testing.T) {
		token := newTestCodec(codecNow.AddDate(0, 0, -2)).
			Generate("member@example.com", notify.CategoryCommunityDigest)

		assert.False(t, newTestCodec(codecNow).
			Verify("member@example.com", notify.CategoryCommunityDigest, token))
	})

	t.Run("token minted just before UTC midnight survives the rollover", func(t *testing.T) {
		lateNight := time.Date(2026, 4, 10, 23, 59, 0, 0, time.UTC)
		token := newTestCodec(lateNight).Generate("member@example.com", notify.CategoryJobAlerts)

		justAfter := time.Date(2026, 4, 11, 0, 5, 0, 0, time.UTC)
		assert.True(t, newTestCodec(justAfter).
			Verify("member@example.com", notify.CategoryJobAlerts, token))
	})
}

func TestParseCategory(t *testing.T) {
	for _, category := range notify.Categories() {
		got, ok := notify.ParseCategory(string(category))
		assert.True(t, ok)
		assert.Equal(t, category, got)
	}

	for _, raw := range []string{"", "jobs", "JOB_ALERTS", "everything"} {
		_, ok := notify.ParseCategory(raw)
		assert.False(t, ok, raw)
	}
}
