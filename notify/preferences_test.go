package notify_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/wingchucks/iopps-sub007/notify"
)

var prefNow = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

func setupPreferences(t *testing.T) (*notify.Preferences, *bun.DB) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	prefs := notify.NewPreferences(db).
		WithClock(func() time.Time { return prefNow })
	require.NoError(t, prefs.EnsureSchema(context.Background()))
	return prefs, db
}

func insertAlert(t *testing.T, db *bun.DB, email, query string) *notify.Alert {
	t.Helper()
	alert := &notify.Alert{
		ID:     uuid.New(),
		Email:  email,
		Query:  query,
		Active: true,
	}
	_, err := db.NewInsert().Model(alert).Exec(context.Background())
	require.NoError(t, err)
	return alert
}

func TestPreferences_Get(t *testing.T) {
	ctx := context.Background()
	prefs, _ := setupPreferences(t)

	pref, err := prefs.Get(ctx, "member@example.com")
	require.NoError(t, err)
	assert.Equal(t, "member@example.com", pref.Email)
	assert.Equal(t, notify.DefaultChannels(), pref.Channels)
	assert.NotContains(t, pref.Channels, notify.CategoryAll)

	// Second read returns the persisted document, not a fresh default.
	again, err := prefs.Get(ctx, "member@example.com")
	require.NoError(t, err)
	assert.Equal(t, pref.ID, again.ID)
}

func TestPreferences_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates named categories and keeps the rest", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		pref, err := prefs.Update(ctx, "member@example.com", map[notify.Category]notify.ChannelSettings{
			notify.CategoryEventUpdates: {Email: false, InApp: true},
		})
		require.NoError(t, err)
		assert.Equal(t, notify.ChannelSettings{Email: false, InApp: true}, pref.Channels[notify.CategoryEventUpdates])
		assert.Equal(t, notify.ChannelSettings{Email: true, InApp: true}, pref.Channels[notify.CategoryJobAlerts])
	})

	t.Run("rejects unknown categories before writing", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		_, err := prefs.Update(ctx, "member@example.com", map[notify.Category]notify.ChannelSettings{
			"spam": {Email: true},
		})
		require.Error(t, err)
	})

	t.Run("rejects the all pseudo-category", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		_, err := prefs.Update(ctx, "member@example.com", map[notify.Category]notify.ChannelSettings{
			notify.CategoryAll: {},
		})
		require.Error(t, err)
	})
}

func TestPreferences_Unsubscribe(t *testing.T) {
	ctx := context.Background()

	t.Run("single category turns off its channels only", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		pref, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryScholarshipUpdates)
		require.NoError(t, err)
		assert.Equal(t, notify.ChannelSettings{}, pref.Channels[notify.CategoryScholarshipUpdates])
		assert.Equal(t, notify.ChannelSettings{Email: true, InApp: true}, pref.Channels[notify.CategoryJobAlerts])
	})

	t.Run("all zeroes every category", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		pref, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryAll)
		require.NoError(t, err)
		for category, settings := range pref.Channels {
			assert.Equal(t, notify.ChannelSettings{}, settings, category)
		}
	})

	t.Run("job alerts also deactivates standing alerts", func(t *testing.T) {
		prefs, db := setupPreferences(t)

		insertAlert(t, db, "member@example.com", "carpenter")
		insertAlert(t, db, "member@example.com", "cook")
		other := insertAlert(t, db, "other@example.com", "teacher")

		_, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryJobAlerts)
		require.NoError(t, err)

		active, err := prefs.ActiveAlerts(ctx, "member@example.com")
		require.NoError(t, err)
		assert.Empty(t, active)

		otherActive, err := prefs.ActiveAlerts(ctx, "other@example.com")
		require.NoError(t, err)
		require.Len(t, otherActive, 1)
		assert.Equal(t, other.ID, otherActive[0].ID)
	})

	t.Run("event updates leaves standing alerts alone", func(t *testing.T) {
		prefs, db := setupPreferences(t)

		insertAlert(t, db, "member@example.com", "carpenter")

		_, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryEventUpdates)
		require.NoError(t, err)

		active, err := prefs.ActiveAlerts(ctx, "member@example.com")
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("repeat unsubscribe is a no-op", func(t *testing.T) {
		prefs, _ := setupPreferences(t)

		first, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryAll)
		require.NoError(t, err)
		second, err := prefs.Unsubscribe(ctx, "member@example.com", notify.CategoryAll)
		require.NoError(t, err)
		assert.Equal(t, first.Channels, second.Channels)
	})
}
