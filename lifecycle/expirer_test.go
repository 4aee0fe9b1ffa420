package lifecycle_test

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

	iopps "github.com/wingchucks/iopps-sub007"
	"github.com/wingchucks/iopps-sub007/lifecycle"
)

var runAt = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	store := lifecycle.NewStore(db)
	require.NoError(t, store.EnsureSchema(context.Background()))
	return db
}

func timePtr(t time.Time) *time.Time { return &t }

func insertJob(t *testing.T, db *bun.DB, job *lifecycle.Job) *lifecycle.Job {
	t.Helper()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := db.NewInsert().Model(job).Exec(context.Background())
	require.NoError(t, err)
	return job
}

func loadJob(t *testing.T, db *bun.DB, id uuid.UUID) *lifecycle.Job {
	t.Helper()
	job := new(lifecycle.Job)
	err := db.NewSelect().Model(job).Where("job.id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return job
}

func TestExpirer_ExpireJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("expires live job past its listing window", func(t *testing.T) {
		db := setupDB(t)
		expirer := lifecycle.NewExpirer(db)

		job := insertJob(t, db, &lifecycle.Job{
			Title:      "Fisheries Technician",
			EmployerID: "emp-1",
			Active:     true,
			ExpiresAt:  timePtr(runAt.Add(-24 * time.Hour)),
		})

		count, err := expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		got := loadJob(t, db, job.ID)
		assert.False(t, got.Active)
		require.NotNil(t, got.ExpiredAt)
		assert.True(t, got.ExpiredAt.Equal(runAt))

		// A second pass finds nothing live to expire.
		count, err = expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("job matched by both deadlines expires once", func(t *testing.T) {
		db := setupDB(t)
		expirer := lifecycle.NewExpirer(db)

		insertJob(t, db, &lifecycle.Job{
			Title:       "Band Office Clerk",
			EmployerID:  "emp-2",
			Active:      true,
			ExpiresAt:   timePtr(runAt.Add(-time.Hour)),
			ClosingDate: timePtr(runAt.Add(-2 * time.Hour)),
		})

		count, err := expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("future deadlines are untouched", func(t *testing.T) {
		db := setupDB(t)
		expirer := lifecycle.NewExpirer(db)

		job := insertJob(t, db, &lifecycle.Job{
			Title:      "Cultural Coordinator",
			EmployerID: "emp-3",
			Active:     true,
			ExpiresAt:  timePtr(runAt.Add(48 * time.Hour)),
		})

		count, err := expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.True(t, loadJob(t, db, job.ID).Active)
	})

	t.Run("overridden job is skipped until the flag clears", func(t *testing.T) {
		db := setupDB(t)
		expirer := lifecycle.NewExpirer(db)
		store := lifecycle.NewStore(db)

		job := insertJob(t, db, &lifecycle.Job{
			Title:          "Language Teacher",
			EmployerID:     "emp-4",
			Active:         true,
			ForcePublished: true,
			ExpiresAt:      timePtr(runAt.Add(-time.Hour)),
		})

		count, err := expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.True(t, loadJob(t, db, job.ID).Active)

		_, err = store.SetJobOverride(ctx, job.ID, false)
		require.NoError(t, err)

		count, err = expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.False(t, loadJob(t, db, job.ID).Active)
	})

	t.Run("job without deadlines never expires", func(t *testing.T) {
		db := setupDB(t)
		expirer := lifecycle.NewExpirer(db)

		job := insertJob(t, db, &lifecycle.Job{
			Title:      "Evergreen Posting",
			EmployerID: "emp-5",
			Active:     true,
		})

		count, err := expirer.ExpireJobs(ctx, runAt)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.True(t, loadJob(t, db, job.ID).Active)
	})
}

func TestExpirer_OtherFamilies(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	expirer := lifecycle.NewExpirer(db)

	_, err := db.NewInsert().Model(&lifecycle.Scholarship{
		ID:       uuid.New(),
		Title:    "Post-Secondary Bursary",
		Active:   true,
		Deadline: timePtr(runAt.Add(-time.Hour)),
	}).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&lifecycle.Event{
		ID:      uuid.New(),
		Title:   "Summer Powwow",
		Kind:    lifecycle.EventKindPowwow,
		Active:  true,
		EndDate: timePtr(runAt.Add(-time.Hour)),
	}).Exec(ctx)
	require.NoError(t, err)

	sub := &lifecycle.Subscription{
		ID:               uuid.New(),
		EmployerID:       "emp-1",
		Plan:             "standard",
		Status:           lifecycle.SubscriptionActive,
		CurrentPeriodEnd: timePtr(runAt.Add(-time.Hour)),
	}
	_, err = db.NewInsert().Model(sub).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&lifecycle.VendorFeature{
		ID:            uuid.New(),
		VendorID:      "vendor-1",
		Active:        true,
		FeaturedUntil: timePtr(runAt.Add(-time.Hour)),
	}).Exec(ctx)
	require.NoError(t, err)

	_, err = db.NewInsert().Model(&lifecycle.TalentAccess{
		ID:          uuid.New(),
		EmployerID:  "emp-1",
		Active:      true,
		AccessUntil: timePtr(runAt.Add(-time.Hour)),
	}).Exec(ctx)
	require.NoError(t, err)

	count, err := expirer.ExpireScholarships(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = expirer.ExpireEvents(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = expirer.ExpireSubscriptions(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got := new(lifecycle.Subscription)
	require.NoError(t, db.NewSelect().Model(got).Where("sub.id = ?", sub.ID).Scan(ctx))
	assert.Equal(t, lifecycle.SubscriptionExpired, got.Status)

	count, err = expirer.ExpireVendorFeatures(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = expirer.ExpireTalentAccess(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Everything already expired: the whole batch is a no-op now.
	results, err := expirer.ExpireAll(ctx, runAt)
	require.NoError(t, err)
	for _, result := range results {
		assert.Zero(t, result.Expired, result.Family)
	}
}

func TestExpirer_PublishScheduled(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	expirer := lifecycle.NewExpirer(db)

	due := insertJob(t, db, &lifecycle.Job{
		Title:              "Health Director",
		EmployerID:         "emp-1",
		Active:             false,
		ScheduledPublishAt: timePtr(runAt.Add(-time.Minute)),
	})
	notYet := insertJob(t, db, &lifecycle.Job{
		Title:              "Housing Manager",
		EmployerID:         "emp-2",
		Active:             false,
		ScheduledPublishAt: timePtr(runAt.Add(time.Hour)),
	})

	count, err := expirer.PublishScheduled(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	published := loadJob(t, db, due.ID)
	assert.True(t, published.Active)
	assert.Nil(t, published.ScheduledPublishAt)
	require.NotNil(t, published.PublishedAt)
	assert.True(t, published.PublishedAt.Equal(runAt))

	assert.False(t, loadJob(t, db, notYet.ID).Active)

	var notifications []*lifecycle.Notification
	require.NoError(t, db.NewSelect().Model(&notifications).Scan(ctx))
	require.Len(t, notifications, 1)
	assert.NotEqual(t, uuid.Nil, notifications[0].ID)
	assert.Equal(t, "job_published", notifications[0].Kind)
	assert.Equal(t, due.ID, notifications[0].EntityID)
	assert.Contains(t, notifications[0].Message, "Health Director")

	// Re-running does not publish or notify again.
	count, err = expirer.PublishScheduled(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	notifications = nil
	require.NoError(t, db.NewSelect().Model(&notifications).Scan(ctx))
	assert.Len(t, notifications, 1)
}

func TestExpirer_ExpireAll(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	recorder := &captureRecorder{expired: map[string]int{}}
	expirer := lifecycle.NewExpirer(db, lifecycle.WithRecorder(recorder))

	insertJob(t, db, &lifecycle.Job{
		Title:      "Due Job",
		EmployerID: "emp-1",
		Active:     true,
		ExpiresAt:  timePtr(runAt.Add(-time.Hour)),
	})
	insertJob(t, db, &lifecycle.Job{
		Title:              "Scheduled Job",
		EmployerID:         "emp-1",
		Active:             false,
		ScheduledPublishAt: timePtr(runAt.Add(-time.Hour)),
	})

	results, err := expirer.ExpireAll(ctx, runAt)
	require.NoError(t, err)
	require.Len(t, results, 7)

	byFamily := make(map[string]int, len(results))
	for _, result := range results {
		byFamily[result.Family] = result.Expired
	}
	assert.Equal(t, 1, byFamily[lifecycle.FamilyJobs])
	assert.Equal(t, 1, byFamily[lifecycle.FamilyPublished])
	assert.Equal(t, 0, byFamily[lifecycle.FamilyScholarships])

	assert.Equal(t, 1, recorder.expired[lifecycle.FamilyJobs])
	assert.Equal(t, 1, recorder.expired[lifecycle.FamilyPublished])
}

func TestExpirer_DatabaseUnreachable(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	recorder := &captureRecorder{expired: map[string]int{}}
	expirer := lifecycle.NewExpirer(db, lifecycle.WithRecorder(recorder))

	require.NoError(t, db.Close())

	_, err := expirer.ExpireJobs(ctx, runAt)
	require.Error(t, err)
	assert.Contains(t, recorder.errors, lifecycle.FamilyJobs)

	// The batch aborts on the first fatal failure.
	results, err := expirer.ExpireAll(ctx, runAt)
	require.Error(t, err)
	assert.Empty(t, results)
}

type captureRecorder struct {
	expired map[string]int
	errors  []string
}

func (r *captureRecorder) RecordExpired(family string, count int) {
	r.expired[family] += count
}

func (r *captureRecorder) RecordRunError(family string) {
	r.errors = append(r.errors, family)
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("counts live and expired per family", func(t *testing.T) {
		db := setupDB(t)
		store := lifecycle.NewStore(db)

		insertJob(t, db, &lifecycle.Job{Title: "Live", EmployerID: "e", Active: true})
		insertJob(t, db, &lifecycle.Job{Title: "Gone", EmployerID: "e", Active: false})

		counts, err := store.Counts(ctx)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.FamilyCounts{Live: 1, Expired: 1}, counts[lifecycle.FamilyJobs])
		assert.Equal(t, lifecycle.FamilyCounts{}, counts[lifecycle.FamilyEvents])
	})

	t.Run("missing job maps to not found", func(t *testing.T) {
		db := setupDB(t)
		store := lifecycle.NewStore(db)

		_, err := store.GetJob(ctx, uuid.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, iopps.ErrNotFound)
	})

	t.Run("expiring an inactive job is a no-op", func(t *testing.T) {
		db := setupDB(t)
		store := lifecycle.NewStore(db)

		expiredAt := runAt.Add(-time.Hour)
		job := insertJob(t, db, &lifecycle.Job{
			Title:      "Already Done",
			EmployerID: "e",
			Active:     false,
			ExpiredAt:  &expiredAt,
		})

		got, err := store.ExpireJob(ctx, job.ID, runAt)
		require.NoError(t, err)
		assert.False(t, got.Active)
		require.NotNil(t, got.ExpiredAt)
		assert.True(t, got.ExpiredAt.Equal(expiredAt))
	})

	t.Run("admin expire flips a live job", func(t *testing.T) {
		db := setupDB(t)
		store := lifecycle.NewStore(db)

		job := insertJob(t, db, &lifecycle.Job{Title: "Live", EmployerID: "e", Active: true})

		got, err := store.ExpireJob(ctx, job.ID, runAt)
		require.NoError(t, err)
		assert.False(t, got.Active)

		reloaded := loadJob(t, db, job.ID)
		assert.False(t, reloaded.Active)
	})
}
