package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	iopps "github.com/wingchucks/iopps-sub007"
)

// Family names used in results, logs, and metrics.
const (
	FamilyJobs           = "jobs"
	FamilyScholarships   = "scholarships"
	FamilyEvents         = "events"
	FamilySubscriptions  = "subscriptions"
	FamilyVendorFeatures = "vendor_features"
	FamilyTalentAccess   = "talent_access"
	FamilyPublished      = "published"
)

// Recorder receives expirer outcomes. The metrics package provides the
// Prometheus-backed implementation.
type Recorder interface {
	RecordExpired(family string, count int)
	RecordRunError(family string)
}

type noopRecorder struct{}

func (noopRecorder) RecordExpired(string, int) {}
func (noopRecorder) RecordRunError(string)     {}

// Result reports one family's pass.
type Result struct {
	Family  string `json:"family"`
	Expired int    `json:"expired"`
}

// Expirer runs the scheduled lifecycle transitions. Each invocation is
// stateless and short-lived; idempotence comes from the live predicate in
// every query, so overlapping cron triggers re-expiring an entity are safe
// no-ops. A single entity's failure is logged and does not abort the batch;
// an unreachable database fails the invocation and leaves retry to the
// scheduler's own cadence.
type Expirer struct {
	db       *bun.DB
	logger   iopps.Logger
	recorder Recorder
	now      func() time.Time
}

// ExpirerOption customizes Expirer construction.
type ExpirerOption func(*Expirer)

// WithLogger overrides the logger.
func WithLogger(logger iopps.Logger) ExpirerOption {
	return func(e *Expirer) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) ExpirerOption {
	return func(e *Expirer) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ExpirerOption {
	return func(e *Expirer) {
		if clock != nil {
			e.now = clock
		}
	}
}

// NewExpirer returns an Expirer over the given handle.
func NewExpirer(db *bun.DB, opts ...ExpirerOption) *Expirer {
	e := &Expirer{
		db:       db,
		logger:   iopps.DefaultLogger(),
		recorder: noopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExpireJobs expires live jobs whose listing window or closing date has
// passed. The two deadline fields are queried independently and de-duplicated
// by id so a job matched by both is expired exactly once.
func (e *Expirer) ExpireJobs(ctx context.Context, now time.Time) (int, error) {
	var byListing, byClosing []*Job

	err := e.db.NewSelect().Model(&byListing).
		Where("active = ?", true).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyJobs)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query jobs due by listing window")
	}

	err = e.db.NewSelect().Model(&byClosing).
		Where("active = ?", true).
		Where("closing_date IS NOT NULL AND closing_date <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyJobs)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query jobs due by closing date")
	}

	seen := make(map[string]bool, len(byListing)+len(byClosing))
	due := make([]*Job, 0, len(byListing)+len(byClosing))
	for _, job := range append(byListing, byClosing...) {
		if seen[job.ID.String()] {
			continue
		}
		seen[job.ID.String()] = true
		due = append(due, job)
	}

	count := 0
	for _, job := range due {
		if job.ForcePublished {
			e.logger.Debug("skipping overridden job", "id", job.ID)
			continue
		}

		job.Active = false
		job.ExpiredAt = &now
		job.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(job).
			Column("active", "expired_at", "updated_at").
			Where("id = ?", job.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire job", "id", job.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilyJobs, count)
	return count, nil
}

// ExpireScholarships expires live scholarships past their deadline.
func (e *Expirer) ExpireScholarships(ctx context.Context, now time.Time) (int, error) {
	var due []*Scholarship
	err := e.db.NewSelect().Model(&due).
		Where("active = ?", true).
		Where("deadline IS NOT NULL AND deadline <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyScholarships)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query due scholarships")
	}

	count := 0
	for _, sch := range due {
		if sch.ForcePublished {
			e.logger.Debug("skipping overridden scholarship", "id", sch.ID)
			continue
		}

		sch.Active = false
		sch.ExpiredAt = &now
		sch.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(sch).
			Column("active", "expired_at", "updated_at").
			Where("id = ?", sch.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire scholarship", "id", sch.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilyScholarships, count)
	return count, nil
}

// ExpireEvents expires live events, powwows, and conferences whose end date
// has passed.
func (e *Expirer) ExpireEvents(ctx context.Context, now time.Time) (int, error) {
	var due []*Event
	err := e.db.NewSelect().Model(&due).
		Where("active = ?", true).
		Where("end_date IS NOT NULL AND end_date <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyEvents)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query due events")
	}

	count := 0
	for _, evt := range due {
		if evt.ForcePublished {
			e.logger.Debug("skipping overridden event", "id", evt.ID)
			continue
		}

		evt.Active = false
		evt.ExpiredAt = &now
		evt.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(evt).
			Column("active", "expired_at", "updated_at").
			Where("id = ?", evt.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire event", "id", evt.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilyEvents, count)
	return count, nil
}

// ExpireSubscriptions flips active subscriptions whose current period ended
// to expired status.
func (e *Expirer) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	var due []*Subscription
	err := e.db.NewSelect().Model(&due).
		Where("status = ?", SubscriptionActive).
		Where("current_period_end IS NOT NULL AND current_period_end <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilySubscriptions)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query due subscriptions")
	}

	count := 0
	for _, sub := range due {
		sub.Status = SubscriptionExpired
		sub.ExpiredAt = &now
		sub.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(sub).
			Column("status", "expired_at", "updated_at").
			Where("id = ?", sub.ID).
			Where("status = ?", SubscriptionActive).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire subscription", "id", sub.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilySubscriptions, count)
	return count, nil
}

// ExpireVendorFeatures expires featured vendor placements past their window.
func (e *Expirer) ExpireVendorFeatures(ctx context.Context, now time.Time) (int, error) {
	var due []*VendorFeature
	err := e.db.NewSelect().Model(&due).
		Where("active = ?", true).
		Where("featured_until IS NOT NULL AND featured_until <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyVendorFeatures)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query due vendor features")
	}

	count := 0
	for _, vnf := range due {
		vnf.Active = false
		vnf.ExpiredAt = &now
		vnf.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(vnf).
			Column("active", "expired_at", "updated_at").
			Where("id = ?", vnf.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire vendor feature", "id", vnf.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilyVendorFeatures, count)
	return count, nil
}

// ExpireTalentAccess expires employer talent-pool access grants.
func (e *Expirer) ExpireTalentAccess(ctx context.Context, now time.Time) (int, error) {
	var due []*TalentAccess
	err := e.db.NewSelect().Model(&due).
		Where("active = ?", true).
		Where("access_until IS NOT NULL AND access_until <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyTalentAccess)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query due talent access grants")
	}

	count := 0
	for _, tal := range due {
		tal.Active = false
		tal.ExpiredAt = &now
		tal.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(tal).
			Column("active", "expired_at", "updated_at").
			Where("id = ?", tal.ID).
			Where("active = ?", true).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to expire talent access", "id", tal.ID, "error", err)
			continue
		}
		count++
	}

	e.recorder.RecordExpired(FamilyTalentAccess, count)
	return count, nil
}

// PublishScheduled is the mirror-image transition: inactive jobs whose
// scheduled publish time has arrived go live, the schedule field is cleared,
// and a notification record is emitted. The entity update and the
// notification write are a two-step saga; a notification failure is logged
// and does not undo the publish.
func (e *Expirer) PublishScheduled(ctx context.Context, now time.Time) (int, error) {
	var due []*Job
	err := e.db.NewSelect().Model(&due).
		Where("active = ?", false).
		Where("scheduled_publish_at IS NOT NULL AND scheduled_publish_at <= ?", now).
		Scan(ctx)
	if err != nil {
		e.recorder.RecordRunError(FamilyPublished)
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to query scheduled jobs")
	}

	count := 0
	for _, job := range due {
		job.Active = true
		job.ScheduledPublishAt = nil
		job.PublishedAt = &now
		job.UpdatedAt = &now

		_, err := e.db.NewUpdate().Model(job).
			Column("active", "scheduled_publish_at", "published_at", "updated_at").
			Where("id = ?", job.ID).
			Where("active = ?", false).
			Exec(ctx)
		if err != nil {
			e.logger.Error("failed to publish scheduled job", "id", job.ID, "error", err)
			continue
		}
		count++

		notification := &Notification{
			ID:        uuid.New(),
			Kind:      "job_published",
			EntityID:  job.ID,
			Message:   fmt.Sprintf("Job published: %s", job.Title),
			CreatedAt: &now,
		}
		if _, err := e.db.NewInsert().Model(notification).Exec(ctx); err != nil {
			e.logger.Warn("published job but failed to write notification", "id", job.ID, "error", err)
		}
	}

	e.recorder.RecordExpired(FamilyPublished, count)
	return count, nil
}

// ExpireAll runs every expiry family plus scheduled publication in a fixed
// order and reports per-family counts. The first database-level failure
// aborts the invocation; per-entity failures inside a family do not.
func (e *Expirer) ExpireAll(ctx context.Context, now time.Time) ([]Result, error) {
	passes := []struct {
		family string
		run    func(context.Context, time.Time) (int, error)
	}{
		{FamilyJobs, e.ExpireJobs},
		{FamilyScholarships, e.ExpireScholarships},
		{FamilyEvents, e.ExpireEvents},
		{FamilySubscriptions, e.ExpireSubscriptions},
		{FamilyVendorFeatures, e.ExpireVendorFeatures},
		{FamilyTalentAccess, e.ExpireTalentAccess},
		{FamilyPublished, e.PublishScheduled},
	}

	results := make([]Result, 0, len(passes))
	for _, pass := range passes {
		count, err := pass.run(ctx, now)
		if err != nil {
			return results, err
		}
		results = append(results, Result{Family: pass.family, Expired: count})
	}
	return results, nil
}
