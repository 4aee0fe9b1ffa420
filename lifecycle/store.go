package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	iopps "github.com/wingchucks/iopps-sub007"
)

// Store wraps the database handle for the lifecycle collections and owns
// schema creation plus the reads and explicit writes the admin surface
// needs. Batch transitions are the Expirer's job.
type Store struct {
	db     *bun.DB
	logger iopps.Logger
}

// NewStore returns a Store over the given handle.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db, logger: iopps.DefaultLogger()}
}

// WithLogger overrides the logger.
func (s *Store) WithLogger(logger iopps.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// DB exposes the underlying handle for sibling packages sharing the
// database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// OpenDB opens a sqlite-backed bun handle for the given DSN.
func OpenDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database")
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// EnsureSchema creates the lifecycle tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	models := []any{
		(*Job)(nil),
		(*Scholarship)(nil),
		(*Event)(nil),
		(*Subscription)(nil),
		(*VendorFeature)(nil),
		(*TalentAccess)(nil),
		(*Notification)(nil),
	}

	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to create lifecycle schema")
		}
	}
	return nil
}

// FamilyCounts aggregates live and expired totals for one entity family.
type FamilyCounts struct {
	Live    int `json:"live"`
	Expired int `json:"expired"`
}

// Counts returns live/expired totals per entity family for the admin
// dashboard.
func (s *Store) Counts(ctx context.Context) (map[string]FamilyCounts, error) {
	out := make(map[string]FamilyCounts, 6)

	counters := []struct {
		name  string
		model any
		live  string
		args  []any
	}{
		{FamilyJobs, (*Job)(nil), "active = ?", []any{true}},
		{FamilyScholarships, (*Scholarship)(nil), "active = ?", []any{true}},
		{FamilyEvents, (*Event)(nil), "active = ?", []any{true}},
		{FamilySubscriptions, (*Subscription)(nil), "status = ?", []any{SubscriptionActive}},
		{FamilyVendorFeatures, (*VendorFeature)(nil), "active = ?", []any{true}},
		{FamilyTalentAccess, (*TalentAccess)(nil), "active = ?", []any{true}},
	}

	for _, c := range counters {
		live, err := s.db.NewSelect().Model(c.model).Where(c.live, c.args...).Count(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to count live "+c.name)
		}
		total, err := s.db.NewSelect().Model(c.model).Count(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to count "+c.name)
		}
		out[c.name] = FamilyCounts{Live: live, Expired: total - live}
	}

	return out, nil
}

// GetJob fetches one job by id, mapping a missing row to ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	job := new(Job)
	err := s.db.NewSelect().Model(job).Where("job.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, iopps.ErrNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load job")
	}
	return job, nil
}

// SetJobOverride sets or clears the force-published override on a job. An
// overridden job is skipped by the Expirer until the flag is cleared.
func (s *Store) SetJobOverride(ctx context.Context, id uuid.UUID, forcePublished bool) (*Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job.ForcePublished = forcePublished
	job.UpdatedAt = &now

	_, err = s.db.NewUpdate().Model(job).
		Column("force_published", "updated_at").
		Where("id = ?", job.ID).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update job override")
	}
	return job, nil
}

// ExpireJob expires one job by explicit admin action, independent of its
// deadlines. Expiring an already inactive job is a no-op.
func (s *Store) ExpireJob(ctx context.Context, id uuid.UUID, now time.Time) (*Job, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if !job.Active {
		return job, nil
	}

	job.Active = false
	job.ExpiredAt = &now
	job.UpdatedAt = &now

	_, err = s.db.NewUpdate().Model(job).
		Column("active", "expired_at", "updated_at").
		Where("id = ?", job.ID).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to expire job")
	}
	return job, nil
}
