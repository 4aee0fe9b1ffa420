// Package lifecycle owns the time-driven state transitions of IOPPS
// entities: expiring live postings whose deadline has passed and publishing
// entities whose scheduled time has arrived. The Expirer and explicit
// user/admin actions are the only writers of these fields.
package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Job is a job posting. Two independent deadline fields can each trigger
// expiry: the paid listing window (ExpiresAt) and the employer's own
// application closing date (ClosingDate).
type Job struct {
	bun.BaseModel      `bun:"table:jobs,alias:job"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title              string     `bun:"title,notnull" json:"title,omitempty"`
	EmployerID         string     `bun:"employer_id,notnull" json:"employer_id,omitempty"`
	Active             bool       `bun:"active,notnull" json:"active"`
	ForcePublished     bool       `bun:"force_published,notnull,default:false" json:"force_published,omitempty"`
	ExpiresAt          *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	ClosingDate        *time.Time `bun:"closing_date,nullzero" json:"closing_date,omitempty"`
	ScheduledPublishAt *time.Time `bun:"scheduled_publish_at,nullzero" json:"scheduled_publish_at,omitempty"`
	PublishedAt        *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	ExpiredAt          *time.Time `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Scholarship is a scholarship listing with an application deadline.
type Scholarship struct {
	bun.BaseModel  `bun:"table:scholarships,alias:sch"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title          string     `bun:"title,notnull" json:"title,omitempty"`
	Active         bool       `bun:"active,notnull" json:"active"`
	ForcePublished bool       `bun:"force_published,notnull,default:false" json:"force_published,omitempty"`
	Deadline       *time.Time `bun:"deadline,nullzero" json:"deadline,omitempty"`
	ExpiredAt      *time.Time `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EventKind distinguishes the event families sharing one collection.
type EventKind = string

const (
	EventKindEvent      EventKind = "event"
	EventKindPowwow     EventKind = "powwow"
	EventKindConference EventKind = "conference"
)

// Event is a community event, powwow, or conference; it expires when its
// end date passes.
type Event struct {
	bun.BaseModel  `bun:"table:events,alias:evt"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title          string     `bun:"title,notnull" json:"title,omitempty"`
	Kind           EventKind  `bun:"kind,notnull" json:"kind,omitempty"`
	Active         bool       `bun:"active,notnull" json:"active"`
	ForcePublished bool       `bun:"force_published,notnull,default:false" json:"force_published,omitempty"`
	EndDate        *time.Time `bun:"end_date,nullzero" json:"end_date,omitempty"`
	ExpiredAt      *time.Time `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SubscriptionStatus is a subscription's lifecycle status.
type SubscriptionStatus = string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Subscription is a paid employer subscription; it flips to expired when
// the current period ends without renewal.
type Subscription struct {
	bun.BaseModel    `bun:"table:subscriptions,alias:sub"`
	ID               uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmployerID       string             `bun:"employer_id,notnull" json:"employer_id,omitempty"`
	Plan             string             `bun:"plan,notnull" json:"plan,omitempty"`
	Status           SubscriptionStatus `bun:"status,notnull" json:"status,omitempty"`
	CurrentPeriodEnd *time.Time         `bun:"current_period_end,nullzero" json:"current_period_end,omitempty"`
	ExpiredAt        *time.Time         `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt        *time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time         `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// VendorFeature is a paid placement for a community-directory vendor.
type VendorFeature struct {
	bun.BaseModel `bun:"table:vendor_features,alias:vnf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	VendorID      string     `bun:"vendor_id,notnull" json:"vendor_id,omitempty"`
	Active        bool       `bun:"active,notnull" json:"active"`
	FeaturedUntil *time.Time `bun:"featured_until,nullzero" json:"featured_until,omitempty"`
	ExpiredAt     *time.Time `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TalentAccess grants an employer time-bound access to the talent pool.
type TalentAccess struct {
	bun.BaseModel `bun:"table:talent_access,alias:tal"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EmployerID    string     `bun:"employer_id,notnull" json:"employer_id,omitempty"`
	Active        bool       `bun:"active,notnull" json:"active"`
	AccessUntil   *time.Time `bun:"access_until,nullzero" json:"access_until,omitempty"`
	ExpiredAt     *time.Time `bun:"expired_at,nullzero" json:"expired_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Notification is the record emitted when a scheduled entity goes live. It
// is written after the entity update as the second step of a two-step saga;
// delivery is at-least-once, not exactly-once.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Kind          string     `bun:"kind,notnull" json:"kind,omitempty"`
	EntityID      uuid.UUID  `bun:"entity_id,nullzero,type:uuid" json:"entity_id,omitempty"`
	Message       string     `bun:"message,notnull" json:"message,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
