package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	iopps "github.com/wingchucks/iopps-sub007"
)

// ChannelSettings holds the per-channel delivery flags of one category.
type ChannelSettings struct {
	Email bool `json:"email"`
	InApp bool `json:"in_app"`
}

// Preference is a user's notification preference document: category to
// delivery channels. Created lazily with defaults on first read; mutated by
// explicit user action or by the unsubscribe flow.
type Preference struct {
	bun.BaseModel `bun:"table:notification_preferences,alias:pref"`
	ID            uuid.UUID                    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string                       `bun:"email,notnull,unique" json:"email,omitempty"`
	Channels      map[Category]ChannelSettings `bun:"channels" json:"channels,omitempty"`
	CreatedAt     *time.Time                   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time                   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Alert is a standing job-alert record. Unsubscribing from all or from
// job_alerts deactivates every active alert of the recipient.
type Alert struct {
	bun.BaseModel `bun:"table:job_alerts,alias:alr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Query         string     `bun:"query,notnull" json:"query,omitempty"`
	Active        bool       `bun:"active,notnull" json:"active"`
	DeactivatedAt *time.Time `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// DefaultChannels returns the preference defaults: every channel enabled
// for every concrete category.
func DefaultChannels() map[Category]ChannelSettings {
	channels := make(map[Category]ChannelSettings, 4)
	for _, category := range Categories() {
		if category == CategoryAll {
			continue
		}
		channels[category] = ChannelSettings{Email: true, InApp: true}
	}
	return channels
}

// Preferences is the store for preference documents and alert records.
type Preferences struct {
	db     *bun.DB
	logger iopps.Logger
	now    func() time.Time
}

// NewPreferences returns a Preferences store over the given handle.
func NewPreferences(db *bun.DB) *Preferences {
	return &Preferences{db: db, logger: iopps.DefaultLogger(), now: time.Now}
}

// WithLogger overrides the logger.
func (p *Preferences) WithLogger(logger iopps.Logger) *Preferences {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithClock injects a custom clock (useful for tests).
func (p *Preferences) WithClock(clock func() time.Time) *Preferences {
	if clock != nil {
		p.now = clock
	}
	return p
}

// EnsureSchema creates the notify tables when they do not exist.
func (p *Preferences) EnsureSchema(ctx context.Context) error {
	for _, model := range []any{(*Preference)(nil), (*Alert)(nil)} {
		if _, err := p.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to create notify schema")
		}
	}
	return nil
}

// Get loads the preference document for an email, creating it with defaults
// on first read.
func (p *Preferences) Get(ctx context.Context, email string) (*Preference, error) {
	pref := new(Preference)
	err := p.db.NewSelect().Model(pref).Where("email = ?", email).Scan(ctx)
	if err == nil {
		return pref, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load preferences")
	}

	now := p.now()
	pref = &Preference{
		ID:        uuid.New(),
		Email:     email,
		Channels:  DefaultChannels(),
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if _, err := p.db.NewInsert().Model(pref).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create default preferences")
	}
	return pref, nil
}

// Update replaces the channel map by explicit user action. Unknown
// categories are rejected before any write.
func (p *Preferences) Update(ctx context.Context, email string, channels map[Category]ChannelSettings) (*Preference, error) {
	for category := range channels {
		if _, ok := ParseCategory(string(category)); !ok || category == CategoryAll {
			return nil, iopps.ValidationError(errors.New("unknown notification category: "+string(category), errors.CategoryValidation))
		}
	}

	pref, err := p.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	now := p.now()
	for category, settings := range channels {
		pref.Channels[category] = settings
	}
	pref.UpdatedAt = &now

	if _, err := p.db.NewUpdate().Model(pref).
		Column("channels", "updated_at").
		Where("id = ?", pref.ID).
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update preferences")
	}
	return pref, nil
}

// Unsubscribe applies a verified opt-out: CategoryAll forces every channel
// off; any other category forces off exactly its own channels. Opting out of
// all or of job alerts additionally deactivates the recipient's standing
// alert records in the same operation.
func (p *Preferences) Unsubscribe(ctx context.Context, email string, category Category) (*Preference, error) {
	pref, err := p.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if category == CategoryAll {
		for c := range pref.Channels {
			pref.Channels[c] = ChannelSettings{}
		}
	} else {
		pref.Channels[category] = ChannelSettings{}
	}
	pref.UpdatedAt = &now

	if _, err := p.db.NewUpdate().Model(pref).
		Column("channels", "updated_at").
		Where("id = ?", pref.ID).
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to apply unsubscribe")
	}

	if category == CategoryAll || category == CategoryJobAlerts {
		if err := p.deactivateAlerts(ctx, email, now); err != nil {
			return nil, err
		}
	}

	return pref, nil
}

// ActiveAlerts lists the recipient's active alert records.
func (p *Preferences) ActiveAlerts(ctx context.Context, email string) ([]*Alert, error) {
	var alerts []*Alert
	err := p.db.NewSelect().Model(&alerts).
		Where("email = ?", email).
		Where("active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list alerts")
	}
	return alerts, nil
}

func (p *Preferences) deactivateAlerts(ctx context.Context, email string, now time.Time) error {
	_, err := p.db.NewUpdate().Model((*Alert)(nil)).
		Set("active = ?", false).
		Set("deactivated_at = ?", now).
		Set("updated_at = ?", now).
		Where("email = ?", email).
		Where("active = ?", true).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to deactivate alerts")
	}
	return nil
}
