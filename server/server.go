// Package server exposes the HTTP surface: cron endpoints for the lifecycle
// jobs, the admin API, the unauthenticated unsubscribe callback, and the
// authenticated preference routes.
package server

import (
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	iopps "github.com/wingchucks/iopps-sub007"
	"github.com/wingchucks/iopps-sub007/lifecycle"
	"github.com/wingchucks/iopps-sub007/middleware/sessionguard"
	"github.com/wingchucks/iopps-sub007/notify"
)

// Recorder receives boundary outcomes. The metrics package provides the
// Prometheus-backed implementation.
type Recorder interface {
	RecordAuthDecision(outcome string)
	RecordUnsubscribe(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthDecision(string) {}
func (noopRecorder) RecordUnsubscribe(string)  {}

// Options carries the explicitly constructed dependencies. Everything is
// injected at startup; the server holds no lazy singletons.
type Options struct {
	Verifier    *iopps.Verifier
	Expirer     *lifecycle.Expirer
	Store       *lifecycle.Store
	Preferences *notify.Preferences
	Codec       *notify.Codec

	// Guard, when set, mounts the edge session guard over page routes.
	Guard *sessionguard.Config

	Logger   iopps.Logger
	Recorder Recorder

	// CronSecret authorizes the scheduler's calls to /api/cron.
	CronSecret string

	// UnsubscribeRate/Burst bound the per-IP rate of the unauthenticated
	// unsubscribe callback. Zero values fall back to 5 req/s, burst 10.
	UnsubscribeRate  rate.Limit
	UnsubscribeBurst int

	Now func() time.Time
}

// Server is the HTTP application.
type Server struct {
	app         *fiber.App
	verifier    *iopps.Verifier
	expirer     *lifecycle.Expirer
	store       *lifecycle.Store
	preferences *notify.Preferences
	codec       *notify.Codec
	logger      iopps.Logger
	recorder    Recorder
	cronSecret  []byte
	limiter     *ipLimiter
	now         func() time.Time
}

// New builds the Fiber application and registers every route.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = iopps.DefaultLogger()
	}
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.UnsubscribeRate <= 0 {
		opts.UnsubscribeRate = rate.Limit(5)
	}
	if opts.UnsubscribeBurst <= 0 {
		opts.UnsubscribeBurst = 10
	}

	s := &Server{
		verifier:    opts.Verifier,
		expirer:     opts.Expirer,
		store:       opts.Store,
		preferences: opts.Preferences,
		codec:       opts.Codec,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
		cronSecret:  []byte(opts.CronSecret),
		limiter:     newIPLimiter(opts.UnsubscribeRate, opts.UnsubscribeBurst, opts.Now),
		now:         opts.Now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "iopps",
		ErrorHandler: s.errorHandler,
	})

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if opts.Guard != nil {
		s.app.Use(sessionguard.New(*opts.Guard))
	}

	cron := s.app.Group("/api/cron", s.requireCron)
	cron.Post("/expire-jobs", s.cronHandler(lifecycle.FamilyJobs, s.expirer.ExpireJobs))
	cron.Post("/expire-scholarships", s.cronHandler(lifecycle.FamilyScholarships, s.expirer.ExpireScholarships))
	cron.Post("/expire-events", s.cronHandler(lifecycle.FamilyEvents, s.expirer.ExpireEvents))
	cron.Post("/expire-subscriptions", s.cronHandler(lifecycle.FamilySubscriptions, s.expirer.ExpireSubscriptions))
	cron.Post("/expire-vendor-features", s.cronHandler(lifecycle.FamilyVendorFeatures, s.expirer.ExpireVendorFeatures))
	cron.Post("/expire-talent-access", s.cronHandler(lifecycle.FamilyTalentAccess, s.expirer.ExpireTalentAccess))
	cron.Post("/publish-scheduled", s.cronHandler(lifecycle.FamilyPublished, s.expirer.PublishScheduled))
	cron.Post("/expire-all", s.cronExpireAll)

	admin := s.app.Group("/api/admin", s.requireAdmin)
	admin.Get("/stats", s.adminStats)
	admin.Post("/jobs/:id/override", s.adminJobOverride)
	admin.Post("/jobs/:id/expire", s.adminJobExpire)

	prefs := s.app.Group("/api/preferences", s.requireAuth)
	prefs.Get("/", s.preferencesGet)
	prefs.Put("/", s.preferencesUpdate)

	s.app.Get("/unsubscribe", s.rateLimit, s.unsubscribeVerify)
	s.app.Post("/unsubscribe", s.rateLimit, s.unsubscribeApply)

	return s
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the given address until the listener fails.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := richErr.Code
		if status <= 0 {
			status = fiber.StatusInternalServerError
		}
		s.logger.Info("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"error", richErr.Message,
			"text_code", richErr.TextCode,
		)
		return c.Status(status).JSON(fiber.Map{"error": richErr.Message})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	s.logger.Error("unhandled request error", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
