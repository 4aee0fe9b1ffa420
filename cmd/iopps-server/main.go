package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	iopps "github.com/wingchucks/iopps-sub007"
	"github.com/wingchucks/iopps-sub007/lifecycle"
	"github.com/wingchucks/iopps-sub007/metrics"
	"github.com/wingchucks/iopps-sub007/middleware/sessionguard"
	"github.com/wingchucks/iopps-sub007/notify"
	"github.com/wingchucks/iopps-sub007/server"
)

// Config is loaded once from the environment and injected everywhere.
// Initialization order: config, database, stores, services, server.
type Config struct {
	ListenAddr        string
	DatabaseDSN       string
	SessionSigningKey string
	TokenIssuer       string
	TokenAudience     string
	ProviderJWKSURL   string
	CronSecret        string
	UnsubscribeSecret string
	SessionTTL        time.Duration
	UnsubscribeRate   float64
	UnsubscribeBurst  int
}

func loadConfig() Config {
	return Config{
		ListenAddr:        envOr("LISTEN_ADDR", ":8080"),
		DatabaseDSN:       envOr("DATABASE_DSN", "file:iopps.db?cache=shared&_pragma=journal_mode(WAL)"),
		SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),
		TokenIssuer:       envOr("TOKEN_ISSUER", "iopps"),
		TokenAudience:     envOr("TOKEN_AUDIENCE", "iopps-web"),
		ProviderJWKSURL:   os.Getenv("PROVIDER_JWKS_URL"),
		CronSecret:        os.Getenv("CRON_SECRET"),
		UnsubscribeSecret: os.Getenv("UNSUBSCRIBE_SECRET"),
		SessionTTL:        24 * time.Hour,
		UnsubscribeRate:   envFloat("UNSUBSCRIBE_RATE", 5),
		UnsubscribeBurst:  envInt("UNSUBSCRIBE_BURST", 10),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
		log.Fatalf("%s must be a positive number, got %q", key, v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Fatalf("%s must be a positive integer, got %q", key, v)
	}
	return fallback
}

func main() {
	cfg := loadConfig()
	logger := iopps.DefaultLogger()

	if cfg.SessionSigningKey == "" {
		log.Fatal("SESSION_SIGNING_KEY is required")
	}
	if cfg.CronSecret == "" {
		log.Fatal("CRON_SECRET is required")
	}
	if cfg.UnsubscribeSecret == "" {
		log.Fatal("UNSUBSCRIBE_SECRET is required")
	}

	db, err := lifecycle.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()

	store := lifecycle.NewStore(db).WithLogger(logger)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	preferences := notify.NewPreferences(db).WithLogger(logger)
	if err := preferences.EnsureSchema(ctx); err != nil {
		log.Fatal(err)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	tokenService := iopps.NewTokenService(
		[]byte(cfg.SessionSigningKey),
		cfg.SessionTTL,
		cfg.TokenIssuer,
		[]string{cfg.TokenAudience},
		logger,
	)

	var validator iopps.TokenValidator = tokenService
	if cfg.ProviderJWKSURL != "" {
		providerValidator, err := iopps.NewProviderValidator(cfg.ProviderJWKSURL, cfg.TokenIssuer, nil, logger)
		if err != nil {
			log.Fatal(err)
		}
		defer providerValidator.Close()
		validator = iopps.NewMultiTokenValidator(tokenService, providerValidator)
	}

	verifier := iopps.NewVerifier(validator).WithLogger(logger)
	expirer := lifecycle.NewExpirer(db,
		lifecycle.WithLogger(logger),
		lifecycle.WithRecorder(collector),
	)
	codec := notify.NewCodec([]byte(cfg.UnsubscribeSecret))

	guard := sessionguard.ConfigDefault
	guard.Logger = logger

	srv := server.New(server.Options{
		Verifier:         verifier,
		Expirer:          expirer,
		Store:            store,
		Preferences:      preferences,
		Codec:            codec,
		Guard:            &guard,
		Logger:           logger,
		Recorder:         collector,
		CronSecret:       cfg.CronSecret,
		UnsubscribeRate:  rate.Limit(cfg.UnsubscribeRate),
		UnsubscribeBurst: cfg.UnsubscribeBurst,
	})

	logger.Info("starting server", "addr", cfg.ListenAddr)
	if err := srv.Listen(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
