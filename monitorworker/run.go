// Package monitorworker boots the periodic sweep worker.
package monitorworker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citewatch/citewatch/internal/alert"
	"github.com/citewatch/citewatch/internal/cache"
	"github.com/citewatch/citewatch/internal/config"
	"github.com/citewatch/citewatch/internal/dedupe"
	"github.com/citewatch/citewatch/internal/logger"
	"github.com/citewatch/citewatch/internal/metrics"
	"github.com/citewatch/citewatch/internal/provider"
	"github.com/citewatch/citewatch/internal/ratelimit"
	"github.com/citewatch/citewatch/internal/retry"
	"github.com/citewatch/citewatch/internal/scheduler"
	"github.com/citewatch/citewatch/internal/store/postgres"
	"github.com/citewatch/citewatch/internal/worker"
)

// Run starts the monitor worker and blocks until shutdown or error.
func Run() error {
	log := logger.New("monitor-worker")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}
	if err := cfg.RequireProvider(); err != nil {
		log.Error().Err(err).Msg("provider credentials")
		return err
	}

	// The worker shares nothing in-process with the API service, so it needs
	// durable state: postgres is mandatory here.
	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres open")
		return err
	}
	defer func() { _ = db.Close() }()
	st := postgres.NewWithDB(db)

	met := metrics.New()

	var push alert.PushNotifier
	if cfg.RedisURL != "" {
		rp, err := alert.NewRedisPush(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("redis open")
			return err
		}
		defer func() { _ = rp.Close() }()
		push = rp
	}
	var email alert.EmailSender
	if cfg.EmailWebhookURL != "" {
		email = alert.NewWebhookEmail(cfg.EmailWebhookURL, 15*time.Second)
	}

	fetcher := provider.NewClient(provider.Config{
		APIKey:  cfg.SerpAPIKey,
		BaseURL: cfg.SerpBaseURL,
		Timeout: cfg.SerpTimeout,
		Locale:  cfg.SerpLocale,
	})

	sched := scheduler.New(st, fetcher,
		alert.NewDispatcher(st.Changes(), push, email, met, log),
		ratelimit.New(), cache.New(cfg.CacheCapacity), dedupe.New(), met, log,
		scheduler.Config{
			RateLimit:   ratelimit.Limit{Max: cfg.RateLimit, Window: cfg.RateWindow},
			CacheTTL:    cfg.CacheTTL,
			Retry:       retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay},
			EngineDelay: cfg.EngineCallDelay,
		})

	w := worker.New(sched, worker.Config{
		Interval:     cfg.SweepInterval,
		SweepTimeout: cfg.CheckTimeout,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("monitor worker exit")
		return err
	}
	return nil
}
