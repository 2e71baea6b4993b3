// Package citewatchservice boots the control-API service.
package citewatchservice

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/alert"
	"github.com/citewatch/citewatch/internal/api"
	"github.com/citewatch/citewatch/internal/cache"
	"github.com/citewatch/citewatch/internal/config"
	"github.com/citewatch/citewatch/internal/dedupe"
	"github.com/citewatch/citewatch/internal/logger"
	"github.com/citewatch/citewatch/internal/metrics"
	"github.com/citewatch/citewatch/internal/provider"
	"github.com/citewatch/citewatch/internal/ratelimit"
	"github.com/citewatch/citewatch/internal/retry"
	"github.com/citewatch/citewatch/internal/scheduler"
	"github.com/citewatch/citewatch/internal/services"
	"github.com/citewatch/citewatch/internal/store"
	"github.com/citewatch/citewatch/internal/store/memory"
	"github.com/citewatch/citewatch/internal/store/postgres"
)

// Run starts the citewatch HTTP service and blocks until shutdown or error.
func Run() error {
	log := logger.New("citewatch")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	if err := cfg.RequireProvider(); err != nil {
		log.Error().Err(err).Msg("Missing provider credentials")
		return err
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("serp_base_url", cfg.SerpBaseURL).
		Bool("postgres", cfg.PostgresDSN != "").
		Bool("redis", cfg.RedisURL != "").
		Msg("citewatch service starting")

	st, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sched, closeNotify, err := buildScheduler(cfg, st, log)
	if err != nil {
		return err
	}
	defer closeNotify()

	svc := services.NewMonitorService(st, sched)
	handler := api.NewMonitorHandler(svc, ratelimit.New(),
		ratelimit.Limit{Max: cfg.RateLimit, Window: cfg.RateWindow}, log)
	router := api.NewRouter(handler, cfg.APIToken)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down server")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}

// openStore selects the postgres driver when a DSN is configured, otherwise
// the in-memory store (development only; state is lost on restart).
func openStore(cfg *config.Config, log zerolog.Logger) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("no postgres DSN configured; using in-memory store")
		return memory.New(), func() {}, nil
	}
	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("postgres unavailable")
		return nil, nil, err
	}
	return postgres.NewWithDB(db), func() { _ = db.Close() }, nil
}

// buildScheduler assembles the check pipeline shared by the API and worker.
func buildScheduler(cfg *config.Config, st store.Store, log zerolog.Logger) (*scheduler.Scheduler, func(), error) {
	met := metrics.New()

	var push alert.PushNotifier
	closeNotify := func() {}
	if cfg.RedisURL != "" {
		rp, err := alert.NewRedisPush(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("redis unavailable")
			return nil, nil, err
		}
		push = rp
		closeNotify = func() { _ = rp.Close() }
	}

	var email alert.EmailSender
	if cfg.EmailWebhookURL != "" {
		email = alert.NewWebhookEmail(cfg.EmailWebhookURL, 15*time.Second)
	}

	dispatcher := alert.NewDispatcher(st.Changes(), push, email, met, log)

	fetcher := provider.NewClient(provider.Config{
		APIKey:  cfg.SerpAPIKey,
		BaseURL: cfg.SerpBaseURL,
		Timeout: cfg.SerpTimeout,
		Locale:  cfg.SerpLocale,
	})

	sched := scheduler.New(st, fetcher, dispatcher,
		ratelimit.New(), cache.New(cfg.CacheCapacity), dedupe.New(), met, log,
		scheduler.Config{
			RateLimit:   ratelimit.Limit{Max: cfg.RateLimit, Window: cfg.RateWindow},
			CacheTTL:    cfg.CacheTTL,
			Retry:       retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay},
			EngineDelay: cfg.EngineCallDelay,
		})
	return sched, closeNotify, nil
}
