// Package worker runs the periodic sweep that re-checks every active monitor.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/scheduler"
)

// Config controls sweep cadence and the per-sweep deadline.
type Config struct {
	Interval     time.Duration // time between sweeps
	SweepTimeout time.Duration // deadline for one whole sweep
}

// Worker triggers scheduler sweeps on a ticker. The scheduler itself is
// invocation-driven; this is the external periodic trigger.
type Worker struct {
	sched *scheduler.Scheduler
	cfg   Config
	log   zerolog.Logger
}

// New constructs a Worker from dependencies.
func New(sched *scheduler.Scheduler, cfg Config, log zerolog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.SweepTimeout <= 0 {
		cfg.SweepTimeout = 10 * time.Minute
	}
	return &Worker{sched: sched, cfg: cfg, log: log}
}

// Run starts the sweep loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Msg("monitor worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("monitor worker stopping")
			return ctx.Err()
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, w.cfg.SweepTimeout)
	defer cancel()

	res, err := w.sched.SweepAll(sctx)
	if err != nil {
		// Log and continue; the next tick retries from scratch.
		w.log.Error().Err(err).Msg("sweep failed")
		return
	}
	w.log.Info().
		Int("monitors_checked", res.MonitorsChecked).
		Int("total_changes", res.TotalChanges).
		Msg("sweep complete")
}
