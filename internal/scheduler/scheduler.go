// Package scheduler drives the fetch -> diff -> classify -> alert -> persist
// pipeline for active monitors.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/alert"
	"github.com/citewatch/citewatch/internal/cache"
	"github.com/citewatch/citewatch/internal/dedupe"
	"github.com/citewatch/citewatch/internal/diff"
	"github.com/citewatch/citewatch/internal/metrics"
	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/provider"
	"github.com/citewatch/citewatch/internal/ratelimit"
	"github.com/citewatch/citewatch/internal/retry"
	"github.com/citewatch/citewatch/internal/store"
)

// Config carries the pipeline tunables.
type Config struct {
	RateLimit   ratelimit.Limit
	CacheTTL    time.Duration
	Retry       retry.Policy
	EngineDelay time.Duration
}

// Scheduler runs check cycles. One cycle per monitor/engine walks
// idle -> admitted -> fetching -> diffing -> classified -> (alerted | no-op)
// -> persisted; monitors and engines are processed sequentially, and a
// failure on one engine never aborts the rest of the sweep.
type Scheduler struct {
	store      store.Store
	fetcher    provider.Fetcher
	dispatcher *alert.Dispatcher
	limiter    *ratelimit.Limiter
	cache      *cache.Cache
	dedup      *dedupe.Deduper
	met        *metrics.Metrics
	log        zerolog.Logger
	cfg        Config

	sleep func(ctx context.Context, d time.Duration)
}

// New wires a scheduler from explicit, injected components.
func New(st store.Store, fetcher provider.Fetcher, dispatcher *alert.Dispatcher,
	limiter *ratelimit.Limiter, c *cache.Cache, dedup *dedupe.Deduper,
	met *metrics.Metrics, log zerolog.Logger, cfg Config) *Scheduler {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = retry.DefaultPolicy
	}
	return &Scheduler{
		store:      st,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		limiter:    limiter,
		cache:      c,
		dedup:      dedup,
		met:        met,
		log:        log,
		cfg:        cfg,
		sleep:      sleepCtx,
	}
}

// MonitorResult summarizes one monitor's check cycle.
type MonitorResult struct {
	MonitorID     string         `json:"monitorId"`
	Query         string         `json:"query"`
	Domain        string         `json:"domain"`
	Changes       []model.Change `json:"changes"`
	FailedEngines []string       `json:"failedEngines,omitempty"`
}

// SweepResult aggregates a whole sweep.
type SweepResult struct {
	MonitorsChecked int             `json:"monitorsChecked"`
	TotalChanges    int             `json:"totalChanges"`
	Results         []MonitorResult `json:"results"`
}

// Sweep checks the given monitor, or every active monitor for the user when
// monitorID is empty. Per-monitor failures are recorded and skipped.
func (s *Scheduler) Sweep(ctx context.Context, userID, monitorID string) (*SweepResult, error) {
	var mons []*model.Monitor
	if monitorID != "" {
		mon, err := s.store.Monitors().Get(ctx, userID, monitorID)
		if err != nil {
			return nil, err
		}
		mons = append(mons, mon)
	} else {
		var err error
		mons, err = s.store.Monitors().ListActiveByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	return s.sweep(ctx, mons), nil
}

// SweepAll checks every active monitor across all owners. Used by the
// background worker.
func (s *Scheduler) SweepAll(ctx context.Context) (*SweepResult, error) {
	mons, err := s.store.Monitors().ListAllActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.sweep(ctx, mons), nil
}

func (s *Scheduler) sweep(ctx context.Context, mons []*model.Monitor) *SweepResult {
	out := &SweepResult{}
	for _, mon := range mons {
		if ctx.Err() != nil {
			break
		}
		res := s.CheckMonitor(ctx, mon)
		out.MonitorsChecked++
		out.TotalChanges += len(res.Changes)
		out.Results = append(out.Results, *res)
	}
	return out
}

// CheckMonitor runs the check cycle for each of the monitor's engines in
// order, pacing consecutive provider calls by EngineDelay.
func (s *Scheduler) CheckMonitor(ctx context.Context, mon *model.Monitor) *MonitorResult {
	res := &MonitorResult{MonitorID: mon.ID, Query: mon.Query, Domain: mon.Domain}

	for i, engine := range mon.Engines {
		if i > 0 && s.cfg.EngineDelay > 0 {
			s.sleep(ctx, s.cfg.EngineDelay)
		}
		if ctx.Err() != nil {
			res.FailedEngines = append(res.FailedEngines, engine)
			continue
		}

		changes, err := s.checkEngine(ctx, mon, engine)
		if err != nil {
			if s.met != nil {
				s.met.CheckFailuresTotal.Inc()
			}
			s.log.Warn().Err(err).
				Str("monitor_id", mon.ID).
				Str("engine", engine).
				Msg("engine check failed; continuing sweep")
			res.FailedEngines = append(res.FailedEngines, engine)
			continue
		}
		res.Changes = append(res.Changes, changes...)
	}
	return res
}

// checkEngine runs one engine's cycle under the deduplicator. The whole
// cycle is the deduplicated unit, not just the fetch: joined callers share
// one admission charge, one diff, one dispatch, and one persist, so a change
// is never logged or notified twice by concurrent checks.
func (s *Scheduler) checkEngine(ctx context.Context, mon *model.Monitor, engine string) ([]model.Change, error) {
	key := mon.ID + ":" + engine
	v, err := s.dedup.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return s.runCheck(ctx, mon, engine)
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Change), nil
}

// runCheck executes one complete check cycle for a monitor/engine pair.
func (s *Scheduler) runCheck(ctx context.Context, mon *model.Monitor, engine string) ([]model.Change, error) {
	if s.met != nil {
		s.met.ChecksTotal.Inc()
	}

	// Admission: one budget per owner, shared across their monitors. Charged
	// here so callers joining an in-flight check do not burn extra tokens.
	if s.limiter != nil {
		if _, err := s.limiter.Allow("user:"+mon.UserID, s.cfg.RateLimit); err != nil {
			if s.met != nil {
				s.met.RateLimitedTotal.Inc()
			}
			return nil, err
		}
	}

	snap, err := s.fetchSnapshot(ctx, mon.Query, mon.Domain, engine)
	if err != nil {
		if errors.Is(err, model.ErrProvider) && s.met != nil {
			s.met.ProviderErrorsTotal.Inc()
		}
		return nil, err
	}

	// Each engine diffs against its own baseline; a missing entry means this
	// check seeds that engine.
	changes := diff.Compare(mon.LastSnapshots[engine], snap, mon.ChangeTypes)
	for i := range changes {
		changes[i].MonitorID = mon.ID
	}

	if len(changes) > 0 && s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, mon, changes)
	}

	// Persist after a successful fetch+diff only; failures are logged, never
	// surfaced, and the checksum makes a retried overwrite idempotent.
	if err := s.store.Monitors().UpdateCheckState(ctx, mon.UserID, mon.ID, snap, time.Now()); err != nil {
		s.log.Error().Err(err).
			Str("monitor_id", mon.ID).
			Str("engine", engine).
			Msg("snapshot persist failed")
	} else {
		if mon.LastSnapshots == nil {
			mon.LastSnapshots = make(map[string]*model.Snapshot)
		}
		mon.LastSnapshots[engine] = snap
	}

	return changes, nil
}

// fetchSnapshot consults the cache, then drives the fetcher under the retry
// policy.
func (s *Scheduler) fetchSnapshot(ctx context.Context, query, domain, engine string) (*model.Snapshot, error) {
	cacheKey := fmt.Sprintf("serp:%s:%s:%s", engine, query, domain)
	if s.cache != nil {
		if v, ok := s.cache.Get(cacheKey); ok {
			if s.met != nil {
				s.met.CacheHitsTotal.Inc()
			}
			return v.(*model.Snapshot), nil
		}
		if s.met != nil {
			s.met.CacheMissesTotal.Inc()
		}
	}

	var snap *model.Snapshot
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var ferr error
		snap, ferr = s.fetcher.Fetch(ctx, query, domain, engine)
		return ferr
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(cacheKey, snap, s.cfg.CacheTTL)
	}
	return snap, nil
}

// SeedSnapshot captures the initial snapshot for every engine of a new
// monitor through the same retry pipeline as scheduled checks. No diff is
// run: the first observation only establishes each engine's baseline. The
// primary (first) engine's snapshot is returned for the create response.
func (s *Scheduler) SeedSnapshot(ctx context.Context, mon *model.Monitor) (*model.Snapshot, error) {
	if len(mon.Engines) == 0 {
		return nil, fmt.Errorf("monitor %s has no engines: %w", mon.ID, model.ErrValidation)
	}
	var first *model.Snapshot
	for i, engine := range mon.Engines {
		if i > 0 && s.cfg.EngineDelay > 0 {
			s.sleep(ctx, s.cfg.EngineDelay)
		}
		snap, err := s.fetchSnapshot(ctx, mon.Query, mon.Domain, engine)
		if err != nil {
			return nil, err
		}
		if err := s.store.Monitors().UpdateCheckState(ctx, mon.UserID, mon.ID, snap, time.Now()); err != nil {
			s.log.Error().Err(err).
				Str("monitor_id", mon.ID).
				Str("engine", engine).
				Msg("seed snapshot persist failed")
		} else {
			if mon.LastSnapshots == nil {
				mon.LastSnapshots = make(map[string]*model.Snapshot)
			}
			mon.LastSnapshots[engine] = snap
		}
		if first == nil {
			first = snap
		}
	}
	return first, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
