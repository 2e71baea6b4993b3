// Package services orchestrates monitor use cases on top of the store and
// the check scheduler.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/scheduler"
	"github.com/citewatch/citewatch/internal/store"
)

// recentWindow bounds the change history returned by alert summaries.
const recentWindow = 7 * 24 * time.Hour

// MonitorService owns the monitor lifecycle.
type MonitorService struct {
	store store.Store
	sched *scheduler.Scheduler
}

// NewMonitorService wires the service.
func NewMonitorService(st store.Store, sched *scheduler.Scheduler) *MonitorService {
	return &MonitorService{store: st, sched: sched}
}

// CreateMonitorRequest carries the create_monitor payload.
type CreateMonitorRequest struct {
	UserID         string
	Query          string
	Domain         string
	Engines        []string
	ChangeTypes    []model.ChangeType
	AlertThreshold model.AlertThreshold
}

func (r *CreateMonitorRequest) validate() error {
	if r.UserID == "" {
		return fmt.Errorf("user_id is required: %w", model.ErrValidation)
	}
	if r.Query == "" {
		return fmt.Errorf("query is required: %w", model.ErrValidation)
	}
	if r.Domain == "" {
		return fmt.Errorf("domain is required: %w", model.ErrValidation)
	}
	switch r.AlertThreshold {
	case "", model.ThresholdImmediate, model.ThresholdHourly, model.ThresholdDaily:
	default:
		return fmt.Errorf("unknown alert_threshold %q: %w", r.AlertThreshold, model.ErrValidation)
	}
	for _, ct := range r.ChangeTypes {
		if !validChangeType(ct) {
			return fmt.Errorf("unknown change_type %q: %w", ct, model.ErrValidation)
		}
	}
	return nil
}

func validChangeType(ct model.ChangeType) bool {
	for _, t := range model.AllChangeTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// CreateMonitor registers a subscription and synchronously seeds its first
// snapshot so the next check has a baseline to diff against.
func (s *MonitorService) CreateMonitor(ctx context.Context, req CreateMonitorRequest) (*model.Monitor, *model.Snapshot, error) {
	if err := req.validate(); err != nil {
		return nil, nil, err
	}

	mon := &model.Monitor{
		UserID:         req.UserID,
		Query:          req.Query,
		Domain:         req.Domain,
		Engines:        req.Engines,
		ChangeTypes:    req.ChangeTypes,
		AlertThreshold: req.AlertThreshold,
		IsActive:       true,
	}
	if len(mon.Engines) == 0 {
		mon.Engines = []string{"google"}
	}
	if len(mon.ChangeTypes) == 0 {
		mon.ChangeTypes = append([]model.ChangeType(nil), model.AllChangeTypes...)
	}
	if mon.AlertThreshold == "" {
		mon.AlertThreshold = model.ThresholdImmediate
	}

	created, err := s.store.Monitors().Create(ctx, mon)
	if err != nil {
		return nil, nil, err
	}

	// SeedSnapshot fills created.LastSnapshots for every engine; the primary
	// engine's snapshot is echoed in the create response.
	snap, err := s.sched.SeedSnapshot(ctx, created)
	if err != nil {
		return nil, nil, err
	}
	return created, snap, nil
}

// CheckChanges runs a check sweep for one monitor, or all of the user's
// active monitors when monitorID is empty.
func (s *MonitorService) CheckChanges(ctx context.Context, userID, monitorID string) (*scheduler.SweepResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", model.ErrValidation)
	}
	return s.sched.Sweep(ctx, userID, monitorID)
}

// AlertSummary is the get_alerts response body.
type AlertSummary struct {
	ActiveMonitors int              `json:"activeMonitors"`
	RecentChanges  int              `json:"recentChanges"`
	Monitors       []*model.Monitor `json:"monitors"`
	Changes        []*model.Change  `json:"changes"`
}

// GetAlerts summarizes the user's monitors and their recent change history.
func (s *MonitorService) GetAlerts(ctx context.Context, userID string) (*AlertSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required: %w", model.ErrValidation)
	}
	mons, err := s.store.Monitors().ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	changes, err := s.store.Changes().ListRecentByUser(ctx, userID, time.Now().Add(-recentWindow))
	if err != nil {
		return nil, err
	}
	return &AlertSummary{
		ActiveMonitors: len(mons),
		RecentChanges:  len(changes),
		Monitors:       mons,
		Changes:        changes,
	}, nil
}

// UpdateMonitorRequest carries the mutable subscription fields; nil means
// leave unchanged.
type UpdateMonitorRequest struct {
	UserID         string
	MonitorID      string
	IsActive       *bool
	AlertThreshold *model.AlertThreshold
	ChangeTypes    []model.ChangeType
}

// UpdateMonitor patches the subscription. Clearing the active flag is the
// soft-delete path.
func (s *MonitorService) UpdateMonitor(ctx context.Context, req UpdateMonitorRequest) error {
	if req.UserID == "" || req.MonitorID == "" {
		return fmt.Errorf("user_id and monitor_id are required: %w", model.ErrValidation)
	}
	mon, err := s.store.Monitors().Get(ctx, req.UserID, req.MonitorID)
	if err != nil {
		return err
	}
	if req.IsActive != nil {
		mon.IsActive = *req.IsActive
	}
	if req.AlertThreshold != nil {
		switch *req.AlertThreshold {
		case model.ThresholdImmediate, model.ThresholdHourly, model.ThresholdDaily:
			mon.AlertThreshold = *req.AlertThreshold
		default:
			return fmt.Errorf("unknown alert_threshold %q: %w", *req.AlertThreshold, model.ErrValidation)
		}
	}
	if req.ChangeTypes != nil {
		for _, ct := range req.ChangeTypes {
			if !validChangeType(ct) {
				return fmt.Errorf("unknown change_type %q: %w", ct, model.ErrValidation)
			}
		}
		mon.ChangeTypes = req.ChangeTypes
	}
	return s.store.Monitors().Update(ctx, mon)
}

// DeleteMonitor hard-deletes the monitor on explicit request.
func (s *MonitorService) DeleteMonitor(ctx context.Context, userID, monitorID string) error {
	if userID == "" || monitorID == "" {
		return fmt.Errorf("user_id and monitor_id are required: %w", model.ErrValidation)
	}
	return s.store.Monitors().Delete(ctx, userID, monitorID)
}
