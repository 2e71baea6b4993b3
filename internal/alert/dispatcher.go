// Package alert routes detected changes to the change log and notification
// channels according to each monitor's alert threshold.
package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/citewatch/citewatch/internal/metrics"
	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store"
)

// Dispatcher persists changes and fans them out to notifiers. Either channel
// may be nil (not configured); dispatch degrades to logging in that case.
type Dispatcher struct {
	changes store.Changes
	push    PushNotifier
	email   EmailSender
	met     *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewDispatcher wires the dispatcher's collaborators.
func NewDispatcher(changes store.Changes, push PushNotifier, email EmailSender, met *metrics.Metrics, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{changes: changes, push: push, email: email, met: met, log: log, now: time.Now}
}

// Dispatch appends every change to the append-only log, then notifies.
// Log-append failures are logged and swallowed: persistence is best-effort
// and must never fail an otherwise-successful check. A push notification
// fires whenever any change is high or critical, regardless of threshold;
// email fires only for immediate-threshold monitors with such a change.
func (d *Dispatcher) Dispatch(ctx context.Context, mon *model.Monitor, changes []model.Change) {
	if len(changes) == 0 {
		return
	}

	for i := range changes {
		changes[i].MonitorID = mon.ID
		if err := d.changes.Append(ctx, &changes[i]); err != nil {
			d.log.Error().Err(err).
				Str("monitor_id", mon.ID).
				Str("change_type", string(changes[i].Type)).
				Msg("change log append failed")
		}
		if d.met != nil {
			d.met.ChangesDetected.WithLabelValues(string(changes[i].Type)).Inc()
		}
	}

	urgent := hasUrgent(changes)
	if !urgent {
		return
	}

	payload := &AlertPayload{
		MonitorID: mon.ID,
		Query:     mon.Query,
		Domain:    mon.Domain,
		Changes:   changes,
		SentAt:    d.now(),
	}

	if d.push != nil {
		if err := d.push.Push(ctx, mon.UserID, payload); err != nil {
			d.log.Error().Err(err).Str("monitor_id", mon.ID).Msg("push notification failed")
		} else if d.met != nil {
			d.met.AlertsSentTotal.WithLabelValues("push").Inc()
		}
	}

	// TODO: route hourly/daily monitors through a digest batcher instead of
	// skipping email entirely.
	if mon.AlertThreshold == model.ThresholdImmediate && d.email != nil {
		if err := d.email.Send(ctx, mon.UserID, payload); err != nil {
			d.log.Error().Err(err).Str("monitor_id", mon.ID).Msg("email notification failed")
		} else if d.met != nil {
			d.met.AlertsSentTotal.WithLabelValues("email").Inc()
		}
	}
}

func hasUrgent(changes []model.Change) bool {
	for _, c := range changes {
		if c.Severity == model.SeverityHigh || c.Severity == model.SeverityCritical {
			return true
		}
	}
	return false
}
