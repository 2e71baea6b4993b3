package alert

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citewatch/citewatch/internal/model"
	"github.com/citewatch/citewatch/internal/store/memory"
)

type fakePush struct {
	calls []*AlertPayload
	err   error
}

func (f *fakePush) Push(ctx context.Context, userID string, p *AlertPayload) error {
	f.calls = append(f.calls, p)
	return f.err
}

type fakeEmail struct {
	calls []*AlertPayload
	err   error
}

func (f *fakeEmail) Send(ctx context.Context, userID string, p *AlertPayload) error {
	f.calls = append(f.calls, p)
	return f.err
}

func change(sev model.Severity) model.Change {
	return model.Change{
		Engine:     "google",
		Type:       model.ChangeAnswerChanged,
		Severity:   sev,
		DetectedAt: time.Now(),
	}
}

func TestDispatchAlwaysAppendsToChangeLog(t *testing.T) {
	st := memory.New()
	mon, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID: "u1", Query: "best crm", Domain: "example.com",
		Engines: []string{"google"}, IsActive: true,
		AlertThreshold: model.ThresholdDaily,
	})
	require.NoError(t, err)

	d := NewDispatcher(st.Changes(), nil, nil, nil, zerolog.Nop())
	d.Dispatch(context.Background(), mon, []model.Change{change(model.SeverityLow), change(model.SeverityMedium)})

	logged, err := st.Changes().ListByMonitor(context.Background(), mon.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 2, "every change is logged regardless of severity or threshold")
	for _, c := range logged {
		assert.Equal(t, mon.ID, c.MonitorID)
	}
}

func TestPushFiresOnUrgentRegardlessOfThreshold(t *testing.T) {
	st := memory.New()
	mon, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID: "u1", Query: "best crm", Domain: "example.com",
		Engines: []string{"google"}, IsActive: true,
		AlertThreshold: model.ThresholdDaily,
	})
	require.NoError(t, err)

	push := &fakePush{}
	email := &fakeEmail{}
	d := NewDispatcher(st.Changes(), push, email, nil, zerolog.Nop())
	d.Dispatch(context.Background(), mon, []model.Change{change(model.SeverityLow), change(model.SeverityCritical)})

	require.Len(t, push.calls, 1, "critical change must push even on a daily-threshold monitor")
	assert.Equal(t, mon.ID, push.calls[0].MonitorID)
	assert.Len(t, push.calls[0].Changes, 2)
	assert.Empty(t, email.calls, "email is reserved for immediate-threshold monitors")
}

func TestEmailRequiresImmediateThresholdAndUrgency(t *testing.T) {
	st := memory.New()
	mon, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID: "u1", Query: "best crm", Domain: "example.com",
		Engines: []string{"google"}, IsActive: true,
		AlertThreshold: model.ThresholdImmediate,
	})
	require.NoError(t, err)

	push := &fakePush{}
	email := &fakeEmail{}
	d := NewDispatcher(st.Changes(), push, email, nil, zerolog.Nop())
	d.Dispatch(context.Background(), mon, []model.Change{change(model.SeverityHigh)})

	assert.Len(t, push.calls, 1)
	assert.Len(t, email.calls, 1)
}

func TestNoNotificationForLowSeverityOnly(t *testing.T) {
	st := memory.New()
	mon, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID: "u1", Query: "best crm", Domain: "example.com",
		Engines: []string{"google"}, IsActive: true,
		AlertThreshold: model.ThresholdImmediate,
	})
	require.NoError(t, err)

	push := &fakePush{}
	email := &fakeEmail{}
	d := NewDispatcher(st.Changes(), push, email, nil, zerolog.Nop())
	d.Dispatch(context.Background(), mon, []model.Change{change(model.SeverityLow), change(model.SeverityMedium)})

	assert.Empty(t, push.calls)
	assert.Empty(t, email.calls)

	logged, err := st.Changes().ListByMonitor(context.Background(), mon.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 2)
}

func TestNotifierFailuresAreSwallowed(t *testing.T) {
	st := memory.New()
	mon, err := st.Monitors().Create(context.Background(), &model.Monitor{
		UserID: "u1", Query: "best crm", Domain: "example.com",
		Engines: []string{"google"}, IsActive: true,
		AlertThreshold: model.ThresholdImmediate,
	})
	require.NoError(t, err)

	push := &fakePush{err: errors.New("redis down")}
	email := &fakeEmail{err: errors.New("webhook down")}
	d := NewDispatcher(st.Changes(), push, email, nil, zerolog.Nop())

	// Must not panic or surface the failure; the change log already has the row.
	d.Dispatch(context.Background(), mon, []model.Change{change(model.SeverityCritical)})

	logged, err := st.Changes().ListByMonitor(context.Background(), mon.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logged, 1)
}
