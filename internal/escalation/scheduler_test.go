package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"manas-backend/internal/models"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu       sync.Mutex
	alerts   map[string]*models.CrisisAlert
	listErr  error
	markCall int
}

func newFakeSource(alerts ...*models.CrisisAlert) *fakeSource {
	m := make(map[string]*models.CrisisAlert)
	for _, a := range alerts {
		m[a.ID] = a
	}
	return &fakeSource{alerts: m}
}

func (f *fakeSource) ListPendingOlderThan(cutoff time.Time) ([]*models.CrisisAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.CrisisAlert
	for _, a := range f.alerts {
		if a.Status == models.AlertStatusPending && !a.LastDetectedAt.After(cutoff) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSource) MarkEscalated(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCall++
	a, ok := f.alerts[id]
	if !ok || a.Status != models.AlertStatusPending {
		return false, nil
	}
	a.Status = models.AlertStatusEscalated
	a.EscalationCount++
	return true, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeNotifier) NotifyEscalation(_ context.Context, alert *models.CrisisAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, alert.ID)
	return nil
}

func pendingAlert(id string, age time.Duration) *models.CrisisAlert {
	return &models.CrisisAlert{
		ID:              id,
		UserID:          1,
		SessionID:       "s-" + id,
		Severity:        8,
		Status:          models.AlertStatusPending,
		FirstDetectedAt: time.Now().Add(-age),
		LastDetectedAt:  time.Now().Add(-age),
	}
}

func newTestScheduler(src AlertSource, n *fakeNotifier) *Scheduler {
	return NewScheduler(src, n, NewTickerTrigger(time.Hour), 30*time.Minute, zap.NewNop())
}

func TestTickEscalatesOverdueAlerts(t *testing.T) {
	src := newFakeSource(pendingAlert("a1", time.Hour), pendingAlert("a2", time.Minute))
	n := &fakeNotifier{}
	s := newTestScheduler(src, n)

	s.tick(context.Background())

	if len(n.calls) != 1 || n.calls[0] != "a1" {
		t.Fatalf("expected only overdue alert notified, got %v", n.calls)
	}
	if src.alerts["a1"].Status != models.AlertStatusEscalated {
		t.Fatalf("a1 not escalated: %s", src.alerts["a1"].Status)
	}
	if src.alerts["a2"].Status != models.AlertStatusPending {
		t.Fatal("fresh alert must stay pending")
	}
}

func TestBackToBackTicksEscalateOnce(t *testing.T) {
	src := newFakeSource(pendingAlert("a1", time.Hour))
	n := &fakeNotifier{}
	s := newTestScheduler(src, n)

	s.tick(context.Background())
	s.tick(context.Background())

	if len(n.calls) != 1 {
		t.Fatalf("expected exactly one notification, got %d", len(n.calls))
	}
	if src.alerts["a1"].EscalationCount != 1 {
		t.Fatalf("expected escalation_count 1, got %d", src.alerts["a1"].EscalationCount)
	}
}

func TestNotifyFailureKeepsAlertPending(t *testing.T) {
	src := newFakeSource(pendingAlert("a1", time.Hour))
	n := &fakeNotifier{err: errors.New("paging channel down")}
	s := newTestScheduler(src, n)

	s.tick(context.Background())

	if src.alerts["a1"].Status != models.AlertStatusPending {
		t.Fatal("alert must stay pending when notification fails")
	}

	n.mu.Lock()
	n.err = nil
	n.mu.Unlock()
	s.tick(context.Background())

	if src.alerts["a1"].Status != models.AlertStatusEscalated {
		t.Fatal("alert must escalate on the next pass after notification recovers")
	}
}

func TestNotifyFailureDoesNotStopThePass(t *testing.T) {
	a1 := pendingAlert("a1", time.Hour)
	a2 := pendingAlert("a2", 2*time.Hour)
	src := newFakeSource(a1, a2)

	n := &flakyNotifier{failID: "a2"}
	s := NewScheduler(src, n, NewTickerTrigger(time.Hour), 30*time.Minute, zap.NewNop())

	s.tick(context.Background())

	if src.alerts["a1"].Status != models.AlertStatusEscalated {
		t.Fatal("healthy alert must escalate even when another notification fails")
	}
	if src.alerts["a2"].Status != models.AlertStatusPending {
		t.Fatal("failed notification must leave its alert pending")
	}
}

type flakyNotifier struct {
	failID string
}

func (f *flakyNotifier) NotifyEscalation(_ context.Context, alert *models.CrisisAlert) error {
	if alert.ID == f.failID {
		return errors.New("delivery failed")
	}
	return nil
}

func TestRunSkipsOverlappingTrigger(t *testing.T) {
	src := newFakeSource()
	n := &fakeNotifier{}
	trigger := &manualTrigger{c: make(chan time.Time)}
	s := NewScheduler(src, n, trigger, 30*time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	trigger.c <- time.Now()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

type manualTrigger struct {
	c chan time.Time
}

func (m *manualTrigger) C() <-chan time.Time { return m.c }
func (m *manualTrigger) Stop()               {}
