package escalation

import (
	"context"
	"sync/atomic"
	"time"

	"manas-backend/internal/models"
	"manas-backend/internal/notifier"

	"go.uber.org/zap"
)

// AlertSource is the slice of the alert repository the scheduler needs.
type AlertSource interface {
	ListPendingOlderThan(cutoff time.Time) ([]*models.CrisisAlert, error)
	MarkEscalated(id string) (bool, error)
}

// Trigger drives scheduler passes. The default is a plain ticker; tests plug
// in a manual channel.
type Trigger interface {
	C() <-chan time.Time
	Stop()
}

type tickerTrigger struct {
	ticker *time.Ticker
}

func NewTickerTrigger(interval time.Duration) Trigger {
	return &tickerTrigger{ticker: time.NewTicker(interval)}
}

func (t *tickerTrigger) C() <-chan time.Time { return t.ticker.C }
func (t *tickerTrigger) Stop()               { t.ticker.Stop() }

// Scheduler escalates crisis alerts that stayed pending past the threshold.
// Each pass notifies the on-call channel first and only then marks the alert
// escalated, so a failed notification leaves the alert pending for the next
// pass. Passes are single-flight: a trigger firing while one is running is
// skipped.
type Scheduler struct {
	store     AlertSource
	notifier  notifier.Notifier
	trigger   Trigger
	threshold time.Duration
	now       func() time.Time
	inFlight  atomic.Bool
	logger    *zap.Logger
}

func NewScheduler(store AlertSource, n notifier.Notifier, trigger Trigger, threshold time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		notifier:  n,
		trigger:   trigger,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// Run processes trigger fires until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.trigger.Stop()
	s.logger.Info("Escalation scheduler started",
		zap.Duration("threshold", s.threshold))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Escalation scheduler stopped")
			return
		case <-s.trigger.C():
			if !s.inFlight.CompareAndSwap(false, true) {
				s.logger.Warn("Previous escalation pass still running, skipping tick")
				continue
			}
			go func() {
				defer s.inFlight.Store(false)
				s.tick(ctx)
			}()
		}
	}
}

// tick escalates every currently-qualifying alert once. A late or delayed
// trigger therefore catches up in a single pass.
func (s *Scheduler) tick(ctx context.Context) {
	cutoff := s.now().Add(-s.threshold)
	alerts, err := s.store.ListPendingOlderThan(cutoff)
	if err != nil {
		s.logger.Error("Failed to list pending alerts", zap.Error(err))
		return
	}
	if len(alerts) == 0 {
		return
	}
	s.logger.Info("Escalating unresolved alerts", zap.Int("count", len(alerts)))

	for _, alert := range alerts {
		if err := s.notifier.NotifyEscalation(ctx, alert); err != nil {
			s.logger.Error("Escalation notification failed, alert stays pending",
				zap.String("alert_id", alert.ID), zap.Error(err))
			continue
		}
		escalated, err := s.store.MarkEscalated(alert.ID)
		if err != nil {
			s.logger.Error("Failed to mark alert escalated",
				zap.String("alert_id", alert.ID), zap.Error(err))
			continue
		}
		if !escalated {
			// Already moved out of pending by a concurrent writer.
			continue
		}
		s.logger.Info("Alert escalated",
			zap.String("alert_id", alert.ID),
			zap.Int64("user_id", alert.UserID),
			zap.Int("severity", alert.Severity))
	}
}
