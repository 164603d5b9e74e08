package crisis

import (
	"context"
	"time"

	"manas-backend/internal/models"

	"go.uber.org/zap"
)

// AlertStore is the slice of the alert repository the reporter needs.
type AlertStore interface {
	UpsertAlert(userID int64, sessionID string, detectedAt time.Time, severity int) (*models.CrisisAlert, error)
}

// Detection is one crisis hit coming off a streaming session.
type Detection struct {
	UserID     int64
	SessionID  string
	DetectedAt time.Time
	Severity   int
}

// Reporter commits crisis detections to the alert store. A store outage never
// reaches the user-facing path: failed writes go to a bounded retry queue that
// Run drains in the background. Sessions call Report detached from their own
// context, so an alert for a message classified near disconnect still lands.
type Reporter struct {
	store         AlertStore
	retry         chan Detection
	retryInterval time.Duration
	logger        *zap.Logger
}

func NewReporter(store AlertStore, queueSize int, retryInterval time.Duration, logger *zap.Logger) *Reporter {
	if queueSize <= 0 {
		queueSize = 128
	}
	if retryInterval <= 0 {
		retryInterval = 15 * time.Second
	}
	return &Reporter{
		store:         store,
		retry:         make(chan Detection, queueSize),
		retryInterval: retryInterval,
		logger:        logger,
	}
}

// Report records a detection. Anonymous senders get the in-session safety
// response but no stored alert: there is no user to follow up with, and
// merging every anonymous visitor into one row would be wrong.
func (r *Reporter) Report(d Detection) {
	if d.UserID == 0 {
		r.logger.Info("Crisis detection on anonymous session, not persisted",
			zap.String("session_id", d.SessionID))
		return
	}

	if _, err := r.store.UpsertAlert(d.UserID, d.SessionID, d.DetectedAt, d.Severity); err != nil {
		r.logger.Error("Alert store unavailable, queueing detection for retry",
			zap.Int64("user_id", d.UserID), zap.Error(err))
		select {
		case r.retry <- d:
		default:
			r.logger.Error("Retry queue full, dropping crisis detection",
				zap.Int64("user_id", d.UserID), zap.String("session_id", d.SessionID))
		}
		return
	}

	r.logger.Info("Crisis alert recorded",
		zap.Int64("user_id", d.UserID), zap.String("session_id", d.SessionID))
}

// Run retries queued detections until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Reporter) flush() {
	for n := len(r.retry); n > 0; n-- {
		var d Detection
		select {
		case d = <-r.retry:
		default:
			return
		}
		if _, err := r.store.UpsertAlert(d.UserID, d.SessionID, d.DetectedAt, d.Severity); err != nil {
			select {
			case r.retry <- d:
			default:
				r.logger.Error("Retry queue full, dropping crisis detection",
					zap.Int64("user_id", d.UserID))
			}
			return
		}
		r.logger.Info("Queued crisis alert committed after retry", zap.Int64("user_id", d.UserID))
	}
}
