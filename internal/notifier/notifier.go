package notifier

import (
	"context"

	"manas-backend/internal/models"

	"go.uber.org/zap"
)

// Notifier delivers escalation notices to the on-call counseling staff.
type Notifier interface {
	NotifyEscalation(ctx context.Context, alert *models.CrisisAlert) error
}

// LogNotifier is the fallback when no paging channel is configured. It never
// fails, so alerts still transition to escalated in dev setups.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyEscalation(_ context.Context, alert *models.CrisisAlert) error {
	n.logger.Warn("CRISIS ESCALATION",
		zap.String("alert_id", alert.ID),
		zap.Int64("user_id", alert.UserID),
		zap.String("session_id", alert.SessionID),
		zap.Int("severity", alert.Severity),
		zap.Time("first_detected_at", alert.FirstDetectedAt))
	return nil
}
