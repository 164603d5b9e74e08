package repository

import (
	"time"

	"manas-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AlertRepository persists crisis alerts. The schema carries a partial unique
// index on (user_id) WHERE status <> 'resolved', so UpsertAlert is an atomic
// create-or-merge: concurrent detections for the same user land on one row.
type AlertRepository interface {
	UpsertAlert(userID int64, sessionID string, detectedAt time.Time, severity int) (*models.CrisisAlert, error)
	ListPendingOlderThan(cutoff time.Time) ([]*models.CrisisAlert, error)
	ListAlerts(status string) ([]*models.CrisisAlert, error)
	MarkEscalated(id string) (bool, error)
	MarkResolved(id string) (bool, error)
}

type alertRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewAlertRepository(db *sqlx.DB, logger *zap.Logger) AlertRepository {
	return &alertRepository{db: db, logger: logger}
}

func (r *alertRepository) UpsertAlert(userID int64, sessionID string, detectedAt time.Time, severity int) (*models.CrisisAlert, error) {
	var alert models.CrisisAlert
	query := `
		INSERT INTO crisis_alerts (id, user_id, session_id, severity, status, escalation_count, first_detected_at, last_detected_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, $5, $5)
		ON CONFLICT (user_id) WHERE status <> 'resolved'
		DO UPDATE SET
			last_detected_at = GREATEST(crisis_alerts.last_detected_at, EXCLUDED.last_detected_at),
			session_id       = EXCLUDED.session_id,
			severity         = GREATEST(crisis_alerts.severity, EXCLUDED.severity)
		RETURNING id, user_id, session_id, severity, status, escalation_count, first_detected_at, last_detected_at, created_at`
	err := r.db.QueryRowx(query, uuid.NewString(), userID, sessionID, severity, detectedAt).StructScan(&alert)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ListPendingOlderThan(cutoff time.Time) ([]*models.CrisisAlert, error) {
	alerts := []*models.CrisisAlert{}
	query := `
		SELECT id, user_id, session_id, severity, status, escalation_count, first_detected_at, last_detected_at, created_at
		FROM crisis_alerts
		WHERE status = 'pending' AND last_detected_at <= $1
		ORDER BY last_detected_at ASC`
	if err := r.db.Select(&alerts, query, cutoff); err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *alertRepository) ListAlerts(status string) ([]*models.CrisisAlert, error) {
	alerts := []*models.CrisisAlert{}
	if status == "" {
		query := `
			SELECT id, user_id, session_id, severity, status, escalation_count, first_detected_at, last_detected_at, created_at
			FROM crisis_alerts ORDER BY last_detected_at DESC`
		if err := r.db.Select(&alerts, query); err != nil {
			return nil, err
		}
		return alerts, nil
	}
	query := `
		SELECT id, user_id, session_id, severity, status, escalation_count, first_detected_at, last_detected_at, created_at
		FROM crisis_alerts WHERE status = $1 ORDER BY last_detected_at DESC`
	if err := r.db.Select(&alerts, query, status); err != nil {
		return nil, err
	}
	return alerts, nil
}

// MarkEscalated transitions a pending alert to escalated. The status guard
// makes back-to-back scheduler passes idempotent: the second pass matches no
// rows and reports false.
func (r *alertRepository) MarkEscalated(id string) (bool, error) {
	query := `
		UPDATE crisis_alerts
		SET status = 'escalated', escalation_count = escalation_count + 1
		WHERE id = $1 AND status = 'pending'`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *alertRepository) MarkResolved(id string) (bool, error) {
	query := `UPDATE crisis_alerts SET status = 'resolved' WHERE id = $1 AND status <> 'resolved'`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
