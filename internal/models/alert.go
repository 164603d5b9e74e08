package models

import "time"

const (
	AlertStatusPending   = "pending"
	AlertStatusEscalated = "escalated"
	AlertStatusResolved  = "resolved"
)

// CrisisAlert tracks a user flagged by crisis detection. At most one
// non-resolved alert exists per user; repeated detections merge into it.
type CrisisAlert struct {
	ID              string    `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	SessionID       string    `db:"session_id" json:"session_id"`
	Severity        int       `db:"severity" json:"severity"`
	Status          string    `db:"status" json:"status"`
	EscalationCount int       `db:"escalation_count" json:"escalation_count"`
	FirstDetectedAt time.Time `db:"first_detected_at" json:"first_detected_at"`
	LastDetectedAt  time.Time `db:"last_detected_at" json:"last_detected_at"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

func ValidAlertStatus(s string) bool {
	switch s {
	case AlertStatusPending, AlertStatusEscalated, AlertStatusResolved:
		return true
	}
	return false
}
