package models

import "time"

// ChatMessage is a single inbound message on a streaming session. Messages are
// classified and discarded; the backend never persists message text.
type ChatMessage struct {
	SessionID string    `json:"session_id"`
	SenderID  int64     `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// LabelScore is one emotion label with its model confidence.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// EmotionResult is the outcome of classifying one message. AllScores is sorted
// by descending score; Emotion and Confidence mirror AllScores[0] when the
// model produced any scores. IsCrisis is authoritative even when the model
// backend was unavailable.
type EmotionResult struct {
	Emotion        string       `json:"emotion"`
	Confidence     float64      `json:"confidence"`
	IsCrisis       bool         `json:"is_crisis"`
	Severity       int          `json:"severity,omitempty"`
	AllScores      []LabelScore `json:"all_scores,omitempty"`
	MatchedPhrases []string     `json:"matched_phrases,omitempty"`
}
