package models

import (
	"github.com/google/uuid"
)

// SnapshotJob is one queued persistence operation for a session.
type SnapshotJob struct {
	SessionID uuid.UUID
	Type      string // "save" | "clear"
	State     QuizState
}

const (
	SnapshotSave  = "save"
	SnapshotClear = "clear"
)

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StateUpdate struct {
	SessionID uuid.UUID `json:"session_id"`
	State     QuizState `json:"state"`
	Progress  Progress  `json:"progress"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
