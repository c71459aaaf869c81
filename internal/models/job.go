package models

import (
	"github.com/google/uuid"
)

// WebSocket message types
const (
	WSTypeSessions         = "sessions"
	WSTypeIntervals        = "intervals"
	WSTypeSettings         = "settings"
	WSTypeTimer            = "timer"
	WSTypeIntervalRecorded = "interval_recorded"
	WSTypeIntervalFailed   = "interval_failed"
	WSTypeNotification     = "notification"
	WSTypeWarning          = "warning"
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// CompletionJob carries a finished focus phase to the persistence workers.
type CompletionJob struct {
	OwnerID         uuid.UUID `json:"owner_id"`
	SessionID       uuid.UUID `json:"session_id"`
	Category        Category  `json:"category"`
	DurationSeconds int       `json:"duration_seconds"`
}

type IntervalRecordedEvent struct {
	IntervalID      uuid.UUID `json:"interval_id"`
	SessionID       uuid.UUID `json:"session_id"`
	DurationSeconds int       `json:"duration_seconds"`
}

type IntervalFailedEvent struct {
	SessionID    uuid.UUID `json:"session_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

type NotificationEvent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
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
