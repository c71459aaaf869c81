package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletedInterval is the durable record of one finished focus phase.
type CompletedInterval struct {
	ID              uuid.UUID `json:"id"`
	OwnerID         uuid.UUID `json:"user_id"`
	SessionID       uuid.UUID `json:"session_id"`
	Category        Category  `json:"category"`
	DurationSeconds int       `json:"duration"`
	CompletedAt     time.Time `json:"date"`
}

type IntervalUpdate struct {
	DurationSeconds *int `json:"duration,omitempty"`
}

// IntervalEdit is one row of an edited interval list submitted for review.
type IntervalEdit struct {
	ID              uuid.UUID `json:"id"`
	DurationSeconds int       `json:"duration"`
}

// ReviewRequest carries the edited rows and the ids the editor was opened
// with. Only base ids missing from Intervals are deleted.
type ReviewRequest struct {
	Base      []uuid.UUID    `json:"base"`
	Intervals []IntervalEdit `json:"intervals"`
}

type EditIntervalRequest struct {
	DurationSeconds int `json:"duration"`
}

type ReviewResult struct {
	Deleted      []uuid.UUID `json:"deleted"`
	Updated      []uuid.UUID `json:"updated"`
	TotalSeconds int         `json:"total_time"`
	Pomodoros    int         `json:"pomodoros"`
}
