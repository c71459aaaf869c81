package timer

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

// Phase is the kind of countdown currently loaded.
type Phase string

const (
	PhaseFocus     Phase = "focus"
	PhaseBreak     Phase = "break"
	PhaseLongBreak Phase = "longBreak"
)

// EventType defines the type of engine event.
type EventType string

const (
	EventStateChange      EventType = "state_change"
	EventTick             EventType = "tick"
	EventIntervalRecorded EventType = "interval_recorded"
	EventIntervalFailed   EventType = "interval_failed"
	EventWarning          EventType = "warning"
	EventNotification     EventType = "notification"
)

// State is a point-in-time copy of the engine.
type State struct {
	Phase            Phase                `json:"phase"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	PhaseSeconds     int                  `json:"phase_seconds"`
	Cycle            int                  `json:"cycle"`
	Running          bool                 `json:"running"`
	Display          string               `json:"display"`
	Session          *models.WorkSession  `json:"session"`
	Settings         models.TimerSettings `json:"settings"`
}

// Event is an engine update for observers.
type Event struct {
	Type       EventType
	State      State
	Message    string
	IntervalID uuid.UUID
	SessionID  uuid.UUID
	Duration   int
	Err        error
	At         time.Time
}

// FormatRemaining renders seconds as MM:SS. Minutes may exceed 59.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
