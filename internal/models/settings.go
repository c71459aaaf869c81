package models

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const DefaultThemeColor = "#ff6b6b"

var themeColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// TimerSettings holds the configured phase lengths in minutes.
type TimerSettings struct {
	FocusMinutes     int `json:"focus_time" yaml:"focus_minutes"`
	BreakMinutes     int `json:"break_time" yaml:"break_minutes"`
	LongBreakMinutes int `json:"long_break_time" yaml:"long_break_minutes"`
}

func (s TimerSettings) FocusDuration() time.Duration {
	return time.Duration(s.FocusMinutes) * time.Minute
}

func (s TimerSettings) BreakDuration() time.Duration {
	return time.Duration(s.BreakMinutes) * time.Minute
}

func (s TimerSettings) LongBreakDuration() time.Duration {
	return time.Duration(s.LongBreakMinutes) * time.Minute
}

// TimerLimits bounds each phase length, inclusive, in minutes.
type TimerLimits struct {
	MaxFocusMinutes     int `yaml:"max_focus_minutes"`
	MaxBreakMinutes     int `yaml:"max_break_minutes"`
	MaxLongBreakMinutes int `yaml:"max_long_break_minutes"`
}

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{FocusMinutes: 35, BreakMinutes: 8, LongBreakMinutes: 20}
}

func DefaultTimerLimits() TimerLimits {
	return TimerLimits{MaxFocusMinutes: 120, MaxBreakMinutes: 60, MaxLongBreakMinutes: 120}
}

// Validate reports every out-of-range field at once.
func (s TimerSettings) Validate(limits TimerLimits) error {
	fields := map[string]string{}
	check := func(name string, v, max int) {
		if v < 1 || v > max {
			fields[name] = fmt.Sprintf("must be between 1 and %d minutes", max)
		}
	}
	check("focus_time", s.FocusMinutes, limits.MaxFocusMinutes)
	check("break_time", s.BreakMinutes, limits.MaxBreakMinutes)
	check("long_break_time", s.LongBreakMinutes, limits.MaxLongBreakMinutes)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

type UserSettings struct {
	UserID     uuid.UUID     `json:"user_id"`
	ThemeColor string        `json:"custom_color"`
	Timer      TimerSettings `json:"timer"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func DefaultUserSettings(userID uuid.UUID) UserSettings {
	return UserSettings{
		UserID:     userID,
		ThemeColor: DefaultThemeColor,
		Timer:      DefaultTimerSettings(),
	}
}

func (s UserSettings) Validate(limits TimerLimits) error {
	fields := map[string]string{}
	if err := s.Timer.Validate(limits); err != nil {
		for k, v := range err.(*ValidationError).Fields {
			fields[k] = v
		}
	}
	if !themeColorRegex.MatchString(s.ThemeColor) {
		fields["custom_color"] = "must be a #rrggbb hex color"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
