package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryMaths       Category = "maths"
	CategoryPhysics     Category = "physics"
	CategoryChemistry   Category = "chemistry"
	CategoryProgramming Category = "programming"
	CategoryLanguages   Category = "languages"
	CategoryHistory     Category = "history"
	CategoryOther       Category = "other"
)

var Categories = []Category{
	CategoryMaths,
	CategoryPhysics,
	CategoryChemistry,
	CategoryProgramming,
	CategoryLanguages,
	CategoryHistory,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the category with its first letter capitalised.
func (c Category) Label() string {
	s := strings.ToLower(string(c))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const MaxSessionTitleLength = 100

// WorkSession is a user-named container that groups completed intervals.
// TotalSeconds and Pomodoros are cached aggregates of its intervals.
type WorkSession struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"user_id"`
	Title        string    `json:"title"`
	Category     Category  `json:"category"`
	TotalSeconds int       `json:"total_time"`
	Pomodoros    int       `json:"pomodoros"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionUpdate is a partial update. Nil fields are left unchanged.
type SessionUpdate struct {
	Title        *string   `json:"title,omitempty"`
	Category     *Category `json:"category,omitempty"`
	TotalSeconds *int      `json:"total_time,omitempty"`
	Pomodoros    *int      `json:"pomodoros,omitempty"`
}

func (u SessionUpdate) Empty() bool {
	return u.Title == nil && u.Category == nil && u.TotalSeconds == nil && u.Pomodoros == nil
}

type CreateSessionRequest struct {
	Title    string   `json:"title"`
	Category Category `json:"category"`
}

type RenameSessionRequest struct {
	Title string `json:"title"`
}

type BindSessionRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}
