package stats

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

const DeletedSessionTitle = "Deleted session"

// MonthGrid is the per-day interval count for one calendar month.
type MonthGrid struct {
	Year        int   `json:"year"`
	Month       int   `json:"month"`
	DaysInMonth int   `json:"days_in_month"`
	FirstDay    int   `json:"first_weekday"`
	Counts      []int `json:"counts"`
	MaxCount    int   `json:"max_count"`
}

type DayEntry struct {
	IntervalID   uuid.UUID       `json:"id"`
	Time         string          `json:"time"`
	SessionTitle string          `json:"session_name"`
	Category     models.Category `json:"category"`
	Minutes      int             `json:"minutes"`
	CompletedAt  time.Time       `json:"date"`
}

type DayDetail struct {
	Date         string     `json:"date"`
	Entries      []DayEntry `json:"entries"`
	Count        int        `json:"count"`
	TotalMinutes int        `json:"total_minutes"`
}

// Month builds the heat-map grid. Counts[i] is day i+1.
func Month(intervals []models.CompletedInterval, year int, month time.Month, loc *time.Location) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)
	days := next.AddDate(0, 0, -1).Day()

	grid := MonthGrid{
		Year:        year,
		Month:       int(month),
		DaysInMonth: days,
		FirstDay:    int(first.Weekday()),
		Counts:      make([]int, days),
	}
	for _, iv := range intervals {
		at := iv.CompletedAt.In(loc)
		if at.Before(first) || !at.Before(next) {
			continue
		}
		grid.Counts[at.Day()-1]++
		if c := grid.Counts[at.Day()-1]; c > grid.MaxCount {
			grid.MaxCount = c
		}
	}
	return grid
}

// Day lists the intervals completed on the given local date, oldest first.
// Intervals whose session no longer exists are labelled DeletedSessionTitle.
func Day(intervals []models.CompletedInterval, sessions []models.WorkSession, date time.Time) DayDetail {
	start := startOfDay(date)
	end := start.AddDate(0, 0, 1)
	loc := date.Location()

	titles := make(map[uuid.UUID]string, len(sessions))
	for _, s := range sessions {
		titles[s.ID] = s.Title
	}

	detail := DayDetail{Date: start.Format("2006-01-02"), Entries: []DayEntry{}}
	seconds := 0
	for _, iv := range intervals {
		at := iv.CompletedAt.In(loc)
		if at.Before(start) || !at.Before(end) {
			continue
		}
		title, ok := titles[iv.SessionID]
		if !ok {
			title = DeletedSessionTitle
		}
		detail.Entries = append(detail.Entries, DayEntry{
			IntervalID:   iv.ID,
			Time:         at.Format("15:04"),
			SessionTitle: title,
			Category:     iv.Category,
			Minutes:      iv.DurationSeconds / 60,
			CompletedAt:  at,
		})
		seconds += iv.DurationSeconds
	}
	sort.SliceStable(detail.Entries, func(i, j int) bool {
		return detail.Entries[i].CompletedAt.Before(detail.Entries[j].CompletedAt)
	})
	detail.Count = len(detail.Entries)
	detail.TotalMinutes = seconds / 60
	return detail
}
