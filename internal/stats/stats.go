// Package stats turns a user's completed intervals into dashboard numbers.
// Everything here is pure: callers pass "now" and the location explicitly.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/Th3drata/Tomodoro/internal/models"
)

// SeriesDays is the length of the daily series, today included.
const SeriesDays = 7

type Window struct {
	Count   int `json:"count"`
	Minutes int `json:"minutes"`
}

type DayPoint struct {
	Date    string `json:"date"`
	Label   string `json:"name"`
	Count   int    `json:"pomodoros"`
	Minutes int    `json:"minutes"`
}

type CategoryPoint struct {
	Category models.Category `json:"category"`
	Label    string          `json:"name"`
	Count    int             `json:"count"`
	Minutes  int             `json:"minutes"`
}

type Summary struct {
	Today      Window          `json:"today"`
	Week       Window          `json:"week"`
	Month      Window          `json:"month"`
	Total      int             `json:"total"`
	LastDays   []DayPoint      `json:"last_7_days"`
	Categories []CategoryPoint `json:"categories"`
}

type bucket struct {
	count   int
	seconds int
}

func (b *bucket) add(seconds int) {
	b.count++
	b.seconds += seconds
}

func (b bucket) window() Window {
	return Window{Count: b.count, Minutes: b.seconds / 60}
}

// Compute partitions intervals by local calendar boundaries relative to now.
// Windows are inclusive of their start instant. Minutes truncate.
func Compute(intervals []models.CompletedInterval, now time.Time) Summary {
	loc := now.Location()
	today := startOfDay(now)
	weekStart := today.AddDate(0, 0, -(SeriesDays - 1))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	var todayB, weekB, monthB bucket
	days := make([]bucket, SeriesDays)
	categories := map[models.Category]*bucket{}

	for _, iv := range intervals {
		at := iv.CompletedAt.In(loc)
		if !at.Before(today) {
			todayB.add(iv.DurationSeconds)
		}
		if !at.Before(weekStart) {
			weekB.add(iv.DurationSeconds)
		}
		if !at.Before(monthStart) {
			monthB.add(iv.DurationSeconds)
		}
		if idx := dayIndex(weekStart, at); idx >= 0 && idx < SeriesDays {
			days[idx].add(iv.DurationSeconds)
		}

		key := models.Category(strings.ToLower(string(iv.Category)))
		if categories[key] == nil {
			categories[key] = &bucket{}
		}
		categories[key].add(iv.DurationSeconds)
	}

	summary := Summary{
		Today:    todayB.window(),
		Week:     weekB.window(),
		Month:    monthB.window(),
		Total:    len(intervals),
		LastDays: make([]DayPoint, SeriesDays),
	}

	for i := 0; i < SeriesDays; i++ {
		day := weekStart.AddDate(0, 0, i)
		summary.LastDays[i] = DayPoint{
			Date:    day.Format("2006-01-02"),
			Label:   day.Weekday().String()[:3],
			Count:   days[i].count,
			Minutes: days[i].seconds / 60,
		}
	}

	for cat, b := range categories {
		summary.Categories = append(summary.Categories, CategoryPoint{
			Category: cat,
			Label:    cat.Label(),
			Count:    b.count,
			Minutes:  b.seconds / 60,
		})
	}
	sort.Slice(summary.Categories, func(i, j int) bool {
		a, b := summary.Categories[i], summary.Categories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Label < b.Label
	})

	return summary
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayIndex counts calendar days from start to t. It is DST safe because it
// compares dates rather than dividing elapsed hours.
func dayIndex(start, t time.Time) int {
	if t.Before(start) {
		return -1
	}
	d := startOfDay(t)
	n := 0
	for cur := start; cur.Before(d); cur = cur.AddDate(0, 0, 1) {
		n++
		if n > SeriesDays {
			break
		}
	}
	return n
}
