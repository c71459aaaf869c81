package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

type stubHistory struct {
	intervals []models.CompletedInterval
	err       error
}

func (s stubHistory) ListAll(context.Context, uuid.UUID) ([]models.CompletedInterval, error) {
	return s.intervals, s.err
}

type stubOwnerSessions []models.WorkSession

func (s stubOwnerSessions) ListByOwner(context.Context, uuid.UUID) ([]models.WorkSession, error) {
	return s, nil
}

func TestStatsService_SummaryUsesClockInLocation(t *testing.T) {
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	history := stubHistory{intervals: []models.CompletedInterval{
		{ID: uuid.New(), Category: models.CategoryMaths, DurationSeconds: 1500, CompletedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), Category: models.CategoryMaths, DurationSeconds: 1500, CompletedAt: now.AddDate(0, 0, -2)},
		{ID: uuid.New(), Category: models.CategoryMaths, DurationSeconds: 1500, CompletedAt: now.AddDate(0, -2, 0)},
	}}
	svc := NewStatsService(history, stubOwnerSessions{})
	svc.now = func() time.Time { return now }

	summary, err := svc.Summary(context.Background(), uuid.New(), time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Today.Count != 1 || summary.Today.Minutes != 25 {
		t.Errorf("today = %+v, want 1 pomodoro / 25 min", summary.Today)
	}
	if summary.Week.Count != 2 {
		t.Errorf("week count = %d, want 2", summary.Week.Count)
	}
	if summary.Total != 3 {
		t.Errorf("total = %d, want 3", summary.Total)
	}
}

func TestStatsService_MonthRejectsInvalidMonth(t *testing.T) {
	svc := NewStatsService(stubHistory{}, stubOwnerSessions{})

	for _, month := range []time.Month{0, 13} {
		_, err := svc.Month(context.Background(), uuid.New(), 2025, month, time.UTC)
		var ve *models.ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("month %d: expected ValidationError, got %v", month, err)
		}
	}
}

func TestStatsService_PropagatesStoreError(t *testing.T) {
	svc := NewStatsService(stubHistory{err: errors.New("db down")}, stubOwnerSessions{})

	if _, err := svc.Summary(context.Background(), uuid.New(), time.UTC); err == nil {
		t.Error("expected error from Summary")
	}
	if _, err := svc.Month(context.Background(), uuid.New(), 2025, time.March, time.UTC); err == nil {
		t.Error("expected error from Month")
	}
}

func TestStatsService_DayLabelsSessions(t *testing.T) {
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	session := models.WorkSession{ID: uuid.New(), Title: "Thesis", Category: models.CategoryMaths}
	history := stubHistory{intervals: []models.CompletedInterval{
		{ID: uuid.New(), SessionID: session.ID, Category: models.CategoryMaths, DurationSeconds: 1500, CompletedAt: day.Add(9 * time.Hour)},
		{ID: uuid.New(), SessionID: uuid.New(), Category: models.CategoryMaths, DurationSeconds: 600, CompletedAt: day.Add(11 * time.Hour)},
	}}
	svc := NewStatsService(history, stubOwnerSessions{session})

	detail, err := svc.Day(context.Background(), uuid.New(), day)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Count != 2 || detail.TotalMinutes != 35 {
		t.Fatalf("detail = %d entries / %d min, want 2 / 35", detail.Count, detail.TotalMinutes)
	}
	titles := map[string]bool{}
	for _, e := range detail.Entries {
		titles[e.SessionTitle] = true
	}
	if !titles["Thesis"] || !titles["Deleted session"] {
		t.Errorf("unexpected session titles: %v", titles)
	}
}
