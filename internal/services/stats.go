package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/stats"
)

type intervalHistory interface {
	ListAll(ctx context.Context, owner uuid.UUID) ([]models.CompletedInterval, error)
}

type sessionLister interface {
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.WorkSession, error)
}

type StatsService struct {
	intervals intervalHistory
	sessions  sessionLister
	now       func() time.Time
}

func NewStatsService(intervals intervalHistory, sessions sessionLister) *StatsService {
	return &StatsService{intervals: intervals, sessions: sessions, now: time.Now}
}

// ResolveLocation parses an IANA zone name, falling back to server local time.
func ResolveLocation(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func (s *StatsService) Summary(ctx context.Context, owner uuid.UUID, loc *time.Location) (*stats.Summary, error) {
	intervals, err := s.intervals.ListAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	summary := stats.Compute(intervals, s.now().In(loc))
	return &summary, nil
}

func (s *StatsService) Month(ctx context.Context, owner uuid.UUID, year int, month time.Month, loc *time.Location) (*stats.MonthGrid, error) {
	if month < time.January || month > time.December || year < 1970 || year > 9999 {
		return nil, &models.ValidationError{Fields: map[string]string{"month": "Invalid year or month"}}
	}
	intervals, err := s.intervals.ListAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	grid := stats.Month(intervals, year, month, loc)
	return &grid, nil
}

func (s *StatsService) Day(ctx context.Context, owner uuid.UUID, date time.Time) (*stats.DayDetail, error) {
	intervals, err := s.intervals.ListAll(ctx, owner)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	detail := stats.Day(intervals, sessions, date)
	return &detail, nil
}
