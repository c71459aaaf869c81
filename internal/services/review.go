package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

// ReviewPlan is the minimal set of writes that turns a snapshot into the
// edited list, plus the aggregates of the result.
type ReviewPlan struct {
	Deletes      []uuid.UUID
	Updates      map[uuid.UUID]int
	TotalSeconds int
	Pomodoros    int
}

// PlanReview diffs the edited rows against the edit-start base. Base rows
// missing from edits are deleted and edited rows whose duration changed are
// updated. Rows recorded after the editor opened are kept as they are and
// still count toward the totals.
func PlanReview(current []models.CompletedInterval, base []uuid.UUID, edits []models.IntervalEdit) (*ReviewPlan, error) {
	fields := map[string]string{}
	if base == nil {
		fields["base"] = "Interval ids loaded at edit start are required"
	}
	if edits == nil {
		fields["intervals"] = "Interval list is required"
	}
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	inBase := make(map[uuid.UUID]bool, len(base))
	for _, id := range base {
		inBase[id] = true
	}
	known := make(map[uuid.UUID]bool, len(current))
	for _, iv := range current {
		known[iv.ID] = true
	}

	kept := make(map[uuid.UUID]int, len(edits))
	for i, e := range edits {
		key := fmt.Sprintf("intervals[%d]", i)
		if _, dup := kept[e.ID]; dup {
			fields[key] = "Interval listed twice"
			continue
		}
		if e.DurationSeconds <= 0 {
			fields[key] = "Duration must be a positive number of seconds"
			continue
		}
		if !known[e.ID] {
			// Removed elsewhere since the editor opened.
			if inBase[e.ID] {
				continue
			}
			fields[key] = "Interval does not belong to this session"
			continue
		}
		kept[e.ID] = e.DurationSeconds
	}
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	plan := &ReviewPlan{Updates: map[uuid.UUID]int{}}
	for _, iv := range current {
		duration, edited := kept[iv.ID]
		switch {
		case edited:
			if duration != iv.DurationSeconds {
				plan.Updates[iv.ID] = duration
			}
		case inBase[iv.ID]:
			plan.Deletes = append(plan.Deletes, iv.ID)
			continue
		default:
			duration = iv.DurationSeconds
		}
		plan.TotalSeconds += duration
		plan.Pomodoros++
	}
	return plan, nil
}

type reviewStore interface {
	ApplyReview(ctx context.Context, id uuid.UUID, deletes []uuid.UUID, updates map[uuid.UUID]int, totalSeconds, pomodoros int) error
	IncrementAggregate(ctx context.Context, id uuid.UUID, durationDelta, countDelta int) error
}

type reviewIntervals interface {
	intervalLister
	Update(ctx context.Context, id uuid.UUID, u models.IntervalUpdate) error
}

type ReviewService struct {
	sessions  *SessionService
	intervals reviewIntervals
	store     reviewStore
}

func NewReviewService(sessions *SessionService, intervals reviewIntervals, store reviewStore) *ReviewService {
	return &ReviewService{sessions: sessions, intervals: intervals, store: store}
}

// SaveEdits applies an edited interval list and rewrites the session totals
// so they equal the sum and count of what remains.
func (s *ReviewService) SaveEdits(ctx context.Context, owner, sessionID uuid.UUID, req models.ReviewRequest) (*models.ReviewResult, error) {
	if _, err := s.sessions.Get(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	snapshot, err := s.intervals.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	plan, err := PlanReview(snapshot, req.Base, req.Intervals)
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyReview(ctx, sessionID, plan.Deletes, plan.Updates, plan.TotalSeconds, plan.Pomodoros); err != nil {
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, &models.PersistenceError{Op: "save interval review", Err: err}
	}

	result := &models.ReviewResult{
		Deleted:      plan.Deletes,
		Updated:      make([]uuid.UUID, 0, len(plan.Updates)),
		TotalSeconds: plan.TotalSeconds,
		Pomodoros:    plan.Pomodoros,
	}
	if result.Deleted == nil {
		result.Deleted = []uuid.UUID{}
	}
	for _, iv := range snapshot {
		if _, ok := plan.Updates[iv.ID]; ok {
			result.Updated = append(result.Updated, iv.ID)
		}
	}
	return result, nil
}

// EditInterval changes one interval's duration and shifts the session total
// by the difference. The interval is restored if the total cannot be moved.
func (s *ReviewService) EditInterval(ctx context.Context, owner, sessionID, intervalID uuid.UUID, durationSeconds int) (*models.CompletedInterval, error) {
	if durationSeconds <= 0 {
		return nil, &models.ValidationError{Fields: map[string]string{"duration": "Duration must be a positive number of seconds"}}
	}
	if _, err := s.sessions.Get(ctx, owner, sessionID); err != nil {
		return nil, err
	}
	intervals, err := s.intervals.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var target *models.CompletedInterval
	for i := range intervals {
		if intervals[i].ID == intervalID {
			target = &intervals[i]
			break
		}
	}
	if target == nil {
		return nil, &models.NotFoundError{Message: "Interval not found"}
	}

	delta := durationSeconds - target.DurationSeconds
	if delta == 0 {
		return target, nil
	}
	if err := s.intervals.Update(ctx, intervalID, models.IntervalUpdate{DurationSeconds: &durationSeconds}); err != nil {
		if models.IsNotFound(err) {
			return nil, err
		}
		return nil, &models.PersistenceError{Op: "update interval", Err: err}
	}
	if err := s.store.IncrementAggregate(ctx, sessionID, delta, 0); err != nil {
		previous := target.DurationSeconds
		if rbErr := s.intervals.Update(ctx, intervalID, models.IntervalUpdate{DurationSeconds: &previous}); rbErr != nil {
			log.Printf("review: restoring interval %s failed: %v", intervalID, rbErr)
		}
		return nil, &models.PersistenceError{Op: "update session total", Err: err}
	}

	target.DurationSeconds = durationSeconds
	return target, nil
}
