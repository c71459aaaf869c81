package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

func threeIntervals(session uuid.UUID) []models.CompletedInterval {
	now := time.Now()
	return []models.CompletedInterval{
		{ID: uuid.New(), SessionID: session, DurationSeconds: 600, CompletedAt: now},
		{ID: uuid.New(), SessionID: session, DurationSeconds: 900, CompletedAt: now},
		{ID: uuid.New(), SessionID: session, DurationSeconds: 1200, CompletedAt: now},
	}
}

func idsOf(intervals []models.CompletedInterval) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(intervals))
	for _, iv := range intervals {
		ids = append(ids, iv.ID)
	}
	return ids
}

func TestPlanReview_DeleteMiddleEditLast(t *testing.T) {
	snapshot := threeIntervals(uuid.New())
	edits := []models.IntervalEdit{
		{ID: snapshot[0].ID, DurationSeconds: 600},
		{ID: snapshot[2].ID, DurationSeconds: 1500},
	}

	plan, err := PlanReview(snapshot, idsOf(snapshot), edits)
	if err != nil {
		t.Fatalf("PlanReview: %v", err)
	}

	if len(plan.Deletes) != 1 || plan.Deletes[0] != snapshot[1].ID {
		t.Fatalf("expected exactly one delete of the middle interval, got %v", plan.Deletes)
	}
	if len(plan.Updates) != 1 || plan.Updates[snapshot[2].ID] != 1500 {
		t.Fatalf("expected exactly one update to 1500s, got %v", plan.Updates)
	}
	if plan.Pomodoros != 2 {
		t.Fatalf("expected pomodoros 2, got %d", plan.Pomodoros)
	}
	if plan.TotalSeconds != 2100 {
		t.Fatalf("expected total 2100, got %d", plan.TotalSeconds)
	}
}

func TestPlanReview_NoChanges(t *testing.T) {
	snapshot := threeIntervals(uuid.New())
	edits := make([]models.IntervalEdit, 0, len(snapshot))
	for _, iv := range snapshot {
		edits = append(edits, models.IntervalEdit{ID: iv.ID, DurationSeconds: iv.DurationSeconds})
	}

	plan, err := PlanReview(snapshot, idsOf(snapshot), edits)
	if err != nil {
		t.Fatalf("PlanReview: %v", err)
	}
	if len(plan.Deletes) != 0 || len(plan.Updates) != 0 {
		t.Fatalf("expected no writes, got deletes=%v updates=%v", plan.Deletes, plan.Updates)
	}
	if plan.TotalSeconds != 2700 || plan.Pomodoros != 3 {
		t.Fatalf("unexpected totals %d/%d", plan.TotalSeconds, plan.Pomodoros)
	}
}

func TestPlanReview_DeleteAll(t *testing.T) {
	snapshot := threeIntervals(uuid.New())
	plan, err := PlanReview(snapshot, idsOf(snapshot), []models.IntervalEdit{})
	if err != nil {
		t.Fatalf("PlanReview: %v", err)
	}
	if len(plan.Deletes) != 3 || plan.TotalSeconds != 0 || plan.Pomodoros != 0 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanReview_Validation(t *testing.T) {
	snapshot := threeIntervals(uuid.New())
	tests := []struct {
		name  string
		edits []models.IntervalEdit
	}{
		{"unknown interval", []models.IntervalEdit{{ID: uuid.New(), DurationSeconds: 60}}},
		{"zero duration", []models.IntervalEdit{{ID: snapshot[0].ID, DurationSeconds: 0}}},
		{"negative duration", []models.IntervalEdit{{ID: snapshot[0].ID, DurationSeconds: -5}}},
		{"duplicate", []models.IntervalEdit{{ID: snapshot[0].ID, DurationSeconds: 60}, {ID: snapshot[0].ID, DurationSeconds: 90}}},
		{"missing list", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanReview(snapshot, idsOf(snapshot), tc.edits)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestPlanReview_KeepsIntervalRecordedAfterEditStart(t *testing.T) {
	atStart := threeIntervals(uuid.New())
	edits := make([]models.IntervalEdit, 0, len(atStart))
	for _, iv := range atStart {
		edits = append(edits, models.IntervalEdit{ID: iv.ID, DurationSeconds: iv.DurationSeconds})
	}
	late := models.CompletedInterval{ID: uuid.New(), SessionID: atStart[0].SessionID, DurationSeconds: 1500, CompletedAt: time.Now()}
	current := append(append([]models.CompletedInterval{}, atStart...), late)

	plan, err := PlanReview(current, idsOf(atStart), edits)
	if err != nil {
		t.Fatalf("PlanReview: %v", err)
	}
	if len(plan.Deletes) != 0 || len(plan.Updates) != 0 {
		t.Fatalf("expected no writes, got deletes=%v updates=%v", plan.Deletes, plan.Updates)
	}
	if plan.TotalSeconds != 4200 || plan.Pomodoros != 4 {
		t.Fatalf("expected late interval in totals, got %d/%d", plan.TotalSeconds, plan.Pomodoros)
	}
}

func TestPlanReview_IgnoresEditOfIntervalRemovedElsewhere(t *testing.T) {
	atStart := threeIntervals(uuid.New())
	current := atStart[1:]
	edits := []models.IntervalEdit{
		{ID: atStart[0].ID, DurationSeconds: 600},
		{ID: atStart[1].ID, DurationSeconds: 900},
	}

	plan, err := PlanReview(current, idsOf(atStart), edits)
	if err != nil {
		t.Fatalf("PlanReview: %v", err)
	}
	if len(plan.Deletes) != 1 || plan.Deletes[0] != atStart[2].ID {
		t.Fatalf("expected only the third interval deleted, got %v", plan.Deletes)
	}
	if plan.TotalSeconds != 900 || plan.Pomodoros != 1 {
		t.Fatalf("unexpected totals %d/%d", plan.TotalSeconds, plan.Pomodoros)
	}
}

func TestPlanReview_RequiresBase(t *testing.T) {
	snapshot := threeIntervals(uuid.New())

	plan, err := PlanReview(snapshot, nil, []models.IntervalEdit{})

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got plan %+v err %v", plan, err)
	}
	if _, ok := verr.Fields["base"]; !ok {
		t.Fatalf("expected base field error, got %v", verr.Fields)
	}
}

type stubReviewStore struct {
	calls   int
	deletes []uuid.UUID
	updates map[uuid.UUID]int
	total   int
	count   int
	err     error

	deltas       []int
	incrementErr error
}

func (s *stubReviewStore) IncrementAggregate(_ context.Context, _ uuid.UUID, durationDelta, _ int) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.deltas = append(s.deltas, durationDelta)
	return nil
}

func (s *stubReviewStore) ApplyReview(_ context.Context, _ uuid.UUID, deletes []uuid.UUID, updates map[uuid.UUID]int, total, count int) error {
	s.calls++
	s.deletes, s.updates, s.total, s.count = deletes, updates, total, count
	return s.err
}

func TestReviewService_SaveEdits(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)
	snapshot := intervals.bySession[session.ID]

	result, err := svc.SaveEdits(context.Background(), owner, session.ID, models.ReviewRequest{
		Base: idsOf(snapshot),
		Intervals: []models.IntervalEdit{
			{ID: snapshot[0].ID, DurationSeconds: 600},
			{ID: snapshot[2].ID, DurationSeconds: 1500},
		},
	})
	if err != nil {
		t.Fatalf("SaveEdits: %v", err)
	}

	if store.calls != 1 {
		t.Fatalf("expected one transactional apply, got %d", store.calls)
	}
	if store.total != 2100 || store.count != 2 {
		t.Fatalf("expected totals 2100/2, got %d/%d", store.total, store.count)
	}
	if len(result.Deleted) != 1 || len(result.Updated) != 1 || result.Updated[0] != snapshot[2].ID {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestReviewService_StoreFailureIsPersistenceError(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{err: errors.New("tx aborted")}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)

	snapshot := intervals.bySession[session.ID]
	_, err := svc.SaveEdits(context.Background(), owner, session.ID, models.ReviewRequest{Base: idsOf(snapshot), Intervals: []models.IntervalEdit{}})

	var perr *models.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}

func TestReviewService_ValidationBeforeWrite(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)

	_, err := svc.SaveEdits(context.Background(), owner, session.ID, models.ReviewRequest{
		Base:      idsOf(intervals.bySession[session.ID]),
		Intervals: []models.IntervalEdit{{ID: uuid.New(), DurationSeconds: 10}},
	})

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if store.calls != 0 {
		t.Fatal("store must not be touched on validation failure")
	}
}

func TestReviewService_MissingIntervalListKeepsHistory(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)

	_, err := svc.SaveEdits(context.Background(), owner, session.ID, models.ReviewRequest{
		Base: idsOf(intervals.bySession[session.ID]),
	})

	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["intervals"]; !ok {
		t.Fatalf("expected intervals field error, got %v", verr.Fields)
	}
	if store.calls != 0 {
		t.Fatal("store must not be touched when the interval list is missing")
	}
}

func TestReviewService_EditIntervalShiftsTotal(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)
	target := intervals.bySession[session.ID][1]

	got, err := svc.EditInterval(context.Background(), owner, session.ID, target.ID, 1500)
	if err != nil {
		t.Fatalf("EditInterval: %v", err)
	}
	if got.DurationSeconds != 1500 {
		t.Fatalf("expected 1500s, got %d", got.DurationSeconds)
	}
	if len(intervals.updates) != 1 || intervals.updates[0] != 1500 {
		t.Fatalf("expected one interval update to 1500, got %v", intervals.updates)
	}
	if len(store.deltas) != 1 || store.deltas[0] != 600 {
		t.Fatalf("expected session total shifted by 600, got %v", store.deltas)
	}
}

func TestReviewService_EditIntervalRestoresOnAggregateFailure(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{incrementErr: errors.New("db down")}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)
	target := intervals.bySession[session.ID][0]

	_, err := svc.EditInterval(context.Background(), owner, session.ID, target.ID, 1500)

	var perr *models.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(intervals.updates) != 2 || intervals.updates[1] != target.DurationSeconds {
		t.Fatalf("expected the interval restored to %d, got %v", target.DurationSeconds, intervals.updates)
	}
}

func TestReviewService_EditIntervalValidation(t *testing.T) {
	owner := uuid.New()
	sessions := newStubSessionStore()
	session := sessions.add(owner, "Thermo", models.CategoryPhysics)
	intervals := &stubIntervalLister{bySession: map[uuid.UUID][]models.CompletedInterval{
		session.ID: threeIntervals(session.ID),
	}}
	store := &stubReviewStore{}
	svc := NewReviewService(NewSessionService(sessions, intervals), intervals, store)

	_, err := svc.EditInterval(context.Background(), owner, session.ID, intervals.bySession[session.ID][0].ID, 0)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = svc.EditInterval(context.Background(), owner, session.ID, uuid.New(), 600)
	if !models.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(intervals.updates) != 0 || len(store.deltas) != 0 {
		t.Fatal("nothing may be written on rejected edits")
	}
}
