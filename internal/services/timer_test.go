package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/timer"
)

func newTimerFixture(t *testing.T) (*TimerService, *stubSessionStore, uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	engine := timer.NewEngine(owner, models.DefaultTimerSettings(), nil, nil, timer.Options{})
	t.Cleanup(engine.Close)
	sessions := newStubSessionStore()
	svc := NewTimerService(stubEngines{engines: map[uuid.UUID]*timer.Engine{owner: engine}},
		NewSessionService(sessions, &stubIntervalLister{}))
	return svc, sessions, owner
}

func TestTimerService_StartWithoutSession(t *testing.T) {
	svc, _, owner := newTimerFixture(t)

	_, err := svc.Start(context.Background(), owner)

	var nas *models.NoActiveSessionError
	if !errors.As(err, &nas) {
		t.Fatalf("expected NoActiveSessionError, got %v", err)
	}
}

func TestTimerService_SelectStartPause(t *testing.T) {
	svc, sessions, owner := newTimerFixture(t)
	ws := sessions.add(owner, "Algebra", models.CategoryMaths)
	ctx := context.Background()

	st, err := svc.Select(ctx, owner, ws.ID)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if st.Session == nil || st.Session.ID != ws.ID {
		t.Fatalf("expected bound session, got %+v", st.Session)
	}

	st, err = svc.Start(ctx, owner)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !st.Running {
		t.Fatal("expected running after Start")
	}

	st, err = svc.Pause(ctx, owner)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if st.Running {
		t.Fatal("expected stopped after Pause")
	}
}

func TestTimerService_SelectForeignSession(t *testing.T) {
	svc, sessions, owner := newTimerFixture(t)
	foreign := sessions.add(uuid.New(), "Not mine", models.CategoryOther)

	_, err := svc.Select(context.Background(), owner, foreign.ID)

	var nf *models.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestTimerService_QuitUnbinds(t *testing.T) {
	svc, sessions, owner := newTimerFixture(t)
	ws := sessions.add(owner, "History", models.CategoryHistory)
	ctx := context.Background()
	if _, err := svc.Select(ctx, owner, ws.ID); err != nil {
		t.Fatalf("Select: %v", err)
	}

	st, err := svc.Quit(ctx, owner)
	if err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if st.Session != nil || st.Running {
		t.Fatalf("expected unbound and stopped, got %+v", st)
	}
}
