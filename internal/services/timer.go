package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/timer"
)

type engineProvider interface {
	Get(ctx context.Context, owner uuid.UUID) (*timer.Engine, error)
}

// TimerService exposes the per-user engine to the HTTP layer.
type TimerService struct {
	engines  engineProvider
	sessions *SessionService
}

func NewTimerService(engines engineProvider, sessions *SessionService) *TimerService {
	return &TimerService{engines: engines, sessions: sessions}
}

func (s *TimerService) State(ctx context.Context, owner uuid.UUID) (*timer.State, error) {
	engine, err := s.engines.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	st := engine.State()
	return &st, nil
}

func (s *TimerService) Start(ctx context.Context, owner uuid.UUID) (*timer.State, error) {
	engine, err := s.engines.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if err := engine.Start(); err != nil {
		return nil, err
	}
	st := engine.State()
	return &st, nil
}

func (s *TimerService) Pause(ctx context.Context, owner uuid.UUID) (*timer.State, error) {
	return s.apply(ctx, owner, (*timer.Engine).Pause)
}

func (s *TimerService) Reset(ctx context.Context, owner uuid.UUID) (*timer.State, error) {
	return s.apply(ctx, owner, (*timer.Engine).Reset)
}

// Quit unbinds the current session and pauses the countdown.
func (s *TimerService) Quit(ctx context.Context, owner uuid.UUID) (*timer.State, error) {
	return s.apply(ctx, owner, (*timer.Engine).UnbindSession)
}

// Select binds one of the owner's sessions to the timer.
func (s *TimerService) Select(ctx context.Context, owner, sessionID uuid.UUID) (*timer.State, error) {
	session, err := s.sessions.Get(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	engine, err := s.engines.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	engine.BindSession(*session)
	st := engine.State()
	return &st, nil
}

func (s *TimerService) apply(ctx context.Context, owner uuid.UUID, op func(*timer.Engine)) (*timer.State, error) {
	engine, err := s.engines.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	op(engine)
	st := engine.State()
	return &st, nil
}
