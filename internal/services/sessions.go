package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
)

type sessionStore interface {
	Create(ctx context.Context, owner uuid.UUID, title string, category models.Category) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.WorkSession, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.WorkSession, error)
	Update(ctx context.Context, id uuid.UUID, u models.SessionUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type intervalLister interface {
	ListBySession(ctx context.Context, session uuid.UUID) ([]models.CompletedInterval, error)
}

type SessionService struct {
	sessions  sessionStore
	intervals intervalLister
}

func NewSessionService(sessions sessionStore, intervals intervalLister) *SessionService {
	return &SessionService{sessions: sessions, intervals: intervals}
}

func validateTitle(title string) (string, map[string]string) {
	title = strings.TrimSpace(title)
	fields := map[string]string{}
	switch {
	case title == "":
		fields["title"] = "Title is required"
	case utf8.RuneCountInString(title) > models.MaxSessionTitleLength:
		fields["title"] = "Title must be at most 100 characters"
	}
	return title, fields
}

func (s *SessionService) List(ctx context.Context, owner uuid.UUID) ([]models.WorkSession, error) {
	return s.sessions.ListByOwner(ctx, owner)
}

func (s *SessionService) Create(ctx context.Context, owner uuid.UUID, req models.CreateSessionRequest) (*models.WorkSession, error) {
	title, fields := validateTitle(req.Title)
	category := models.Category(strings.ToLower(strings.TrimSpace(string(req.Category))))
	switch {
	case category == "":
		fields["category"] = "Category is required"
	case !category.Valid():
		fields["category"] = "Unknown category"
	}
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	id, err := s.sessions.Create(ctx, owner, title, category)
	if err != nil {
		return nil, &models.PersistenceError{Op: "create session", Err: err}
	}
	return s.sessions.GetByID(ctx, id)
}

// Get returns the session when it belongs to owner. Other users' sessions
// are reported as not found.
func (s *SessionService) Get(ctx context.Context, owner, id uuid.UUID) (*models.WorkSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != owner {
		return nil, &models.NotFoundError{Message: "Session not found"}
	}
	return session, nil
}

func (s *SessionService) Rename(ctx context.Context, owner, id uuid.UUID, title string) (*models.WorkSession, error) {
	title, fields := validateTitle(title)
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}
	session, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, id, models.SessionUpdate{Title: &title}); err != nil {
		return nil, &models.PersistenceError{Op: "rename session", Err: err}
	}
	session.Title = title
	return session, nil
}

// Delete removes the session together with its intervals.
func (s *SessionService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		if models.IsNotFound(err) {
			return err
		}
		return &models.PersistenceError{Op: "delete session", Err: err}
	}
	return nil
}

func (s *SessionService) Intervals(ctx context.Context, owner, id uuid.UUID) ([]models.CompletedInterval, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	return s.intervals.ListBySession(ctx, id)
}
