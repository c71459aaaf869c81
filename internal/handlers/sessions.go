package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/models"
)

type sessionService interface {
	List(ctx context.Context, owner uuid.UUID) ([]models.WorkSession, error)
	Create(ctx context.Context, owner uuid.UUID, req models.CreateSessionRequest) (*models.WorkSession, error)
	Rename(ctx context.Context, owner, id uuid.UUID, title string) (*models.WorkSession, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	Intervals(ctx context.Context, owner, id uuid.UUID) ([]models.CompletedInterval, error)
}

type reviewService interface {
	SaveEdits(ctx context.Context, owner, sessionID uuid.UUID, req models.ReviewRequest) (*models.ReviewResult, error)
	EditInterval(ctx context.Context, owner, sessionID, intervalID uuid.UUID, durationSeconds int) (*models.CompletedInterval, error)
}

type SessionHandler struct {
	sessions sessionService
	review   reviewService
}

func NewSessionHandler(sessions sessionService, review reviewService) *SessionHandler {
	return &SessionHandler{sessions: sessions, review: review}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	sessions, err := h.sessions.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.WorkSession{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.sessions.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req models.RenameSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, err := h.sessions.Rename(r.Context(), userID, sessionID, req.Title)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), userID, sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Intervals(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	intervals, err := h.sessions.Intervals(r.Context(), userID, sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if intervals == nil {
		intervals = []models.CompletedInterval{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"intervals": intervals})
}

// Review saves an edited interval list for the session in one go.
func (h *SessionHandler) Review(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	var req models.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.review.SaveEdits(r.Context(), userID, sessionID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// EditInterval changes the duration of a single interval.
func (h *SessionHandler) EditInterval(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	intervalID, err := uuid.Parse(chi.URLParam(r, "intervalId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid interval ID", r))
		return
	}

	var req models.EditIntervalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	interval, err := h.review.EditInterval(r.Context(), userID, sessionID, intervalID, req.DurationSeconds)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, interval)
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}
