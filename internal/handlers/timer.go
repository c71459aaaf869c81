package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/timer"
)

type timerService interface {
	State(ctx context.Context, owner uuid.UUID) (*timer.State, error)
	Start(ctx context.Context, owner uuid.UUID) (*timer.State, error)
	Pause(ctx context.Context, owner uuid.UUID) (*timer.State, error)
	Reset(ctx context.Context, owner uuid.UUID) (*timer.State, error)
	Quit(ctx context.Context, owner uuid.UUID) (*timer.State, error)
	Select(ctx context.Context, owner, sessionID uuid.UUID) (*timer.State, error)
}

type TimerHandler struct {
	timer timerService
}

func NewTimerHandler(timer timerService) *TimerHandler {
	return &TimerHandler{timer: timer}
}

func (h *TimerHandler) State(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.timer.State)
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.timer.Start)
}

func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.timer.Pause)
}

func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.timer.Reset)
}

// Quit unbinds the current session and pauses the timer.
func (h *TimerHandler) Quit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.timer.Quit)
}

func (h *TimerHandler) Select(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.BindSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "session_id is required", r))
		return
	}

	state, err := h.timer.Select(r.Context(), userID, req.SessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (h *TimerHandler) respond(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*timer.State, error)) {
	state, err := op(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
