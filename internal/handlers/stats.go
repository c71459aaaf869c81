package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/services"
	"github.com/Th3drata/Tomodoro/internal/stats"
)

type statsService interface {
	Summary(ctx context.Context, owner uuid.UUID, loc *time.Location) (*stats.Summary, error)
	Month(ctx context.Context, owner uuid.UUID, year int, month time.Month, loc *time.Location) (*stats.MonthGrid, error)
	Day(ctx context.Context, owner uuid.UUID, date time.Time) (*stats.DayDetail, error)
}

type StatsHandler struct {
	stats statsService
	now   func() time.Time
}

func NewStatsHandler(stats statsService) *StatsHandler {
	return &StatsHandler{stats: stats, now: time.Now}
}

// Summary serves the dashboard counters. The optional tz query parameter
// names the IANA zone that day boundaries are computed in.
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loc := services.ResolveLocation(r.URL.Query().Get("tz"))

	summary, err := h.stats.Summary(r.Context(), userID, loc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *StatsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loc := services.ResolveLocation(r.URL.Query().Get("tz"))
	now := h.now().In(loc)

	year, month := now.Year(), now.Month()
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "year must be a number", r))
			return
		}
		year = n
	}
	if v := r.URL.Query().Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "month must be a number", r))
			return
		}
		month = time.Month(n)
	}

	grid, err := h.stats.Month(r.Context(), userID, year, month, loc)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, grid)
}

func (h *StatsHandler) Day(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loc := services.ResolveLocation(r.URL.Query().Get("tz"))

	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "date must be YYYY-MM-DD", r))
		return
	}

	detail, err := h.stats.Day(r.Context(), userID, date)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}
