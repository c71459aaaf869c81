package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/middleware"
	"github.com/Th3drata/Tomodoro/internal/models"
)

type stubSettingsService struct {
	saved   *models.UserSettings
	saveErr error
}

func (s *stubSettingsService) Get(_ context.Context, owner uuid.UUID) (*models.UserSettings, error) {
	us := models.DefaultUserSettings(owner)
	return &us, nil
}

func (s *stubSettingsService) Save(_ context.Context, owner uuid.UUID, us models.UserSettings) (*models.UserSettings, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	us.UserID = owner
	s.saved = &us
	return &us, nil
}

func (s *stubSettingsService) Limits() models.TimerLimits {
	return models.DefaultTimerLimits()
}

func TestSettingsHandler_Get(t *testing.T) {
	h := NewSettingsHandler(&stubSettingsService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr := httptest.NewRecorder()
	h.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var body struct {
		Settings models.UserSettings `json:"settings"`
		Limits   models.TimerLimits  `json:"limits"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Settings.Timer.FocusMinutes != 35 || body.Settings.ThemeColor != models.DefaultThemeColor {
		t.Errorf("unexpected settings %+v", body.Settings)
	}
}

func TestSettingsHandler_UpdateRejectsUnknownFields(t *testing.T) {
	svc := &stubSettingsService{}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"custom_color":"#000000","volume":3}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if svc.saved != nil {
		t.Fatalf("settings should not be saved for invalid request body")
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	svc := &stubSettingsService{}
	h := NewSettingsHandler(svc)
	userID := uuid.New()

	body := `{"custom_color":"#00ff00","timer":{"focus_time":25,"break_time":5,"long_break_time":15}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if svc.saved == nil || svc.saved.Timer.FocusMinutes != 25 || svc.saved.UserID != userID {
		t.Fatalf("unexpected saved settings %+v", svc.saved)
	}
}

func TestSettingsHandler_UpdateOutOfRange(t *testing.T) {
	svc := &stubSettingsService{saveErr: &models.ValidationError{Fields: map[string]string{"focus_time": "must be between 1 and 120 minutes"}}}
	h := NewSettingsHandler(svc)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"timer":{"focus_time":500}}`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rr := httptest.NewRecorder()
	h.Update(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "focus_time") {
		t.Errorf("expected field error, got %s", rr.Body.String())
	}
}
