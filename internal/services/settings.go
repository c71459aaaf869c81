package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/Th3drata/Tomodoro/internal/models"
	"github.com/Th3drata/Tomodoro/internal/timer"
)

type settingsStore interface {
	Load(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error)
	Save(ctx context.Context, owner uuid.UUID, s models.UserSettings) error
}

type engineLookup interface {
	Lookup(owner uuid.UUID) (*timer.Engine, bool)
}

type SettingsService struct {
	store    settingsStore
	engines  engineLookup
	defaults models.TimerSettings
	limits   models.TimerLimits
}

func NewSettingsService(store settingsStore, engines engineLookup, defaults models.TimerSettings, limits models.TimerLimits) *SettingsService {
	return &SettingsService{store: store, engines: engines, defaults: defaults, limits: limits}
}

func (s *SettingsService) Limits() models.TimerLimits {
	return s.limits
}

// Get returns saved settings, or defaults when none were saved.
func (s *SettingsService) Get(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error) {
	saved, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		defaults := models.DefaultUserSettings(owner)
		defaults.Timer = s.defaults
		return &defaults, nil
	}
	return saved, nil
}

// Save validates and stores settings, then hands the timer values to the
// live engine if the user has one.
func (s *SettingsService) Save(ctx context.Context, owner uuid.UUID, settings models.UserSettings) (*models.UserSettings, error) {
	settings.UserID = owner
	settings.ThemeColor = strings.ToLower(strings.TrimSpace(settings.ThemeColor))
	if settings.ThemeColor == "" {
		settings.ThemeColor = models.DefaultThemeColor
	}
	if err := settings.Validate(s.limits); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, owner, settings); err != nil {
		return nil, &models.PersistenceError{Op: "save settings", Err: err}
	}

	if s.engines != nil {
		if engine, ok := s.engines.Lookup(owner); ok {
			if err := engine.ApplySettings(settings.Timer); err != nil {
				return nil, err
			}
		}
	}
	return &settings, nil
}
