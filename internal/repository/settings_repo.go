package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Th3drata/Tomodoro/internal/changefeed"
	"github.com/Th3drata/Tomodoro/internal/models"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
	feed changefeed.Feed
}

func NewSettingsRepo(pool *pgxpool.Pool, feed changefeed.Feed) *SettingsRepo {
	return &SettingsRepo{pool: pool, feed: feed}
}

// Load returns nil, nil when the user never saved settings.
func (r *SettingsRepo) Load(ctx context.Context, owner uuid.UUID) (*models.UserSettings, error) {
	s := &models.UserSettings{}
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, theme_color, focus_minutes, break_minutes, long_break_minutes, updated_at
		FROM user_settings WHERE user_id = $1`, owner,
	).Scan(&s.UserID, &s.ThemeColor, &s.Timer.FocusMinutes, &s.Timer.BreakMinutes, &s.Timer.LongBreakMinutes, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Save upserts the whole settings row.
func (r *SettingsRepo) Save(ctx context.Context, owner uuid.UUID, s models.UserSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, theme_color, focus_minutes, break_minutes, long_break_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET theme_color = EXCLUDED.theme_color,
			focus_minutes = EXCLUDED.focus_minutes,
			break_minutes = EXCLUDED.break_minutes,
			long_break_minutes = EXCLUDED.long_break_minutes,
			updated_at = NOW()`,
		owner, s.ThemeColor, s.Timer.FocusMinutes, s.Timer.BreakMinutes, s.Timer.LongBreakMinutes,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	publish(ctx, r.feed, changefeed.SettingsTopic(owner))
	return nil
}

// Subscribe pushes the owner's saved settings now and after every save.
// Nothing is pushed while the owner has no saved row.
func (r *SettingsRepo) Subscribe(ctx context.Context, owner uuid.UUID, onChange func(models.UserSettings)) (func(), error) {
	return changefeed.Watch(ctx, r.feed, changefeed.SettingsTopic(owner), func(ctx context.Context) ([]models.UserSettings, error) {
		s, err := r.Load(ctx, owner)
		if err != nil || s == nil {
			return nil, err
		}
		return []models.UserSettings{*s}, nil
	}, func(snapshot []models.UserSettings) {
		if len(snapshot) == 1 {
			onChange(snapshot[0])
		}
	})
}
