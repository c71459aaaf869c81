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

type IntervalRepo struct {
	pool *pgxpool.Pool
	feed changefeed.Feed
}

func NewIntervalRepo(pool *pgxpool.Pool, feed changefeed.Feed) *IntervalRepo {
	return &IntervalRepo{pool: pool, feed: feed}
}

const intervalColumns = `id, user_id, session_id, category, duration_seconds, completed_at`

func (r *IntervalRepo) Create(ctx context.Context, owner, session uuid.UUID, category models.Category, durationSeconds int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO completed_intervals (id, user_id, session_id, category, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)`,
		id, owner, session, category, durationSeconds,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create interval: %w", err)
	}
	publish(ctx, r.feed, changefeed.IntervalsTopic(owner))
	return id, nil
}

func (r *IntervalRepo) Update(ctx context.Context, id uuid.UUID, u models.IntervalUpdate) error {
	if u.DurationSeconds == nil {
		return nil
	}
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE completed_intervals SET duration_seconds = $2
		WHERE id = $1
		RETURNING user_id`, id, *u.DurationSeconds).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Interval not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to update interval: %w", err)
	}
	publish(ctx, r.feed, changefeed.IntervalsTopic(owner))
	return nil
}

func (r *IntervalRepo) Delete(ctx context.Context, id uuid.UUID) error {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `DELETE FROM completed_intervals WHERE id = $1 RETURNING user_id`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Interval not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete interval: %w", err)
	}
	publish(ctx, r.feed, changefeed.IntervalsTopic(owner))
	return nil
}

func (r *IntervalRepo) ListAll(ctx context.Context, owner uuid.UUID) ([]models.CompletedInterval, error) {
	return r.list(ctx, `SELECT `+intervalColumns+` FROM completed_intervals WHERE user_id = $1 ORDER BY completed_at DESC`, owner)
}

func (r *IntervalRepo) ListBySession(ctx context.Context, session uuid.UUID) ([]models.CompletedInterval, error) {
	return r.list(ctx, `SELECT `+intervalColumns+` FROM completed_intervals WHERE session_id = $1 ORDER BY completed_at ASC`, session)
}

func (r *IntervalRepo) list(ctx context.Context, query string, arg uuid.UUID) ([]models.CompletedInterval, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := make([]models.CompletedInterval, 0)
	for rows.Next() {
		var iv models.CompletedInterval
		if err := rows.Scan(&iv.ID, &iv.OwnerID, &iv.SessionID, &iv.Category, &iv.DurationSeconds, &iv.CompletedAt); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// Subscribe pushes the owner's intervals now and after every change.
func (r *IntervalRepo) Subscribe(ctx context.Context, owner uuid.UUID, onChange func([]models.CompletedInterval)) (func(), error) {
	return changefeed.Watch(ctx, r.feed, changefeed.IntervalsTopic(owner), func(ctx context.Context) ([]models.CompletedInterval, error) {
		return r.ListAll(ctx, owner)
	}, onChange)
}
