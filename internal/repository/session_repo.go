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

type SessionRepo struct {
	pool *pgxpool.Pool
	feed changefeed.Feed
}

func NewSessionRepo(pool *pgxpool.Pool, feed changefeed.Feed) *SessionRepo {
	return &SessionRepo{pool: pool, feed: feed}
}

const sessionColumns = `id, user_id, title, category, total_seconds, pomodoros, created_at`

func scanSession(row pgx.Row) (*models.WorkSession, error) {
	s := &models.WorkSession{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.Category, &s.TotalSeconds, &s.Pomodoros, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) Create(ctx context.Context, owner uuid.UUID, title string, category models.Category) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO work_sessions (id, user_id, title, category)
		VALUES ($1, $2, $3, $4)`,
		id, owner, title, category,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}
	publish(ctx, r.feed, changefeed.SessionsTopic(owner))
	return id, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM work_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Message: "Session not found"}
	}
	return s, err
}

func (r *SessionRepo) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.WorkSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+`
		FROM work_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.WorkSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// IncrementAggregate adds to the cached totals in one atomic statement.
func (r *SessionRepo) IncrementAggregate(ctx context.Context, id uuid.UUID, durationDelta, countDelta int) error {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE work_sessions
		SET total_seconds = total_seconds + $2,
			pomodoros = pomodoros + $3
		WHERE id = $1
		RETURNING user_id`,
		id, durationDelta, countDelta,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Session not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to increment session aggregate: %w", err)
	}
	publish(ctx, r.feed, changefeed.SessionsTopic(owner))
	return nil
}

func (r *SessionRepo) Update(ctx context.Context, id uuid.UUID, u models.SessionUpdate) error {
	if u.Empty() {
		return nil
	}
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `
		UPDATE work_sessions
		SET title = COALESCE($2, title),
			category = COALESCE($3, category),
			total_seconds = COALESCE($4, total_seconds),
			pomodoros = COALESCE($5, pomodoros)
		WHERE id = $1
		RETURNING user_id`,
		id, u.Title, u.Category, u.TotalSeconds, u.Pomodoros,
	).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Session not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	publish(ctx, r.feed, changefeed.SessionsTopic(owner))
	return nil
}

// Delete removes the session. Its intervals go with it through the
// ON DELETE CASCADE foreign key, so both topics are notified.
func (r *SessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `DELETE FROM work_sessions WHERE id = $1 RETURNING user_id`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Session not found"}
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	publish(ctx, r.feed, changefeed.SessionsTopic(owner))
	publish(ctx, r.feed, changefeed.IntervalsTopic(owner))
	return nil
}

// ApplyReview deletes and updates intervals and writes the recomputed
// totals in a single transaction.
func (r *SessionRepo) ApplyReview(ctx context.Context, id uuid.UUID, deletes []uuid.UUID, updates map[uuid.UUID]int, totalSeconds, pomodoros int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT user_id FROM work_sessions WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Message: "Session not found"}
	}
	if err != nil {
		return err
	}

	for _, intervalID := range deletes {
		if _, err := tx.Exec(ctx, `DELETE FROM completed_intervals WHERE id = $1 AND session_id = $2`, intervalID, id); err != nil {
			return fmt.Errorf("failed to delete interval %s: %w", intervalID, err)
		}
	}
	for intervalID, duration := range updates {
		if _, err := tx.Exec(ctx, `UPDATE completed_intervals SET duration_seconds = $1 WHERE id = $2 AND session_id = $3`, duration, intervalID, id); err != nil {
			return fmt.Errorf("failed to update interval %s: %w", intervalID, err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE work_sessions SET total_seconds = $1, pomodoros = $2 WHERE id = $3`, totalSeconds, pomodoros, id); err != nil {
		return fmt.Errorf("failed to update session totals: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit review: %w", err)
	}

	publish(ctx, r.feed, changefeed.SessionsTopic(owner))
	publish(ctx, r.feed, changefeed.IntervalsTopic(owner))
	return nil
}

// Subscribe pushes the owner's sessions now and after every change.
func (r *SessionRepo) Subscribe(ctx context.Context, owner uuid.UUID, onChange func([]models.WorkSession)) (func(), error) {
	return changefeed.Watch(ctx, r.feed, changefeed.SessionsTopic(owner), func(ctx context.Context) ([]models.WorkSession, error) {
		return r.ListByOwner(ctx, owner)
	}, onChange)
}
