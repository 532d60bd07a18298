package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cellbench/backend/services/bench-server/internal/models"
)

// SessionRepository handles persistence of bench sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session and fills in its id and start time.
func (r *SessionRepository) Create(ctx context.Context, s *models.BenchSession) error {
	const query = `
		INSERT INTO bench_sessions (station_id, work_order_item_id, recipe_id, status, notes, started_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, started_at
	`
	if s.Status == "" {
		s.Status = models.SessionRunning
	}
	return r.db.QueryRowContext(ctx, query,
		s.StationID,
		s.WorkOrderItemID,
		s.RecipeID,
		s.Status,
		s.Notes,
	).Scan(&s.ID, &s.StartedAt)
}

// Finish closes a session with its final status and overall result.
func (r *SessionRepository) Finish(ctx context.Context, id int64, status, overallResult string, completedAt time.Time) error {
	const query = `
		UPDATE bench_sessions
		SET status = $2,
		    overall_result = $3,
		    completed_at = $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, status, overallResult, completedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches one session.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.BenchSession, error) {
	const query = `
		SELECT id, station_id, work_order_item_id, recipe_id, status,
		       COALESCE(overall_result, ''), COALESCE(notes, ''), started_at, completed_at
		FROM bench_sessions
		WHERE id = $1
	`
	var s models.BenchSession
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.StationID,
		&s.WorkOrderItemID,
		&s.RecipeID,
		&s.Status,
		&s.OverallResult,
		&s.Notes,
		&s.StartedAt,
		&s.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns sessions, newest first.
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]models.BenchSession, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, station_id, work_order_item_id, recipe_id, status,
		       COALESCE(overall_result, ''), COALESCE(notes, ''), started_at, completed_at
		FROM bench_sessions
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.BenchSession
	for rows.Next() {
		var s models.BenchSession
		if err := rows.Scan(
			&s.ID,
			&s.StationID,
			&s.WorkOrderItemID,
			&s.RecipeID,
			&s.Status,
			&s.OverallResult,
			&s.Notes,
			&s.StartedAt,
			&s.CompletedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
