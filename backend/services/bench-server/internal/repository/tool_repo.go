package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cellbench/backend/services/bench-server/internal/models"
)

// ToolRepository handles persistence of calibrated tools.
type ToolRepository struct {
	db *sql.DB
}

// NewToolRepository returns repository.
func NewToolRepository(db *sql.DB) *ToolRepository {
	return &ToolRepository{db: db}
}

// Create inserts a tool and fills in its id.
func (r *ToolRepository) Create(ctx context.Context, t *models.Tool) error {
	const query = `
		INSERT INTO tools (asset_tag, name, category, calibration_due, active, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		t.AssetTag,
		t.Name,
		t.Category,
		t.CalibrationDue,
		t.Active,
	).Scan(&t.ID, &t.CreatedAt)
}

// GetByID fetches one tool.
func (r *ToolRepository) GetByID(ctx context.Context, id int64) (*models.Tool, error) {
	const query = `
		SELECT id, asset_tag, name, category, calibration_due, active, created_at
		FROM tools
		WHERE id = $1
	`
	var t models.Tool
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.AssetTag,
		&t.Name,
		&t.Category,
		&t.CalibrationDue,
		&t.Active,
		&t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every tool ordered by asset tag.
func (r *ToolRepository) List(ctx context.Context) ([]models.Tool, error) {
	const query = `
		SELECT id, asset_tag, name, category, calibration_due, active, created_at
		FROM tools
		ORDER BY asset_tag
	`
	return r.queryTools(ctx, query)
}

// ListAvailable returns active tools whose calibration is still valid.
func (r *ToolRepository) ListAvailable(ctx context.Context, at time.Time) ([]models.Tool, error) {
	const query = `
		SELECT id, asset_tag, name, category, calibration_due, active, created_at
		FROM tools
		WHERE active AND calibration_due > $1
		ORDER BY asset_tag
	`
	return r.queryTools(ctx, query, at)
}

// Update rewrites the mutable fields of a tool.
func (r *ToolRepository) Update(ctx context.Context, t *models.Tool) error {
	const query = `
		UPDATE tools
		SET asset_tag = $2,
		    name = $3,
		    category = $4,
		    calibration_due = $5,
		    active = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, t.ID, t.AssetTag, t.Name, t.Category, t.CalibrationDue, t.Active)
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

// Delete removes a tool.
func (r *ToolRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tools WHERE id = $1`, id)
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

func (r *ToolRepository) queryTools(ctx context.Context, query string, args ...interface{}) ([]models.Tool, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []models.Tool
	for rows.Next() {
		var t models.Tool
		if err := rows.Scan(
			&t.ID,
			&t.AssetTag,
			&t.Name,
			&t.Category,
			&t.CalibrationDue,
			&t.Active,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tools, nil
}
