package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cellbench/backend/services/bench-server/internal/models"
)

// JobTaskRepository handles persistence of job tasks.
type JobTaskRepository struct {
	db *sql.DB
}

// NewJobTaskRepository returns repository.
func NewJobTaskRepository(db *sql.DB) *JobTaskRepository {
	return &JobTaskRepository{db: db}
}

// CreateBatch inserts a session's task list in one transaction and
// fills in the ids.
func (r *JobTaskRepository) CreateBatch(ctx context.Context, tasks []models.JobTask) ([]models.JobTask, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO job_tasks (session_id, task_number, step_type, label, description, is_automated, status, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	for i := range tasks {
		t := &tasks[i]
		if t.Status == "" {
			t.Status = models.TaskPending
		}
		params := t.Params
		if len(params) == 0 {
			params = []byte("{}")
		}
		err := tx.QueryRowContext(ctx, query,
			t.SessionID,
			t.TaskNumber,
			t.StepType,
			t.Label,
			t.Description,
			t.IsAutomated,
			t.Status,
			[]byte(params),
		).Scan(&t.ID)
		if err != nil {
			return nil, fmt.Errorf("insert task %d: %w", t.TaskNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetByID fetches one task.
func (r *JobTaskRepository) GetByID(ctx context.Context, id int64) (*models.JobTask, error) {
	const query = `
		SELECT id, session_id, task_number, step_type, label, COALESCE(description, ''),
		       is_automated, status, params, measured_values,
		       COALESCE(step_result, ''), COALESCE(result_notes, ''), COALESCE(performed_by, ''),
		       started_at, completed_at
		FROM job_tasks
		WHERE id = $1
	`
	var t models.JobTask
	var params, measured []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.SessionID,
		&t.TaskNumber,
		&t.StepType,
		&t.Label,
		&t.Description,
		&t.IsAutomated,
		&t.Status,
		&params,
		&measured,
		&t.StepResult,
		&t.ResultNotes,
		&t.PerformedBy,
		&t.StartedAt,
		&t.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Params = params
	t.MeasuredValues = measured
	return &t, nil
}

// ListBySession returns a session's tasks in execution order.
func (r *JobTaskRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.JobTask, error) {
	const query = `
		SELECT id, session_id, task_number, step_type, label, COALESCE(description, ''),
		       is_automated, status, params, measured_values,
		       COALESCE(step_result, ''), COALESCE(result_notes, ''), COALESCE(performed_by, ''),
		       started_at, completed_at
		FROM job_tasks
		WHERE session_id = $1
		ORDER BY task_number
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListAwaitingByStation returns awaiting-input tasks for the session
// currently running on a station.
func (r *JobTaskRepository) ListAwaitingByStation(ctx context.Context, stationID int) ([]models.JobTask, error) {
	const query = `
		SELECT t.id, t.session_id, t.task_number, t.step_type, t.label, COALESCE(t.description, ''),
		       t.is_automated, t.status, t.params, t.measured_values,
		       COALESCE(t.step_result, ''), COALESCE(t.result_notes, ''), COALESCE(t.performed_by, ''),
		       t.started_at, t.completed_at
		FROM job_tasks t
		JOIN bench_sessions s ON s.id = t.session_id
		WHERE s.station_id = $1
		  AND s.status = 'running'
		  AND t.status = 'awaiting_input'
		ORDER BY t.task_number
	`
	rows, err := r.db.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

// MarkStarted flips a task into an active status.
func (r *JobTaskRepository) MarkStarted(ctx context.Context, id int64, status string, startedAt time.Time) error {
	const query = `
		UPDATE job_tasks
		SET status = $2,
		    started_at = COALESCE(started_at, $3)
		WHERE id = $1
	`
	return r.exec(ctx, query, id, status, startedAt)
}

// SetStatus updates a task's status only.
func (r *JobTaskRepository) SetStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx, `UPDATE job_tasks SET status = $2 WHERE id = $1`, id, status)
}

// Complete records a task's terminal status and results.
func (r *JobTaskRepository) Complete(ctx context.Context, id int64, status string, result models.ManualResult, completedAt time.Time) error {
	const query = `
		UPDATE job_tasks
		SET status = $2,
		    measured_values = $3,
		    step_result = $4,
		    result_notes = $5,
		    performed_by = $6,
		    completed_at = $7
		WHERE id = $1
	`
	var measured interface{}
	if len(result.MeasuredValues) > 0 {
		measured = []byte(result.MeasuredValues)
	}
	return r.exec(ctx, query, id, status, measured, result.StepResult, result.ResultNotes, result.PerformedBy, completedAt)
}

func (r *JobTaskRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
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

func scanTasks(rows *sql.Rows) ([]models.JobTask, error) {
	var tasks []models.JobTask
	for rows.Next() {
		var t models.JobTask
		var params, measured []byte
		if err := rows.Scan(
			&t.ID,
			&t.SessionID,
			&t.TaskNumber,
			&t.StepType,
			&t.Label,
			&t.Description,
			&t.IsAutomated,
			&t.Status,
			&params,
			&measured,
			&t.StepResult,
			&t.ResultNotes,
			&t.PerformedBy,
			&t.StartedAt,
			&t.CompletedAt,
		); err != nil {
			return nil, err
		}
		t.Params = params
		t.MeasuredValues = measured
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}
