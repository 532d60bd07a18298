package repository

import (
	"context"
	"database/sql"

	"cellbench/backend/services/bench-server/internal/models"
)

// MeasurementRepository handles persistence of telemetry samples.
type MeasurementRepository struct {
	db *sql.DB
}

// NewMeasurementRepository returns repository.
func NewMeasurementRepository(db *sql.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Insert records one sample.
func (r *MeasurementRepository) Insert(ctx context.Context, m *models.Measurement) error {
	const query = `
		INSERT INTO measurements (session_id, station_id, voltage_mv, current_ma, temperature_c, phase, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		m.SessionID,
		m.StationID,
		m.VoltageMV,
		m.CurrentMA,
		m.TemperatureC,
		m.Phase,
		m.RecordedAt,
	).Scan(&m.ID)
}

// ListBySession returns a session's samples in capture order.
func (r *MeasurementRepository) ListBySession(ctx context.Context, sessionID int64, limit int) ([]models.Measurement, error) {
	if limit <= 0 {
		limit = 10000
	}
	const query = `
		SELECT id, session_id, station_id, voltage_mv, current_ma, temperature_c, phase, recorded_at
		FROM measurements
		WHERE session_id = $1
		ORDER BY recorded_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&m.StationID,
			&m.VoltageMV,
			&m.CurrentMA,
			&m.TemperatureC,
			&m.Phase,
			&m.RecordedAt,
		); err != nil {
			return nil, err
		}
		samples = append(samples, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}
