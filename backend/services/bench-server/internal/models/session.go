package models

import "time"

// Bench session statuses.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
	SessionAborted   = "aborted"
)

// BenchSession is one test run on one station.
type BenchSession struct {
	ID              int64      `db:"id" json:"id"`
	StationID       int        `db:"station_id" json:"station_id"`
	WorkOrderItemID *int64     `db:"work_order_item_id" json:"work_order_item_id,omitempty"`
	RecipeID        int64      `db:"recipe_id" json:"recipe_id"`
	Status          string     `db:"status" json:"status"`
	OverallResult   string     `db:"overall_result" json:"overall_result,omitempty"`
	Notes           string     `db:"notes" json:"notes,omitempty"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Measurement is one telemetry sample captured during a session.
type Measurement struct {
	ID           int64     `db:"id" json:"id"`
	SessionID    int64     `db:"session_id" json:"session_id"`
	StationID    int       `db:"station_id" json:"station_id"`
	VoltageMV    int       `db:"voltage_mv" json:"voltage_mv"`
	CurrentMA    int       `db:"current_ma" json:"current_ma"`
	TemperatureC float64   `db:"temperature_c" json:"temperature_c"`
	Phase        string    `db:"phase" json:"phase"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
}
