package benchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ManualControlCommand mirrors the server's station control body.
type ManualControlCommand struct {
	StationID    int    `json:"station_id"`
	Command      string `json:"command"`
	VoltageMV    *int   `json:"voltage_mv,omitempty"`
	CurrentMA    *int   `json:"current_ma,omitempty"`
	VoltageMinMV *int   `json:"voltage_min_mv,omitempty"`
	DurationMin  *int   `json:"duration_min,omitempty"`
}

// ManualResult mirrors the server's manual step submission body.
type ManualResult struct {
	MeasuredValues json.RawMessage `json:"measured_values,omitempty"`
	StepResult     string          `json:"step_result"`
	ResultNotes    string          `json:"result_notes,omitempty"`
	PerformedBy    string          `json:"performed_by,omitempty"`
	ToolIDs        []int64         `json:"tool_ids,omitempty"`
}

// StationCount reads the configured number of bays. Dashboards size
// their grids from this before the first snapshot arrives.
func (c *Client) StationCount(ctx context.Context) (int, error) {
	var out struct {
		StationCount int `json:"station_count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/config/stations", nil, &out); err != nil {
		return 0, err
	}
	return out.StationCount, nil
}

// ManualControl sends one command to a station and returns the
// server's confirmation message.
func (c *Client) ManualControl(ctx context.Context, cmd ManualControlCommand) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/stations/control", cmd, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// StopStation halts whatever the station is doing, manual or automated.
func (c *Client) StopStation(ctx context.Context, stationID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/stations/%d/stop", stationID), nil, nil)
}

// SubmitTaskResult posts the technician's measurements for a task
// paused awaiting input.
func (c *Client) SubmitTaskResult(ctx context.Context, taskID int64, result ManualResult) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/job-tasks/%d/submit", taskID), result, nil)
}
