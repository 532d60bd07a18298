package models

import (
	"encoding/json"
	"time"
)

// Job task statuses.
const (
	TaskPending       = "pending"
	TaskInProgress    = "in_progress"
	TaskAwaitingInput = "awaiting_input"
	TaskCompleted     = "completed"
	TaskSkipped       = "skipped"
	TaskFailed        = "failed"
	TaskAborted       = "aborted"
)

// JobTask is one step of a test job, automated or manual.
type JobTask struct {
	ID             int64           `db:"id" json:"id"`
	SessionID      int64           `db:"session_id" json:"session_id"`
	TaskNumber     int             `db:"task_number" json:"task_number"`
	StepType       string          `db:"step_type" json:"step_type"`
	Label          string          `db:"label" json:"label"`
	Description    string          `db:"description" json:"description"`
	IsAutomated    bool            `db:"is_automated" json:"is_automated"`
	Status         string          `db:"status" json:"status"`
	Params         json.RawMessage `db:"params" json:"params"`
	MeasuredValues json.RawMessage `db:"measured_values" json:"measured_values,omitempty"`
	StepResult     string          `db:"step_result" json:"step_result,omitempty"`
	ResultNotes    string          `db:"result_notes" json:"result_notes,omitempty"`
	PerformedBy    string          `db:"performed_by" json:"performed_by,omitempty"`
	StartedAt      *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// AwaitingTask is the wire descriptor broadcast when a manual step
// needs technician input at a station.
type AwaitingTask struct {
	TaskID      int64           `json:"task_id"`
	TaskNumber  int             `json:"task_number"`
	Label       string          `json:"label"`
	StepType    string          `json:"step_type"`
	Description string          `json:"description"`
	Params      json.RawMessage `json:"params,omitempty"`
}

// ManualResult is the technician's submission for an awaiting step.
type ManualResult struct {
	MeasuredValues json.RawMessage `json:"measured_values,omitempty"`
	StepResult     string          `json:"step_result"`
	ResultNotes    string          `json:"result_notes,omitempty"`
	PerformedBy    string          `json:"performed_by,omitempty"`
	ToolIDs        []int64         `json:"tool_ids,omitempty"`
}

// Awaiting converts a job task into its broadcast descriptor.
func (t JobTask) Awaiting() AwaitingTask {
	return AwaitingTask{
		TaskID:      t.ID,
		TaskNumber:  t.TaskNumber,
		Label:       t.Label,
		StepType:    t.StepType,
		Description: t.Description,
		Params:      t.Params,
	}
}
