// Package livesync keeps a local copy of the bench's live station
// feed: one websocket connection, automatically maintained, fanned out
// to every console view through a shared read-only store.
package livesync

import "encoding/json"

// Message kinds the registry recognizes. Anything else on the wire is
// ignored.
const (
	MessageInitial       = "initial"
	MessageUpdate        = "update"
	MessageAwaitingInput = "task_awaiting_input"
)

// Station state values carried in StationStatus.State.
const (
	StationEmpty        = "empty"
	StationDockDetected = "dock_detected"
	StationReady        = "ready"
	StationRunning      = "running"
	StationComplete     = "complete"
	StationError        = "error"
)

// ConnState is the connection manager's lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// StationStatus is one bay's live record as carried by snapshot
// frames. The layer keys it by StationID and passes everything else
// through untouched; interpreting State is the UI's business.
type StationStatus struct {
	StationID        int             `json:"station_id"`
	State            string          `json:"state"`
	TemperatureC     *float64        `json:"temperature_c"`
	TemperatureValid bool            `json:"temperature_valid"`
	VoltageMV        *int            `json:"voltage_mv"`
	CurrentMA        *int            `json:"current_ma"`
	EEPROMPresent    bool            `json:"eeprom_present"`
	ErrorMessage     *string         `json:"error_message"`
	SessionID        *int64          `json:"session_id"`
	WorkOrderItemID  *int64          `json:"work_order_item_id"`
	TestPhase        *string         `json:"test_phase"`
	ElapsedTimeS     *float64        `json:"elapsed_time_s"`
	BatteryConfig    json.RawMessage `json:"battery_config,omitempty"`
}

// AwaitingTask describes the manual step a station is paused on.
type AwaitingTask struct {
	TaskID      int64           `json:"task_id"`
	TaskNumber  int             `json:"task_number"`
	Label       string          `json:"label"`
	StepType    string          `json:"step_type"`
	Description string          `json:"description"`
	Params      json.RawMessage `json:"params,omitempty"`
}

// envelope is the common frame header; payload fields are decoded
// lazily per message kind.
type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	StationID int             `json:"station_id"`
	Task      json.RawMessage `json:"task"`
}
