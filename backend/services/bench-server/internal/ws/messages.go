package ws

import (
	"encoding/json"

	"cellbench/backend/services/bench-server/internal/models"
)

// Live feed message types.
const (
	MessageInitial       = "initial"
	MessageUpdate        = "update"
	MessageStationUpdate = "station_update"
	MessageAwaitingInput = "task_awaiting_input"
	MessageAlert         = "alert"
)

// Bare text keepalive frames. Never JSON.
const (
	framePing = "ping"
	framePong = "pong"
)

type snapshotMessage struct {
	Type string                 `json:"type"`
	Data []models.StationStatus `json:"data"`
}

type stationUpdateMessage struct {
	Type      string               `json:"type"`
	StationID int                  `json:"station_id"`
	Data      models.StationStatus `json:"data"`
}

type awaitingInputMessage struct {
	Type      string              `json:"type"`
	StationID int                 `json:"station_id"`
	Task      models.AwaitingTask `json:"task"`
}

type alertMessage struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// MarshalInitial renders the full snapshot sent once after connect.
func MarshalInitial(stations []models.StationStatus) ([]byte, error) {
	return json.Marshal(snapshotMessage{Type: MessageInitial, Data: stations})
}

// MarshalUpdate renders the recurring full snapshot.
func MarshalUpdate(stations []models.StationStatus) ([]byte, error) {
	return json.Marshal(snapshotMessage{Type: MessageUpdate, Data: stations})
}

// MarshalStationUpdate renders a single-station change event.
func MarshalStationUpdate(status models.StationStatus) ([]byte, error) {
	return json.Marshal(stationUpdateMessage{
		Type:      MessageStationUpdate,
		StationID: status.StationID,
		Data:      status,
	})
}

// MarshalAwaitingInput renders the manual-step notification.
func MarshalAwaitingInput(stationID int, task models.AwaitingTask) ([]byte, error) {
	return json.Marshal(awaitingInputMessage{
		Type:      MessageAwaitingInput,
		StationID: stationID,
		Task:      task,
	})
}

// MarshalAlert renders a system alert. Severity is info, warning or error.
func MarshalAlert(severity, message string) ([]byte, error) {
	return json.Marshal(alertMessage{Type: MessageAlert, Severity: severity, Message: message})
}
