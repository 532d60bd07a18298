package service

import "cellbench/backend/services/bench-server/internal/models"

// Events receives bench-side state changes for fan-out to dashboards.
// The app layer adapts it onto the websocket hub.
type Events interface {
	StationChanged(status models.StationStatus)
	AwaitingInput(stationID int, task models.AwaitingTask)
	Alert(severity, message string)
}

// NopEvents discards everything. Used by tests and the seed tool.
type NopEvents struct{}

func (NopEvents) StationChanged(models.StationStatus)    {}
func (NopEvents) AwaitingInput(int, models.AwaitingTask) {}
func (NopEvents) Alert(string, string)                   {}

// NopPower accepts every power command without driving hardware.
// Stands in when the simulator is off and no poller is attached.
type NopPower struct{}

func (NopPower) SetCharge(stationID, voltageMV, currentMA int) error {
	return nil
}

func (NopPower) SetDischarge(stationID, currentMA, voltageMinMV int) error {
	return nil
}

func (NopPower) Disable(stationID int) error {
	return nil
}
