package app

import (
	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/ws"
)

// hubEvents fans service events out to the websocket hub.
type hubEvents struct {
	hub    *ws.Hub
	logger *zap.Logger
}

func (e *hubEvents) StationChanged(status models.StationStatus) {
	payload, err := ws.MarshalStationUpdate(status)
	if err != nil {
		e.logger.Error("marshal station update", zap.Int("station", status.StationID), zap.Error(err))
		return
	}
	e.hub.Broadcast(ws.MessageStationUpdate, payload)
}

func (e *hubEvents) AwaitingInput(stationID int, task models.AwaitingTask) {
	payload, err := ws.MarshalAwaitingInput(stationID, task)
	if err != nil {
		e.logger.Error("marshal awaiting input", zap.Int("station", stationID), zap.Error(err))
		return
	}
	e.hub.Broadcast(ws.MessageAwaitingInput, payload)
}

func (e *hubEvents) Alert(severity, message string) {
	payload, err := ws.MarshalAlert(severity, message)
	if err != nil {
		e.logger.Error("marshal alert", zap.Error(err))
		return
	}
	e.hub.Broadcast(ws.MessageAlert, payload)
}
