package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/service"
)

// StationsHandlers serves station snapshots and control verbs.
type StationsHandlers struct {
	stations *service.StationManager
	runner   *service.TaskRunner
	logger   *zap.Logger
}

// NewStationsHandlers returns handler struct.
func NewStationsHandlers(stations *service.StationManager, runner *service.TaskRunner, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{stations: stations, runner: runner, logger: logger}
}

// List handles GET /api/stations.
func (h *StationsHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stations.Snapshot())
}

// Get handles GET /api/stations/{id}.
func (h *StationsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	status, err := h.stations.Get(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Control handles POST /api/stations/control.
func (h *StationsHandlers) Control(w http.ResponseWriter, r *http.Request) {
	var cmd models.ManualControlCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	message, err := h.stations.ManualControl(cmd)
	if err != nil {
		h.logger.Warn("manual control rejected",
			zap.Int("station", cmd.StationID),
			zap.String("command", cmd.Command),
			zap.Error(err))
		writeServiceError(w, err)
		return
	}

	h.logger.Info("manual control",
		zap.Int("station", cmd.StationID),
		zap.String("command", cmd.Command))
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// StartRecipe handles POST /api/stations/start-recipe.
func (h *StationsHandlers) StartRecipe(w http.ResponseWriter, r *http.Request) {
	var cmd models.RecipeStartCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := h.runner.StartRecipe(r.Context(), cmd)
	if err != nil {
		h.logger.Warn("start recipe rejected",
			zap.Int("station", cmd.StationID),
			zap.Int64("recipe", cmd.RecipeID),
			zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// Stop handles POST /api/stations/{id}/stop. It aborts an automated
// run when one is active, otherwise cuts manual power.
func (h *StationsHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}

	err = h.runner.Abort(id)
	if errors.Is(err, service.ErrNoActiveRun) {
		err = h.stations.Stop(id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("station stopped", zap.Int("station", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "stopped"})
}

// Reset handles POST /api/stations/{id}/reset.
func (h *StationsHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	if err := h.stations.Reset(id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info("station reset", zap.Int("station", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset"})
}

// EEPROM handles GET /api/stations/{id}/eeprom.
func (h *StationsHandlers) EEPROM(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	cfg, err := h.stations.ReadEEPROM(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if cfg == nil {
		writeError(w, http.StatusNotFound, "no battery docked")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
