package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
	"cellbench/backend/services/bench-server/internal/service"
)

// JobTasksHandlers serves job step listings and manual result intake.
type JobTasksHandlers struct {
	tasks  *repository.JobTaskRepository
	runner *service.TaskRunner
	logger *zap.Logger
}

// NewJobTasksHandlers returns handler struct.
func NewJobTasksHandlers(tasks *repository.JobTaskRepository, runner *service.TaskRunner, logger *zap.Logger) *JobTasksHandlers {
	return &JobTasksHandlers{tasks: tasks, runner: runner, logger: logger}
}

// ListByJob handles GET /api/job-tasks/job/{jobID}.
func (h *JobTasksHandlers) ListByJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathInt64(r, "jobID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	tasks, err := h.tasks.ListBySession(r.Context(), jobID)
	if err != nil {
		h.logger.Error("list job tasks failed", zap.Int64("session", jobID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// AwaitingByStation handles GET /api/job-tasks/awaiting-input/{stationID}.
func (h *JobTasksHandlers) AwaitingByStation(w http.ResponseWriter, r *http.Request) {
	stationID, err := pathInt(r, "stationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	tasks, err := h.tasks.ListAwaitingByStation(r.Context(), stationID)
	if err != nil {
		h.logger.Error("list awaiting tasks failed", zap.Int("station", stationID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Submit handles POST /api/job-tasks/{id}/submit.
func (h *JobTasksHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var result models.ManualResult
	if err := decodeJSON(w, r, &result); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.runner.SubmitManualResult(id, result); err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info("manual result submitted",
		zap.Int64("task", id),
		zap.String("result", result.StepResult))
	writeJSON(w, http.StatusOK, map[string]string{"message": "submitted"})
}

// Skip handles POST /api/job-tasks/{id}/skip.
func (h *JobTasksHandlers) Skip(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := h.runner.SkipTask(id); err != nil {
		writeServiceError(w, err)
		return
	}
	h.logger.Info("task skipped", zap.Int64("task", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "skipped"})
}
