package handlers

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
)

// ToolsHandlers serves calibrated tool CRUD.
type ToolsHandlers struct {
	tools  *repository.ToolRepository
	logger *zap.Logger
}

// NewToolsHandlers returns handler struct.
func NewToolsHandlers(tools *repository.ToolRepository, logger *zap.Logger) *ToolsHandlers {
	return &ToolsHandlers{tools: tools, logger: logger}
}

// List handles GET /api/tools.
func (h *ToolsHandlers) List(w http.ResponseWriter, r *http.Request) {
	tools, err := h.tools.List(r.Context())
	if err != nil {
		h.logger.Error("list tools failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// ListAvailable handles GET /api/tools/available. Only active tools
// whose calibration is still valid are returned.
func (h *ToolsHandlers) ListAvailable(w http.ResponseWriter, r *http.Request) {
	tools, err := h.tools.ListAvailable(r.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Error("list available tools failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

// Get handles GET /api/tools/{id}.
func (h *ToolsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tool id")
		return
	}
	tool, err := h.tools.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// Create handles POST /api/tools.
func (h *ToolsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var tool models.Tool
	if err := decodeJSON(w, r, &tool); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tool.AssetTag = strings.TrimSpace(tool.AssetTag)
	if tool.AssetTag == "" || tool.Name == "" {
		writeError(w, http.StatusBadRequest, "asset_tag and name are required")
		return
	}
	if err := h.tools.Create(r.Context(), &tool); err != nil {
		h.logger.Error("create tool failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

// Update handles PUT /api/tools/{id}.
func (h *ToolsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tool id")
		return
	}
	var tool models.Tool
	if err := decodeJSON(w, r, &tool); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tool.ID = id
	if err := h.tools.Update(r.Context(), &tool); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

// Delete handles DELETE /api/tools/{id}.
func (h *ToolsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tool id")
		return
	}
	if err := h.tools.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
