package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/http/middleware"
	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/report"
	"cellbench/backend/services/bench-server/internal/repository"
	"cellbench/backend/services/bench-server/internal/service"
)

// ReportsHandlers renders and serves session PDFs.
type ReportsHandlers struct {
	sessions     *repository.SessionRepository
	recipes      *repository.RecipeRepository
	tasks        *repository.JobTaskRepository
	measurements *repository.MeasurementRepository
	users        *repository.UserRepository
	workOrders   *repository.WorkOrderRepository
	customers    *repository.CustomerRepository
	stations     *service.StationManager
	generator    *report.Generator
	dir          string
	logger       *zap.Logger
}

// NewReportsHandlers returns handler struct.
func NewReportsHandlers(
	sessions *repository.SessionRepository,
	recipes *repository.RecipeRepository,
	tasks *repository.JobTaskRepository,
	measurements *repository.MeasurementRepository,
	users *repository.UserRepository,
	workOrders *repository.WorkOrderRepository,
	customers *repository.CustomerRepository,
	stations *service.StationManager,
	generator *report.Generator,
	dir string,
	logger *zap.Logger,
) *ReportsHandlers {
	return &ReportsHandlers{
		sessions:     sessions,
		recipes:      recipes,
		tasks:        tasks,
		measurements: measurements,
		users:        users,
		workOrders:   workOrders,
		customers:    customers,
		stations:     stations,
		generator:    generator,
		dir:          dir,
		logger:       logger,
	}
}

func (h *ReportsHandlers) pdfPath(sessionID int64) string {
	return filepath.Join(h.dir, fmt.Sprintf("session_%d.pdf", sessionID))
}

// Generate handles POST /api/reports/{sessionID}/generate.
func (h *ReportsHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathInt64(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	ctx, span := otel.Tracer("reports").Start(r.Context(), "GenerateReport")
	defer span.End()
	span.SetAttributes(attribute.Int64("session.id", sessionID))

	session, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recipe, err := h.recipes.GetByID(ctx, session.RecipeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tasks, err := h.tasks.ListBySession(ctx, sessionID)
	if err != nil {
		h.logger.Error("load tasks for report failed", zap.Int64("session", sessionID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	measurements, err := h.measurements.ListBySession(ctx, sessionID, 0)
	if err != nil {
		h.logger.Error("load measurements for report failed", zap.Int64("session", sessionID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	var battery *models.BatteryConfig
	if cfg, err := h.stations.ReadEEPROM(session.StationID); err == nil {
		battery = cfg
	}

	var technician string
	if claims, ok := middleware.ClaimsFromContext(ctx); ok {
		if u, err := h.users.GetByID(ctx, claims.UserID); err == nil {
			technician = u.Username
		}
	}

	// Paperwork lookups are best effort: a session without a work
	// order still gets its report.
	var item *models.WorkOrderItem
	var order *models.WorkOrder
	var customer *models.Customer
	if session.WorkOrderItemID != nil {
		if woi, err := h.workOrders.GetItem(ctx, *session.WorkOrderItemID); err == nil {
			item = woi
			if wo, err := h.workOrders.GetByID(ctx, woi.WorkOrderID); err == nil {
				order = wo
				customer, _ = h.customers.GetByID(ctx, wo.CustomerID)
			}
		}
	}

	pdf, err := h.generator.Generate(report.SessionData{
		Session:       *session,
		Recipe:        *recipe,
		Battery:       battery,
		Tasks:         tasks,
		Measurements:  measurements,
		Customer:      customer,
		WorkOrder:     order,
		WorkOrderItem: item,
		Technician:    technician,
	})
	if err != nil {
		h.logger.Error("report generation failed", zap.Int64("session", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("create reports dir failed", zap.String("dir", h.dir), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}
	path := h.pdfPath(sessionID)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		h.logger.Error("write report failed", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	h.logger.Info("report generated",
		zap.Int64("session", sessionID),
		zap.String("path", path),
		zap.Int("bytes", len(pdf)))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"path":  path,
		"bytes": len(pdf),
	})
}

// Download handles GET /api/reports/{sessionID}/download.
func (h *ReportsHandlers) Download(w http.ResponseWriter, r *http.Request) {
	sessionID, err := pathInt64(r, "sessionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	path := h.pdfPath(sessionID)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "report not generated")
		return
	}

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=session_%d.pdf", sessionID))
	http.ServeFile(w, r, path)
}
