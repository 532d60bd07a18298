package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
)

// WorkOrdersHandlers serves work order and item CRUD.
type WorkOrdersHandlers struct {
	orders *repository.WorkOrderRepository
	logger *zap.Logger
}

// NewWorkOrdersHandlers returns handler struct.
func NewWorkOrdersHandlers(orders *repository.WorkOrderRepository, logger *zap.Logger) *WorkOrdersHandlers {
	return &WorkOrdersHandlers{orders: orders, logger: logger}
}

// List handles GET /api/work-orders.
func (h *WorkOrdersHandlers) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 100)
	orders, err := h.orders.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list work orders failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/work-orders/{id} and returns the order with its items.
func (h *WorkOrdersHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work order id")
		return
	}
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	items, err := h.orders.ListItems(r.Context(), id)
	if err != nil {
		h.logger.Error("list work order items failed", zap.Int64("work_order", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"work_order": order,
		"items":      items,
	})
}

// Create handles POST /api/work-orders.
func (h *WorkOrdersHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var order models.WorkOrder
	if err := decodeJSON(w, r, &order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	order.OrderNumber = strings.TrimSpace(order.OrderNumber)
	if order.OrderNumber == "" || order.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "order_number and customer_id are required")
		return
	}
	if err := h.orders.Create(r.Context(), &order); err != nil {
		h.logger.Error("create work order failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Update handles PUT /api/work-orders/{id}.
func (h *WorkOrdersHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work order id")
		return
	}
	var order models.WorkOrder
	if err := decodeJSON(w, r, &order); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	order.ID = id
	if err := h.orders.Update(r.Context(), &order); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/work-orders/{id}.
func (h *WorkOrdersHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work order id")
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// ListItems handles GET /api/work-orders/{id}/items.
func (h *WorkOrdersHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work order id")
		return
	}
	items, err := h.orders.ListItems(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateItem handles POST /api/work-orders/{id}/items.
func (h *WorkOrdersHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid work order id")
		return
	}
	var item models.WorkOrderItem
	if err := decodeJSON(w, r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	item.WorkOrderID = id
	item.BatterySerial = strings.TrimSpace(item.BatterySerial)
	if item.BatterySerial == "" {
		writeError(w, http.StatusBadRequest, "battery_serial is required")
		return
	}
	if err := h.orders.CreateItem(r.Context(), &item); err != nil {
		h.logger.Error("create work order item failed", zap.Int64("work_order", id), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
