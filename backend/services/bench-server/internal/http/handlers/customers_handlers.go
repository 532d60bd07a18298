package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/models"
	"cellbench/backend/services/bench-server/internal/repository"
)

// CustomersHandlers serves customer CRUD.
type CustomersHandlers struct {
	customers *repository.CustomerRepository
	logger    *zap.Logger
}

// NewCustomersHandlers returns handler struct.
func NewCustomersHandlers(customers *repository.CustomerRepository, logger *zap.Logger) *CustomersHandlers {
	return &CustomersHandlers{customers: customers, logger: logger}
}

// List handles GET /api/customers.
func (h *CustomersHandlers) List(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		h.logger.Error("list customers failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

// Get handles GET /api/customers/{id}.
func (h *CustomersHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	customer, err := h.customers.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Create handles POST /api/customers.
func (h *CustomersHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var customer models.Customer
	if err := decodeJSON(w, r, &customer); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	customer.Name = strings.TrimSpace(customer.Name)
	if customer.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.customers.Create(r.Context(), &customer); err != nil {
		h.logger.Error("create customer failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// Update handles PUT /api/customers/{id}.
func (h *CustomersHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var customer models.Customer
	if err := decodeJSON(w, r, &customer); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	customer.ID = id
	if err := h.customers.Update(r.Context(), &customer); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// Delete handles DELETE /api/customers/{id}.
func (h *CustomersHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	if err := h.customers.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}
