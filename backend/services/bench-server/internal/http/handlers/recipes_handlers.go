package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"cellbench/backend/services/bench-server/internal/repository"
)

// RecipesHandlers serves the test recipe catalog.
type RecipesHandlers struct {
	recipes *repository.RecipeRepository
	logger  *zap.Logger
}

// NewRecipesHandlers returns handler struct.
func NewRecipesHandlers(recipes *repository.RecipeRepository, logger *zap.Logger) *RecipesHandlers {
	return &RecipesHandlers{recipes: recipes, logger: logger}
}

// List handles GET /api/recipes. Pass all=true to include retired ones.
func (h *RecipesHandlers) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") != "true"
	recipes, err := h.recipes.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list recipes failed", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Get handles GET /api/recipes/{id} and returns the recipe with steps.
func (h *RecipesHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipe id")
		return
	}
	recipe, err := h.recipes.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}
