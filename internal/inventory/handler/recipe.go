package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
)

// RecipeHandler handles recipe line endpoints
type RecipeHandler struct {
	recipes *repository.RecipeRepository
	logger  *logger.Logger
}

// NewRecipeHandler creates a new recipe handler
func NewRecipeHandler(recipes *repository.RecipeRepository, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: log}
}

// ListMenuItems lists menu items that have recipes
func (h *RecipeHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.recipes.ListMenuItems(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Lines lists the ingredient lines of one menu item
func (h *RecipeHandler) Lines(w http.ResponseWriter, r *http.Request) {
	menuItemID := chi.URLParam(r, "menuItemId")

	lines, err := h.recipes.LinesForMenuItem(r.Context(), menuItemID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lines)
}

// Upsert creates or replaces a recipe line
func (h *RecipeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var line repository.RecipeLine
	if err := httputil.DecodeJSON(r, &line); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&line); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.recipes.Upsert(r.Context(), &line); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, line)
}

// Delete removes a recipe line
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.recipes.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
