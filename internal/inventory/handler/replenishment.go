package handler

import (
	"net/http"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/planning"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/cache"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
)

const planCacheKind = "replenishment-plan"

// ReplenishmentHandler handles forecast translation and reorder planning
type ReplenishmentHandler struct {
	translator *planning.Translator
	engine     *planning.ReplenishmentEngine
	orders     *repository.OrderRepository
	plans      *cache.Cache
	horizon    int
	logger     *logger.Logger
}

// NewReplenishmentHandler creates a new replenishment handler
func NewReplenishmentHandler(translator *planning.Translator, engine *planning.ReplenishmentEngine, orders *repository.OrderRepository, defaultHorizonDays int, log *logger.Logger) *ReplenishmentHandler {
	return &ReplenishmentHandler{
		translator: translator,
		engine:     engine,
		orders:     orders,
		plans:      cache.New(),
		horizon:    defaultHorizonDays,
		logger:     log,
	}
}

// PlanRequest carries a forecast to plan against
type PlanRequest struct {
	Forecast []planning.ForecastPoint `json:"forecast" validate:"required,min=1"`
	// Propose persists the grouped orders as pending drafts
	Propose bool `json:"propose,omitempty"`
}

// PlanResponse is the outcome of one planning run
type PlanResponse struct {
	HorizonDays  int                               `json:"horizon_days"`
	Requirements []*planning.IngredientRequirement `json:"requirements"`
	Orders       []*repository.SupplierOrder       `json:"orders"`
}

// Plan translates a forecast into ingredient requirements and groups
// them into supplier orders
func (h *ReplenishmentHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	demand, err := h.translator.Translate(r.Context(), req.Forecast)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	horizon := planning.HorizonDays(req.Forecast)
	if horizon < 1 {
		horizon = h.horizon
	}

	requirements, err := h.engine.ComputeRequirements(r.Context(), demand, horizon)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var orders []*repository.SupplierOrder
	if req.Propose {
		orders, err = h.engine.ProposeOrders(r.Context(), requirements, h.orders)
		if err != nil {
			httputil.Error(w, err)
			return
		}
	} else {
		orders = h.engine.GroupBySupplier(requirements)
	}

	plan := &PlanResponse{
		HorizonDays:  horizon,
		Requirements: requirements,
		Orders:       orders,
	}
	h.plans.Set(planCacheKind, "latest", plan)

	httputil.JSON(w, http.StatusOK, plan)
}

// LatestPlan returns the most recent planning run, if one happened in
// the last 24 hours. Requirements are ephemeral; anything older must be
// recomputed against live stock.
func (h *ReplenishmentHandler) LatestPlan(w http.ResponseWriter, r *http.Request) {
	cached, ok := h.plans.Get(planCacheKind, "latest", 24*time.Hour)
	if !ok {
		httputil.Error(w, errors.NotFound("replenishment plan"))
		return
	}

	httputil.JSON(w, http.StatusOK, cached)
}
