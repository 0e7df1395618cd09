package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/stocktake"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// StocktakeHandler handles physical count reconciliation endpoints
type StocktakeHandler struct {
	reconciler *stocktake.Reconciler
	logger     *logger.Logger
}

// NewStocktakeHandler creates a new stocktake handler
func NewStocktakeHandler(reconciler *stocktake.Reconciler, log *logger.Logger) *StocktakeHandler {
	return &StocktakeHandler{reconciler: reconciler, logger: log}
}

// ReconcileRequest is the payload for a single count
type ReconcileRequest struct {
	Counted decimal.Decimal `json:"counted"`
}

// ReconcileAllRequest is the payload for a full count sheet
type ReconcileAllRequest struct {
	Counts []stocktake.Count `json:"counts" validate:"required,min=1,dive"`
}

// ReconcileAllResponse reports per-line outcomes
type ReconcileAllResponse struct {
	Results []*stocktake.Result `json:"results"`
	Errors  []string            `json:"errors,omitempty"`
}

// Reconcile applies one physical count
func (h *StocktakeHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req ReconcileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.Counted.IsNegative() {
		httputil.Error(w, errors.InvalidQuantity("counted quantity must not be negative"))
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), productID, req.Counted, httputil.GetActorID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// ReconcileAll applies a full count sheet
func (h *StocktakeHandler) ReconcileAll(w http.ResponseWriter, r *http.Request) {
	var req ReconcileAllRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	results, errs := h.reconciler.ReconcileAll(r.Context(), req.Counts, httputil.GetActorID(r.Context()))

	resp := &ReconcileAllResponse{Results: results}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}

	status := http.StatusOK
	if len(errs) > 0 {
		status = http.StatusMultiStatus
	}
	httputil.JSON(w, status, resp)
}
