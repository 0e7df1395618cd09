package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// StockHandler handles ledger mutation endpoints
type StockHandler struct {
	engine      *ledger.Engine
	adjustments *repository.AdjustmentRepository
	stock       *repository.StockRepository
	logger      *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(engine *ledger.Engine, adjustments *repository.AdjustmentRepository, stock *repository.StockRepository, log *logger.Logger) *StockHandler {
	return &StockHandler{
		engine:      engine,
		adjustments: adjustments,
		stock:       stock,
		logger:      log,
	}
}

// AddBatchRequest is the payload for receiving stock
type AddBatchRequest struct {
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	ReferenceID string          `json:"reference_id,omitempty"`
}

// ConsumeRequest is the payload for consuming stock
type ConsumeRequest struct {
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	Type        string          `json:"type,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	ReferenceID string          `json:"reference_id,omitempty"`
	Critical    *bool           `json:"critical,omitempty"`
}

// AdjustRequest is the payload for a manual correction
type AdjustRequest struct {
	Delta  decimal.Decimal `json:"delta" validate:"required"`
	Reason string          `json:"reason" validate:"required"`
}

// AddBatch receives a new batch for a product
func (h *StockHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req AddBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	actorID := httputil.GetActorID(r.Context())
	adj, err := h.engine.Add(r.Context(), productID, req.Quantity, req.UnitCost, req.ExpiryDate, actorID, req.ReferenceID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, adj)
}

// Consume drains stock FIFO
func (h *StockHandler) Consume(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req ConsumeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.engine.Consume(r.Context(), productID, req.Quantity, ledger.ConsumeOptions{
		Type:        repository.AdjustmentType(req.Type),
		Reason:      req.Reason,
		ActorID:     httputil.GetActorID(r.Context()),
		ReferenceID: req.ReferenceID,
		Critical:    req.Critical,
	})
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

// Adjust applies a signed manual correction
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req AdjustRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	adj, err := h.engine.AdjustManual(r.Context(), productID, req.Delta, req.Reason, httputil.GetActorID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, adj)
}

// TotalStock returns a product's current stock level
func (h *StockHandler) TotalStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	stock, err := h.engine.TotalStock(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"product_id":  productID,
		"total_stock": stock,
	})
}

// Batches lists a product's batches in FIFO order
func (h *StockHandler) Batches(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	batches, err := h.engine.FIFOBatches(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// History lists a product's adjustment ledger, newest first
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	adjustments, total, err := h.adjustments.ListByProduct(r.Context(), productID, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, adjustments, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Expiring lists batches expiring within the requested window
func (h *StockHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < 1 {
		days = 7
	}

	batches, err := h.stock.ListExpiring(r.Context(), days)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}
