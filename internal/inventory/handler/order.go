package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// OrderHandler handles supplier order lifecycle endpoints
type OrderHandler struct {
	orders    *repository.OrderRepository
	products  *repository.ProductRepository
	engine    *ledger.Engine
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewOrderHandler creates a new order handler. publisher may be nil.
func NewOrderHandler(orders *repository.OrderRepository, products *repository.ProductRepository, engine *ledger.Engine, publisher *events.InventoryEventPublisher, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		products:  products,
		engine:    engine,
		publisher: publisher,
		logger:    log,
	}
}

// UpdateStatusRequest is the payload for a status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed delivered cancelled"`
	// ExpiryDate applies to batches created on delivery
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

// List lists orders, optionally filtered by status
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	status := repository.OrderStatus(r.URL.Query().Get("status"))

	orders, total, err := h.orders.List(r.Context(), status, page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, orders, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets an order with its lines
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, order)
}

// UpdateStatus transitions an order. A delivery books every line into
// the ledger as a received batch before the status flips.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	newStatus := repository.OrderStatus(req.Status)

	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	oldStatus := order.Status

	if !repository.CanTransition(oldStatus, newStatus) {
		httputil.Error(w, errors.Conflict(
			"order cannot move from "+string(oldStatus)+" to "+string(newStatus)))
		return
	}

	if newStatus == repository.OrderDelivered {
		if err := h.receiveDelivery(r, order, req.ExpiryDate); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	updated, err := h.orders.UpdateStatus(r.Context(), id, newStatus)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if h.publisher != nil {
		h.publisher.PublishOrderStatusChanged(r.Context(), id, oldStatus, newStatus)
	}

	httputil.JSON(w, http.StatusOK, updated)
}

// receiveDelivery books each order line into the ledger
func (h *OrderHandler) receiveDelivery(r *http.Request, order *repository.SupplierOrder, expiry *time.Time) error {
	actorID := httputil.GetActorID(r.Context())

	for _, line := range order.Lines {
		quantity := line.PackSize.Mul(decimal.NewFromInt(int64(line.Packs)))
		if !quantity.IsPositive() {
			continue
		}

		unitCost := decimal.Zero
		if !line.PackSize.IsZero() {
			unitCost = line.PackCost.Div(line.PackSize)
		}

		lineExpiry := expiry
		if lineExpiry == nil {
			if product, err := h.products.GetByID(r.Context(), line.ProductID); err == nil && product.ShelfLifeDays != nil {
				e := time.Now().AddDate(0, 0, *product.ShelfLifeDays)
				lineExpiry = &e
			}
		}

		if _, err := h.engine.Add(r.Context(), line.ProductID, quantity, unitCost, lineExpiry, actorID, order.ID); err != nil {
			return err
		}
	}

	return nil
}
