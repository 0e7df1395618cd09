package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	products *repository.ProductRepository
	engine   *ledger.Engine
	logger   *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *repository.ProductRepository, engine *ledger.Engine, log *logger.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		engine:   engine,
		logger:   log,
	}
}

// ProductWithStock is a product enriched with its live stock position
type ProductWithStock struct {
	*repository.Product
	TotalStock decimal.Decimal     `json:"total_stock"`
	Batches    []*repository.Batch `json:"batches,omitempty"`
}

// List lists products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	category := r.URL.Query().Get("category")

	products, total, err := h.products.List(r.Context(), page, perPage, category)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	result := make([]*ProductWithStock, len(products))
	for i, product := range products {
		stock, err := h.engine.TotalStock(r.Context(), product.ID)
		if err != nil {
			httputil.Error(w, err)
			return
		}
		result[i] = &ProductWithStock{Product: product, TotalStock: stock}
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, result, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// Get gets a product with its batches in FIFO order
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batches, err := h.engine.FIFOBatches(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	stock := decimal.Zero
	for _, b := range batches {
		stock = stock.Add(b.Quantity)
	}

	httputil.JSON(w, http.StatusOK, &ProductWithStock{
		Product:    product,
		TotalStock: stock,
		Batches:    batches,
	})
}

// Create creates a new product
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var product repository.Product
	if err := httputil.DecodeJSON(r, &product); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&product); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.products.Create(r.Context(), &product); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, product)
}

// Update updates a product
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var product repository.Product
	if err := httputil.DecodeJSON(r, &product); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&product); err != nil {
		httputil.Error(w, err)
		return
	}

	product.ID = id
	if err := h.products.Update(r.Context(), &product); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, product)
}

// Delete deletes a product
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.products.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
