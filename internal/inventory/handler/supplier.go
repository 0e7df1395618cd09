package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
)

// SupplierHandler handles supplier catalog endpoints
type SupplierHandler struct {
	suppliers *repository.SupplierRepository
	logger    *logger.Logger
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(suppliers *repository.SupplierRepository, log *logger.Logger) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers, logger: log}
}

// List lists catalog entries, optionally for one supplier
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	supplierID := r.URL.Query().Get("supplier_id")

	var entries []*repository.CatalogEntry
	var err error
	if supplierID != "" {
		entries, err = h.suppliers.ListBySupplier(r.Context(), supplierID)
	} else {
		entries, err = h.suppliers.ListAll(r.Context())
	}
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Upsert creates or replaces a catalog entry
func (h *SupplierHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var entry repository.CatalogEntry
	if err := httputil.DecodeJSON(r, &entry); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&entry); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.suppliers.Upsert(r.Context(), &entry); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, entry)
}

// Delete removes a catalog entry
func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.suppliers.Delete(r.Context(), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
