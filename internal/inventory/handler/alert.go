package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prepflow/prepflow-backend/internal/inventory/alerting"
	"github.com/prepflow/prepflow-backend/pkg/httputil"
	"github.com/prepflow/prepflow-backend/pkg/logger"
)

// AlertHandler handles low stock alert endpoints
type AlertHandler struct {
	engine *alerting.Engine
	logger *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(engine *alerting.Engine, log *logger.Logger) *AlertHandler {
	return &AlertHandler{engine: engine, logger: log}
}

// ListOpen lists unacknowledged alerts, newest first
func (h *AlertHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.engine.ListOpenAlerts(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alerts)
}

// Acknowledge marks an alert as handled
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	alert, err := h.engine.Acknowledge(r.Context(), id, httputil.GetActorID(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, alert)
}

// Check re-evaluates one product against its threshold on demand
func (h *AlertHandler) Check(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	alert, err := h.engine.Check(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if alert == nil {
		httputil.NoContent(w)
		return
	}
	httputil.Created(w, alert)
}
