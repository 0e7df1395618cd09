// Package alerting raises and manages low stock alerts. Alerts
// deduplicate per product and never resolve automatically; a human
// acknowledges them.
package alerting

import (
	"context"

	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// AlertStore persists alerts
type AlertStore interface {
	CreateIfAbsent(ctx context.Context, alert *repository.LowStockAlert) (bool, error)
	GetByID(ctx context.Context, id string) (*repository.LowStockAlert, error)
	Acknowledge(ctx context.Context, id, actorID string) (*repository.LowStockAlert, error)
	ListOpen(ctx context.Context) ([]*repository.LowStockAlert, error)
}

// StockReader reads current stock levels
type StockReader interface {
	GetProduct(ctx context.Context, productID string) (*repository.Product, error)
	TotalStock(ctx context.Context, productID string) (decimal.Decimal, error)
}

// Engine checks stock against thresholds and manages the alert lifecycle
type Engine struct {
	alerts    AlertStore
	stock     StockReader
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewEngine creates a new alerting engine. publisher may be nil.
func NewEngine(alerts AlertStore, stock StockReader, publisher *events.InventoryEventPublisher, log *logger.Logger) *Engine {
	return &Engine{
		alerts:    alerts,
		stock:     stock,
		publisher: publisher,
		logger:    log,
	}
}

// Check evaluates one product against its threshold and raises an alert
// if stock is at or below it. Returns the alert when a new one was created,
// nil when stock is fine or an unacknowledged alert already exists.
func (e *Engine) Check(ctx context.Context, productID string) (*repository.LowStockAlert, error) {
	product, err := e.stock.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	stock, err := e.stock.TotalStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	return e.evaluate(ctx, product, stock)
}

// StockChanged is called by the ledger after a mutation commits. Errors
// are logged, never propagated; alerting must not fail the mutation.
func (e *Engine) StockChanged(ctx context.Context, product *repository.Product, stock decimal.Decimal) {
	if _, err := e.evaluate(ctx, product, stock); err != nil {
		e.logger.Error().Err(err).Str("product_id", product.ID).Msg("low stock check failed")
	}
}

func (e *Engine) evaluate(ctx context.Context, product *repository.Product, stock decimal.Decimal) (*repository.LowStockAlert, error) {
	if stock.GreaterThan(product.MinThreshold) {
		return nil, nil
	}

	alert := &repository.LowStockAlert{
		ProductID:    product.ID,
		ProductName:  product.Name,
		CurrentStock: stock,
		Threshold:    product.MinThreshold,
		IsCritical:   product.IsCritical,
	}

	created, err := e.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, nil
	}

	e.logger.Info().
		Str("product_id", product.ID).
		Str("product", product.Name).
		Str("stock", stock.String()).
		Str("threshold", product.MinThreshold.String()).
		Bool("critical", product.IsCritical).
		Msg("low stock alert raised")

	if e.publisher != nil {
		e.publisher.PublishAlertCreated(ctx, alert)
	}

	return alert, nil
}

// Acknowledge marks an alert as handled. Once acknowledged, the product
// becomes eligible for a fresh alert on the next threshold breach.
func (e *Engine) Acknowledge(ctx context.Context, alertID, actorID string) (*repository.LowStockAlert, error) {
	return e.alerts.Acknowledge(ctx, alertID, actorID)
}

// ListOpenAlerts lists unacknowledged alerts, newest first
func (e *Engine) ListOpenAlerts(ctx context.Context) ([]*repository.LowStockAlert, error) {
	return e.alerts.ListOpen(ctx)
}
