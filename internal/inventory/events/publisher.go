package events

import (
	"context"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/prepflow/prepflow-backend/pkg/messaging"
)

// InventoryEventPublisher publishes inventory-related events.
// A nil publisher is safe to call; every method no-ops. This keeps
// event wiring optional in tests and local development.
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	ordering  *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	ordering, err := messaging.NewPublisher(rmq, messaging.ExchangeOrderingEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		ordering:  ordering,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *InventoryEventPublisher) PublishStockAdjusted(ctx context.Context, adj *repository.Adjustment) {
	if p == nil {
		return
	}

	reason := ""
	if adj.Reason != nil {
		reason = *adj.Reason
	}

	data := messaging.StockAdjustedEvent{
		AdjustmentID:   adj.ID,
		ProductID:      adj.ProductID,
		AdjustmentType: string(adj.Type),
		Quantity:       adj.Quantity,
		StockAfter:     adj.StockAfter,
		Reason:         reason,
		AdjustedAt:     adj.CreatedAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("product_id", adj.ProductID).Msg("failed to publish stock adjusted event")
	}
}

// PublishAlertCreated publishes a low stock alert event
func (p *InventoryEventPublisher) PublishAlertCreated(ctx context.Context, alert *repository.LowStockAlert) {
	if p == nil {
		return
	}

	data := messaging.AlertCreatedEvent{
		AlertID:      alert.ID,
		ProductID:    alert.ProductID,
		ProductName:  alert.ProductName,
		CurrentStock: alert.CurrentStock,
		Threshold:    alert.Threshold,
		IsCritical:   alert.IsCritical,
		CreatedAt:    alert.CreatedAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertCreated, data); err != nil {
		p.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert created event")
	}
}

// PublishBatchExpiring publishes a batch expiring event
func (p *InventoryEventPublisher) PublishBatchExpiring(ctx context.Context, batch *repository.Batch) {
	if p == nil || batch.ExpiryDate == nil {
		return
	}

	data := messaging.BatchExpiringEvent{
		BatchID:    batch.ID,
		ProductID:  batch.ProductID,
		Quantity:   batch.Quantity,
		ExpiryDate: *batch.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchExpiring, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch expiring event")
	}
}

// PublishOrderProposed publishes an order proposed event
func (p *InventoryEventPublisher) PublishOrderProposed(ctx context.Context, order *repository.SupplierOrder) {
	if p == nil {
		return
	}

	data := messaging.OrderProposedEvent{
		OrderID:    order.ID,
		SupplierID: order.SupplierID,
		TotalCost:  order.TotalCost,
		LineCount:  len(order.Lines),
		ProposedAt: order.CreatedAt,
	}

	if err := p.ordering.Publish(ctx, messaging.EventOrderProposed, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order proposed event")
	}
}

// PublishOrderStatusChanged publishes an order status change event
func (p *InventoryEventPublisher) PublishOrderStatusChanged(ctx context.Context, orderID string, oldStatus, newStatus repository.OrderStatus) {
	if p == nil {
		return
	}

	data := messaging.OrderStatusChangedEvent{
		OrderID:   orderID,
		OldStatus: string(oldStatus),
		NewStatus: string(newStatus),
		ChangedAt: time.Now().UTC(),
	}

	if err := p.ordering.Publish(ctx, messaging.EventOrderStatusChanged, data); err != nil {
		p.logger.Error().Err(err).Str("order_id", orderID).Msg("failed to publish order status changed event")
	}
}
