// Package consumers wires RabbitMQ event streams into the ledger.
package consumers

import (
	"context"

	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/planning"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/prepflow/prepflow-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// SalesEventConsumer consumes POS sale events and drains ingredient
// stock through the ledger
type SalesEventConsumer struct {
	consumer *messaging.Consumer
	recipes  planning.RecipeReader
	engine   *ledger.Engine
	logger   *logger.Logger
}

// NewSalesEventConsumer creates a new sales event consumer
func NewSalesEventConsumer(rmq *messaging.RabbitMQ, recipes planning.RecipeReader, engine *ledger.Engine, log *logger.Logger) (*SalesEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.pos-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangePOSEvents, "pos.sale.#"); err != nil {
		return nil, err
	}

	c := &SalesEventConsumer{
		consumer: consumer,
		recipes:  recipes,
		engine:   engine,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventPOSSaleRecorded, c.handleSaleRecorded)

	return c, nil
}

// Start starts consuming messages
func (c *SalesEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// handleSaleRecorded expands each sold menu item through its recipe and
// consumes the ingredients. Per-line criticality decides whether a
// shortfall fails the line or records a partial consumption.
func (c *SalesEventConsumer) handleSaleRecorded(ctx context.Context, event *messaging.Event) error {
	var data messaging.POSSaleRecordedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("sale_id", data.SaleID).
		Int("lines", len(data.Lines)).
		Msg("received sale recorded event")

	for _, saleLine := range data.Lines {
		if !saleLine.Quantity.IsPositive() {
			continue
		}

		lines, err := c.recipes.LinesForMenuItem(ctx, saleLine.MenuItemID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			c.logger.Debug().
				Str("menu_item_id", saleLine.MenuItemID).
				Msg("sold menu item has no recipe, skipping")
			continue
		}

		for _, line := range lines {
			if err := c.consumeLine(ctx, data.SaleID, line, saleLine.Quantity); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *SalesEventConsumer) consumeLine(ctx context.Context, saleID string, line *repository.RecipeLine, sold decimal.Decimal) error {
	need := line.Quantity.Mul(sold)
	critical := line.IsCritical

	result, err := c.engine.Consume(ctx, line.ProductID, need, ledger.ConsumeOptions{
		Type:        repository.AdjustmentSale,
		Reason:      "pos sale",
		ReferenceID: saleID,
		Critical:    &critical,
	})
	if err != nil {
		// Insufficient stock on a critical ingredient means the ledger
		// has drifted from reality. Drop the line to the DLQ instead of
		// retrying forever; the stock will not appear on its own.
		if errors.Is(err, errors.ErrInsufficientStock) {
			c.logger.Warn().
				Str("sale_id", saleID).
				Str("product_id", line.ProductID).
				Str("needed", need.String()).
				Msg("critical ingredient short on sale, ledger needs a stocktake")
			return err
		}
		return err
	}

	if result.Partial {
		c.logger.Warn().
			Str("sale_id", saleID).
			Str("product_id", line.ProductID).
			Str("requested", result.Requested.String()).
			Str("fulfilled", result.Fulfilled.String()).
			Msg("partial consumption on sale")
	}

	return nil
}
