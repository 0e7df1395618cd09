package alerting

import (
	"context"
	"fmt"

	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/logger"
)

// ProductLister lists all tracked products
type ProductLister interface {
	ListAll(ctx context.Context) ([]*repository.Product, error)
}

// ExpiryReader lists batches approaching expiry
type ExpiryReader interface {
	ListExpiring(ctx context.Context, withinDays int) ([]*repository.Batch, error)
}

// Scanner sweeps the whole inventory for conditions the per-mutation
// checks can miss, such as thresholds raised after the last mutation or
// batches drifting toward expiry.
type Scanner struct {
	engine            *Engine
	products          ProductLister
	expiry            ExpiryReader
	publisher         *events.InventoryEventPublisher
	expiryWarningDays int
	logger            *logger.Logger
}

// NewScanner creates a new scanner. expiry and publisher may be nil.
func NewScanner(engine *Engine, products ProductLister, expiry ExpiryReader, publisher *events.InventoryEventPublisher, expiryWarningDays int, log *logger.Logger) *Scanner {
	return &Scanner{
		engine:            engine,
		products:          products,
		expiry:            expiry,
		publisher:         publisher,
		expiryWarningDays: expiryWarningDays,
		logger:            log,
	}
}

// ScanAll runs all scans. Logs errors but keeps scanning.
func (s *Scanner) ScanAll(ctx context.Context) error {
	scans := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"low_stock", s.scanLowStock},
		{"expiring", s.scanExpiring},
	}

	var lastErr error
	for _, scan := range scans {
		if err := scan.fn(ctx); err != nil {
			s.logger.Error().Err(err).Str("scan", scan.name).Msg("alert scan failed")
			lastErr = err
		}
	}

	return lastErr
}

// scanLowStock re-checks every product against its threshold
func (s *Scanner) scanLowStock(ctx context.Context) error {
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("scanLowStock: list products: %w", err)
	}

	for _, product := range products {
		if _, err := s.engine.Check(ctx, product.ID); err != nil {
			s.logger.Error().Err(err).Str("product_id", product.ID).Msg("scanLowStock: check failed")
		}
	}

	return nil
}

// scanExpiring publishes events for batches inside the warning window
func (s *Scanner) scanExpiring(ctx context.Context) error {
	if s.expiry == nil {
		return nil
	}

	batches, err := s.expiry.ListExpiring(ctx, s.expiryWarningDays)
	if err != nil {
		return fmt.Errorf("scanExpiring: list batches: %w", err)
	}

	for _, batch := range batches {
		if s.publisher != nil {
			s.publisher.PublishBatchExpiring(ctx, batch)
		}
	}

	if len(batches) > 0 {
		s.logger.Info().Int("count", len(batches)).Msg("batches approaching expiry")
	}

	return nil
}
