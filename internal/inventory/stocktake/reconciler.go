// Package stocktake reconciles physical counts against the ledger.
package stocktake

import (
	"context"

	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Count is one physical count line
type Count struct {
	ProductID string          `json:"product_id" validate:"required"`
	Counted   decimal.Decimal `json:"counted"`
}

// Result reports what one reconciliation did. Adjustment is nil when
// the count matched the ledger.
type Result struct {
	ProductID  string                 `json:"product_id"`
	Counted    decimal.Decimal        `json:"counted"`
	Expected   decimal.Decimal        `json:"expected"`
	Difference decimal.Decimal        `json:"difference"`
	Adjustment *repository.Adjustment `json:"adjustment,omitempty"`
}

// Reconciler applies physical counts to the ledger. It is the only
// component allowed to overwrite ledger state from outside observation.
type Reconciler struct {
	engine *ledger.Engine
	logger *logger.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(engine *ledger.Engine, log *logger.Logger) *Reconciler {
	return &Reconciler{engine: engine, logger: log}
}

// Reconcile sets one product's stock to the counted quantity. Counting
// exactly what the ledger says is a no-op, so re-submitting the same
// count is safe.
func (r *Reconciler) Reconcile(ctx context.Context, productID string, counted decimal.Decimal, actorID string) (*Result, error) {
	expected, err := r.engine.TotalStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	adj, err := r.engine.Reconcile(ctx, productID, counted, actorID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ProductID:  productID,
		Counted:    counted,
		Expected:   expected,
		Difference: counted.Sub(expected),
		Adjustment: adj,
	}
	if adj != nil {
		// The engine recomputed the balance under its lock; report the
		// difference it actually recorded.
		result.Difference = adj.Quantity
		result.Expected = counted.Sub(adj.Quantity)
	}

	if adj != nil {
		r.logger.Info().
			Str("product_id", productID).
			Str("counted", counted.String()).
			Str("expected", expected.String()).
			Str("difference", result.Difference.String()).
			Msg("stocktake difference recorded")
	}

	return result, nil
}

// ReconcileAll applies a full count sheet. Each line reconciles
// independently; one bad line does not abort the rest. Failed lines
// come back with their error.
func (r *Reconciler) ReconcileAll(ctx context.Context, counts []Count, actorID string) ([]*Result, []error) {
	results := make([]*Result, 0, len(counts))
	var errs []error

	for _, count := range counts {
		result, err := r.Reconcile(ctx, count.ProductID, count.Counted, actorID)
		if err != nil {
			r.logger.Error().Err(err).Str("product_id", count.ProductID).Msg("stocktake line failed")
			errs = append(errs, err)
			continue
		}
		results = append(results, result)
	}

	return results, errs
}
