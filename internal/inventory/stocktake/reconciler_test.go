package stocktake_test

import (
	"context"
	"testing"

	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/internal/inventory/stocktake"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newReconciler(t *testing.T) (*stocktake.Reconciler, *repository.MemoryStore, *repository.Product) {
	t.Helper()

	store := repository.NewMemoryStore()
	product := &repository.Product{Name: "Onions", Unit: "kg", MinThreshold: dec("2")}
	store.PutProduct(product)

	log := logger.New("test", "test")
	engine := ledger.NewEngine(store, nil, nil, log)
	return stocktake.NewReconciler(engine, log), store, product
}

func TestReconcile_MatchingCountIsNoOp(t *testing.T) {
	ctx := context.Background()
	reconciler, store, product := newReconciler(t)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10")})

	result, err := reconciler.Reconcile(ctx, product.ID, dec("10"), "auditor")
	require.NoError(t, err)
	assert.Nil(t, result.Adjustment)
	assert.True(t, result.Difference.IsZero())
	assert.Empty(t, store.Adjustments(product.ID), "no ledger entry for a matching count")
}

func TestReconcile_DeficitDrainsFIFO(t *testing.T) {
	ctx := context.Background()
	reconciler, store, product := newReconciler(t)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10")})

	result, err := reconciler.Reconcile(ctx, product.ID, dec("6"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, result.Adjustment)
	assert.Equal(t, repository.AdjustmentStocktake, result.Adjustment.Type)
	assert.True(t, result.Difference.Equal(dec("-4")))
	assert.True(t, result.Expected.Equal(dec("10")))
	assert.True(t, result.Adjustment.StockAfter.Equal(dec("6")))
}

func TestReconcile_SurplusAddsBatch(t *testing.T) {
	ctx := context.Background()
	reconciler, store, product := newReconciler(t)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("4")})

	result, err := reconciler.Reconcile(ctx, product.ID, dec("9"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, result.Adjustment)
	assert.True(t, result.Difference.Equal(dec("5")))

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, batches, 2, "surplus lands in a correction batch")
}

func TestReconcile_ResubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	reconciler, store, product := newReconciler(t)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10")})

	first, err := reconciler.Reconcile(ctx, product.ID, dec("7"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, first.Adjustment)

	second, err := reconciler.Reconcile(ctx, product.ID, dec("7"), "auditor")
	require.NoError(t, err)
	assert.Nil(t, second.Adjustment, "same count again changes nothing")

	assert.Len(t, store.Adjustments(product.ID), 1)
}

func TestReconcileAll_BadLineDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	reconciler, store, product := newReconciler(t)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10")})

	counts := []stocktake.Count{
		{ProductID: "no-such-product", Counted: dec("5")},
		{ProductID: product.ID, Counted: dec("8")},
	}

	results, errs := reconciler.ReconcileAll(ctx, counts, "auditor")
	require.Len(t, errs, 1)
	require.Len(t, results, 1)
	assert.Equal(t, product.ID, results[0].ProductID)
	require.NotNil(t, results[0].Adjustment)
	assert.True(t, results[0].Adjustment.StockAfter.Equal(dec("8")))
}
