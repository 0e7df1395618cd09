package ledger_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New("test", "test")
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func daysFromNow(days int) *time.Time {
	t := time.Now().AddDate(0, 0, days)
	return &t
}

// seedProduct creates a product plus an engine over a fresh memory store
func seedProduct(t *testing.T, critical bool) (*ledger.Engine, *repository.MemoryStore, *repository.Product) {
	t.Helper()

	store := repository.NewMemoryStore()
	product := &repository.Product{
		Name:         "Tomatoes",
		Unit:         "kg",
		MinThreshold: dec("5"),
		IsCritical:   critical,
	}
	store.PutProduct(product)

	engine := ledger.NewEngine(store, nil, nil, testLogger())
	return engine, store, product
}

func TestEngine_Add(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	adj, err := engine.Add(ctx, product.ID, dec("10"), dec("1.50"), daysFromNow(5), "chef-1", "delivery-42")
	require.NoError(t, err)
	assert.Equal(t, repository.AdjustmentPurchase, adj.Type)
	assert.True(t, adj.Quantity.Equal(dec("10")))
	assert.True(t, adj.StockAfter.Equal(dec("10")))
	assert.Equal(t, int64(1), adj.Seq)

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Quantity.Equal(dec("10")))
	assert.True(t, batches[0].UnitCost.Equal(dec("1.50")))
}

func TestEngine_Add_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, false)

	_, err := engine.Add(ctx, product.ID, dec("0"), decimal.Zero, nil, "", "")
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))

	_, err = engine.Add(ctx, product.ID, dec("-3"), decimal.Zero, nil, "", "")
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
}

func TestEngine_Add_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := seedProduct(t, false)

	_, err := engine.Add(ctx, "nope", dec("1"), decimal.Zero, nil, "", "")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestEngine_Consume_FIFO(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	// Batches expiring soonest must drain first
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("3"), ExpiryDate: daysFromNow(1)})
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("5"), ExpiryDate: daysFromNow(3)})
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10"), ExpiryDate: daysFromNow(9)})

	result, err := engine.Consume(ctx, product.ID, dec("6"), ledger.ConsumeOptions{})
	require.NoError(t, err)
	assert.False(t, result.Partial)
	assert.True(t, result.Fulfilled.Equal(dec("6")))

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.True(t, batches[0].Quantity.Equal(dec("2")), "second batch partially drained")
	assert.True(t, batches[1].Quantity.Equal(dec("10")), "third batch untouched")

	total, err := engine.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("12")))
}

func TestEngine_Consume_BatchesWithoutExpirySortLast(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("4")})
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("4"), ExpiryDate: daysFromNow(2)})

	_, err := engine.Consume(ctx, product.ID, dec("4"), ledger.ConsumeOptions{})
	require.NoError(t, err)

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Nil(t, batches[0].ExpiryDate, "dated batch consumed first, undated one remains")
}

func TestEngine_Consume_CriticalFailsOnShortfall(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, true)

	_, err := engine.Add(ctx, product.ID, dec("10"), decimal.Zero, nil, "", "")
	require.NoError(t, err)

	_, err = engine.Consume(ctx, product.ID, dec("100"), ledger.ConsumeOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))

	// Stock untouched by the failed consumption
	total, err := engine.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10")))
}

func TestEngine_Consume_NonCriticalPartiallySucceeds(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	_, err := engine.Add(ctx, product.ID, dec("10"), decimal.Zero, nil, "", "")
	require.NoError(t, err)

	result, err := engine.Consume(ctx, product.ID, dec("100"), ledger.ConsumeOptions{})
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.True(t, result.Requested.Equal(dec("100")))
	assert.True(t, result.Fulfilled.Equal(dec("10")))

	require.NotNil(t, result.Adjustment.Reason)
	assert.Equal(t, "partial: requested 100, fulfilled 10", *result.Adjustment.Reason)
	assert.True(t, result.Adjustment.Quantity.Equal(dec("-10")))

	total, err := engine.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	// Exactly one ledger entry for the partial consumption
	assert.Len(t, store.Adjustments(product.ID), 2) // add + consume
}

func TestEngine_Consume_CriticalOverride(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, false)

	_, err := engine.Add(ctx, product.ID, dec("10"), decimal.Zero, nil, "", "")
	require.NoError(t, err)

	// Product is non-critical, but the caller marks this consumption critical
	critical := true
	_, err = engine.Consume(ctx, product.ID, dec("20"), ledger.ConsumeOptions{Critical: &critical})
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
}

func TestEngine_Consume_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, false)

	_, err := engine.Consume(ctx, product.ID, dec("0"), ledger.ConsumeOptions{})
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
}

func TestEngine_Consume_ExactStockEmptiesAllBatches(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, true)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("4"), ExpiryDate: daysFromNow(1)})
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("6"), ExpiryDate: daysFromNow(2)})

	result, err := engine.Consume(ctx, product.ID, dec("10"), ledger.ConsumeOptions{})
	require.NoError(t, err)
	assert.False(t, result.Partial)

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, batches, "fully drained batches are deleted, not zeroed")
}

func TestEngine_AdjustManual(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, true)

	// Positive delta creates a correction batch
	adj, err := engine.AdjustManual(ctx, product.ID, dec("8"), "found in walk-in", "chef-1")
	require.NoError(t, err)
	assert.Equal(t, repository.AdjustmentManual, adj.Type)
	assert.True(t, adj.StockAfter.Equal(dec("8")))

	// Negative delta drains FIFO
	adj, err = engine.AdjustManual(ctx, product.ID, dec("-3"), "spillage", "chef-1")
	require.NoError(t, err)
	assert.True(t, adj.StockAfter.Equal(dec("5")))

	// Zero delta is rejected
	_, err = engine.AdjustManual(ctx, product.ID, dec("0"), "noop", "chef-1")
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
}

func TestEngine_AdjustManual_OverdrawDeductsToZero(t *testing.T) {
	ctx := context.Background()
	// Criticality never hardens manual corrections
	engine, store, product := seedProduct(t, true)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("5")})

	adj, err := engine.AdjustManual(ctx, product.ID, dec("-10"), "spillage", "chef-1")
	require.NoError(t, err)
	assert.True(t, adj.Quantity.Equal(dec("-5")), "only the available stock is deducted")
	assert.True(t, adj.StockAfter.IsZero())
	require.NotNil(t, adj.Reason)
	assert.Equal(t, "spillage; partial: requested 10, fulfilled 5", *adj.Reason)

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestEngine_AdjustManual_NoStockRecordsShortfall(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, false)

	adj, err := engine.AdjustManual(ctx, product.ID, dec("-1"), "", "chef-1")
	require.NoError(t, err)
	assert.True(t, adj.Quantity.IsZero())
	assert.True(t, adj.StockAfter.IsZero())
	require.NotNil(t, adj.Reason)
	assert.Equal(t, "partial: requested 1, fulfilled 0", *adj.Reason)
}

func TestEngine_Reconcile(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("10")})

	// Deficit: counted less than ledger
	adj, err := engine.Reconcile(ctx, product.ID, dec("7"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.Equal(t, repository.AdjustmentStocktake, adj.Type)
	assert.True(t, adj.Quantity.Equal(dec("-3")))
	assert.True(t, adj.StockAfter.Equal(dec("7")))

	// Matching count is a no-op
	adj, err = engine.Reconcile(ctx, product.ID, dec("7"), "auditor")
	require.NoError(t, err)
	assert.Nil(t, adj)

	// Surplus: counted more than ledger
	adj, err = engine.Reconcile(ctx, product.ID, dec("9"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.True(t, adj.Quantity.Equal(dec("2")))
	assert.True(t, adj.StockAfter.Equal(dec("9")))

	// Negative counts are invalid
	_, err = engine.Reconcile(ctx, product.ID, dec("-1"), "auditor")
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
}

func TestEngine_Reconcile_SurplusBatchCarriesLastUnitCost(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	_, err := engine.Add(ctx, product.ID, dec("10"), dec("2.50"), nil, "", "delivery-1")
	require.NoError(t, err)

	adj, err := engine.Reconcile(ctx, product.ID, dec("12"), "auditor")
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.True(t, adj.Quantity.Equal(dec("2")))

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	var correction *repository.Batch
	for _, b := range batches {
		if b.Quantity.Equal(dec("2")) {
			correction = b
		}
	}
	require.NotNil(t, correction)
	assert.True(t, correction.UnitCost.Equal(dec("2.50")), "correction batch priced at the last received cost")
	assert.Nil(t, correction.ExpiryDate)
}

func TestEngine_SequenceIncrements(t *testing.T) {
	ctx := context.Background()
	engine, store, product := seedProduct(t, false)

	for i := 0; i < 3; i++ {
		_, err := engine.Add(ctx, product.ID, dec("5"), decimal.Zero, nil, "", "")
		require.NoError(t, err)
	}
	_, err := engine.Consume(ctx, product.ID, dec("4"), ledger.ConsumeOptions{})
	require.NoError(t, err)

	adjustments := store.Adjustments(product.ID)
	require.Len(t, adjustments, 4)
	for i, adj := range adjustments {
		assert.Equal(t, int64(i+1), adj.Seq)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	engine, _, product := seedProduct(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := engine.Add(ctx, product.ID, dec("10"), decimal.Zero, nil, "", "")
	require.NoError(t, err)

	cancel()
	_, err = engine.Consume(ctx, product.ID, dec("1"), ledger.ConsumeOptions{})
	assert.ErrorIs(t, err, context.Canceled)

	// Nothing was written after the cancelled attempt
	total, err := engine.TotalStock(context.Background(), product.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("10")))
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []decimal.Decimal
}

func (n *recordingNotifier) StockChanged(ctx context.Context, product *repository.Product, stock decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, stock)
}

func TestEngine_NotifierSeesEveryCommit(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	product := &repository.Product{Name: "Basil", Unit: "kg", MinThreshold: dec("2")}
	store.PutProduct(product)

	notifier := &recordingNotifier{}
	engine := ledger.NewEngine(store, notifier, nil, testLogger())

	_, err := engine.Add(ctx, product.ID, dec("5"), decimal.Zero, nil, "", "")
	require.NoError(t, err)
	_, err = engine.Consume(ctx, product.ID, dec("4"), ledger.ConsumeOptions{})
	require.NoError(t, err)

	require.Len(t, notifier.calls, 2)
	assert.True(t, notifier.calls[0].Equal(dec("5")))
	assert.True(t, notifier.calls[1].Equal(dec("1")))
}

func TestEngine_ConcurrentConsumption(t *testing.T) {
	ctx := context.Background()
	engine, _, product := seedProduct(t, false)

	_, err := engine.Add(ctx, product.ID, dec("100"), decimal.Zero, nil, "", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Consume(ctx, product.ID, dec("5"), ledger.ConsumeOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, err := engine.TotalStock(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero(), "20 concurrent consumptions of 5 drain exactly 100")
}
