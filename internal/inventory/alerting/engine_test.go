package alerting_test

import (
	"context"
	"testing"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/alerting"
	"github.com/prepflow/prepflow-backend/internal/inventory/ledger"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
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

// setup wires an alert engine over in-memory stores and returns the
// stock store so tests can move the stock level around.
func setup(t *testing.T) (*alerting.Engine, *repository.MemoryStore, *repository.MemoryAlertStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	alerts := repository.NewMemoryAlertStore()
	engine := alerting.NewEngine(alerts, store, nil, logger.New("test", "test"))
	return engine, store, alerts
}

func seedProduct(t *testing.T, store *repository.MemoryStore, threshold string, critical bool) *repository.Product {
	t.Helper()

	product := &repository.Product{
		Name:         "Lettuce",
		Unit:         "kg",
		MinThreshold: dec(threshold),
		IsCritical:   critical,
	}
	store.PutProduct(product)
	return product
}

func TestCheck_RaisesAlertBelowThreshold(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setup(t)

	product := seedProduct(t, store, "5", true)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("3")})

	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, product.ID, alert.ProductID)
	assert.True(t, alert.CurrentStock.Equal(dec("3")))
	assert.True(t, alert.Threshold.Equal(dec("5")))
	assert.True(t, alert.IsCritical)
}

func TestCheck_NoAlertAboveThreshold(t *testing.T) {
	ctx := context.Background()
	engine, store, alerts := setup(t)

	product := seedProduct(t, store, "5", false)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("6")})

	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)

	open, err := alerts.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCheck_AlertAtExactThreshold(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setup(t)

	product := seedProduct(t, store, "5", false)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("5")})

	// Stock equal to the threshold counts as a breach
	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.True(t, alert.CurrentStock.Equal(dec("5")))
}

func TestCheck_DeduplicatesPerProduct(t *testing.T) {
	ctx := context.Background()
	engine, store, alerts := setup(t)

	product := seedProduct(t, store, "5", false)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("2")})

	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)

	// Second breach while the first alert is unacknowledged is silent
	alert, err = engine.Check(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)

	open, err := alerts.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestCheck_NoAutoResolve(t *testing.T) {
	ctx := context.Background()
	engine, store, alerts := setup(t)

	product := seedProduct(t, store, "5", false)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("2")})

	_, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)

	// Stock recovers above the threshold, alert stays open
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("20")})
	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, alert)

	open, err := alerts.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1, "recovery never closes an alert")
}

func TestAcknowledge_ReopensEligibility(t *testing.T) {
	ctx := context.Background()
	engine, store, alerts := setup(t)

	product := seedProduct(t, store, "5", false)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("2")})

	first, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	acked, err := engine.Acknowledge(ctx, first.ID, "chef-1")
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged)
	require.NotNil(t, acked.AcknowledgedBy)
	assert.Equal(t, "chef-1", *acked.AcknowledgedBy)

	// A fresh breach after acknowledgement raises a new alert
	second, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	open, err := alerts.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestAcknowledge_AlreadyAcknowledged(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setup(t)

	product := seedProduct(t, store, "5", false)
	alert, err := engine.Check(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, alert)

	first, err := engine.Acknowledge(ctx, alert.ID, "chef-1")
	require.NoError(t, err)
	require.NotNil(t, first.AcknowledgedAt)
	assert.Equal(t, "chef-1", *first.AcknowledgedBy)

	_, err = engine.Acknowledge(ctx, alert.ID, "chef-2")
	assert.True(t, errors.Is(err, errors.ErrNotFound), "second acknowledgement reports not found")
}

func TestAcknowledge_UnknownAlert(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := setup(t)

	_, err := engine.Acknowledge(ctx, "missing", "chef-1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestListOpenAlerts_NewestFirst(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := setup(t)

	older := &repository.Product{Name: "Napkins", Unit: "pcs", MinThreshold: dec("10")}
	store.PutProduct(older)
	newer := &repository.Product{Name: "Chicken", Unit: "kg", MinThreshold: dec("4"), IsCritical: true}
	store.PutProduct(newer)

	_, err := engine.Check(ctx, older.ID)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = engine.Check(ctx, newer.ID)
	require.NoError(t, err)

	open, err := engine.ListOpenAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, newer.ID, open[0].ProductID)
	assert.Equal(t, older.ID, open[1].ProductID)
}

// A consumption that takes stock below the threshold raises exactly one
// alert via the ledger's post-commit hook.
func TestLedgerIntegration_ConsumeTripsAlert(t *testing.T) {
	ctx := context.Background()

	store := repository.NewMemoryStore()
	alerts := repository.NewMemoryAlertStore()
	log := logger.New("test", "test")

	alertEngine := alerting.NewEngine(alerts, store, nil, log)
	ledgerEngine := ledger.NewEngine(store, alertEngine, nil, log)

	product := &repository.Product{Name: "Lettuce", Unit: "kg", MinThreshold: dec("5")}
	store.PutProduct(product)

	exp1 := time.Now().AddDate(0, 0, 2)
	exp2 := time.Now().AddDate(0, 0, 4)
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("4"), ExpiryDate: &exp1})
	store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: dec("6"), ExpiryDate: &exp2})

	result, err := ledgerEngine.Consume(ctx, product.ID, dec("7"), ledger.ConsumeOptions{})
	require.NoError(t, err)
	assert.False(t, result.Partial)

	batches, err := store.FIFOBatches(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Quantity.Equal(dec("3")))

	open, err := alerts.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.True(t, open[0].CurrentStock.Equal(dec("3")))
}
