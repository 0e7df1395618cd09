package planning_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/prepflow/prepflow-backend/internal/inventory/planning"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog maps product ID to its best supplier offer
type fakeCatalog map[string]*repository.CatalogEntry

func (f fakeCatalog) EntryForProduct(ctx context.Context, productID string) (*repository.CatalogEntry, error) {
	entry, ok := f[productID]
	if !ok {
		return nil, errors.NotFound("catalog entry")
	}
	return entry, nil
}

func newReplenishEngine(t *testing.T, catalog fakeCatalog) (*planning.ReplenishmentEngine, *repository.MemoryStore) {
	t.Helper()

	store := repository.NewMemoryStore()
	engine := planning.NewReplenishmentEngine(store, catalog, nil, logger.New("test", "test"))
	return engine, store
}

func stockedProduct(t *testing.T, store *repository.MemoryStore, name, stock string) *repository.Product {
	t.Helper()

	product := &repository.Product{Name: name, Unit: "kg", MinThreshold: dec("1")}
	store.PutProduct(product)
	if s := dec(stock); s.IsPositive() {
		store.SeedBatch(&repository.Batch{ProductID: product.ID, Quantity: s})
	}
	return product
}

func TestComputeRequirements_NetPacksAndCost(t *testing.T) {
	ctx := context.Background()

	catalog := fakeCatalog{}
	engine, store := newReplenishEngine(t, catalog)

	// 20 kg needed over 7 days against 3 kg on hand: net 17, so four
	// 5 kg packs at 4.00 each
	product := stockedProduct(t, store, "Lettuce", "3")
	catalog[product.ID] = &repository.CatalogEntry{
		SupplierID:    "sup-1",
		SupplierName:  "GreenGrocer",
		ProductID:     product.ID,
		PackSize:      dec("5"),
		PackCost:      dec("4.00"),
		MinOrderPacks: 1,
		LeadTimeDays:  1,
	}

	reqs, err := engine.ComputeRequirements(ctx, map[string]decimal.Decimal{product.ID: dec("20")}, 7)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.True(t, req.Net.Equal(dec("17")))
	assert.Equal(t, 4, req.PacksNeeded)
	assert.True(t, req.TotalCost.Equal(dec("16.00")))
	assert.Equal(t, "GreenGrocer", req.SupplierName)
	// 3 kg on hand against ~2.86/day runs out in ~1.05 days, past the
	// one day lead but well inside three days of it
	assert.Equal(t, planning.UrgencyHigh, req.Urgency)
}

func TestComputeRequirements_CoveredDemandOmitted(t *testing.T) {
	ctx := context.Background()

	catalog := fakeCatalog{}
	engine, store := newReplenishEngine(t, catalog)

	covered := stockedProduct(t, store, "Flour", "50")
	exact := stockedProduct(t, store, "Sugar", "10")

	reqs, err := engine.ComputeRequirements(ctx, map[string]decimal.Decimal{
		covered.ID: dec("20"),
		exact.ID:   dec("10"),
	}, 7)
	require.NoError(t, err)
	assert.Empty(t, reqs, "stock at or above demand needs no order")
}

func TestComputeRequirements_MinOrderFloor(t *testing.T) {
	ctx := context.Background()

	catalog := fakeCatalog{}
	engine, store := newReplenishEngine(t, catalog)

	product := stockedProduct(t, store, "Saffron", "0")
	catalog[product.ID] = &repository.CatalogEntry{
		SupplierID:    "sup-1",
		SupplierName:  "SpiceHouse",
		ProductID:     product.ID,
		PackSize:      dec("1"),
		PackCost:      dec("30"),
		MinOrderPacks: 5,
		LeadTimeDays:  2,
	}

	reqs, err := engine.ComputeRequirements(ctx, map[string]decimal.Decimal{product.ID: dec("2")}, 7)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, 5, reqs[0].PacksNeeded, "supplier minimum overrides the two packs demanded")
	assert.True(t, reqs[0].TotalCost.Equal(dec("150")))
}

func TestComputeRequirements_MissingCatalogEntryFailsRun(t *testing.T) {
	ctx := context.Background()

	engine, store := newReplenishEngine(t, fakeCatalog{})
	product := stockedProduct(t, store, "Truffle", "0")

	_, err := engine.ComputeRequirements(ctx, map[string]decimal.Decimal{product.ID: dec("1")}, 7)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestComputeRequirements_InvalidHorizon(t *testing.T) {
	engine, _ := newReplenishEngine(t, fakeCatalog{})

	_, err := engine.ComputeRequirements(context.Background(), nil, 0)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))
}

func TestComputeRequirements_UrgencyTiers(t *testing.T) {
	ctx := context.Background()

	// Demand of 100 over 10 days gives 10/day; stock then sets days
	// until stockout directly. Lead time two days throughout.
	cases := []struct {
		stock   string
		urgency string
	}{
		{"19", planning.UrgencyCritical}, // 1.9 days, runs out before delivery
		{"20", planning.UrgencyHigh},     // exactly the lead time
		{"49", planning.UrgencyHigh},     // 4.9 days
		{"50", planning.UrgencyMedium},   // lead + 3
		{"51", planning.UrgencyMedium},   // 5.1 days
		{"89", planning.UrgencyMedium},   // 8.9 days
		{"90", planning.UrgencyLow},      // lead + 7
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("stock %s", tc.stock), func(t *testing.T) {
			catalog := fakeCatalog{}
			engine, store := newReplenishEngine(t, catalog)

			product := stockedProduct(t, store, "Rice", tc.stock)
			catalog[product.ID] = &repository.CatalogEntry{
				SupplierID:   "sup-1",
				SupplierName: "BulkFoods",
				ProductID:    product.ID,
				PackSize:     dec("10"),
				PackCost:     dec("8"),
				LeadTimeDays: 2,
			}

			reqs, err := engine.ComputeRequirements(ctx, map[string]decimal.Decimal{product.ID: dec("100")}, 10)
			require.NoError(t, err)
			require.Len(t, reqs, 1)
			assert.Equal(t, tc.urgency, reqs[0].Urgency)
		})
	}
}

func TestGroupBySupplier(t *testing.T) {
	engine, _ := newReplenishEngine(t, fakeCatalog{})

	reqs := []*planning.IngredientRequirement{
		{ProductID: "beef", SupplierID: "sup-1", SupplierName: "MeatCo", PacksNeeded: 2, PackSize: dec("5"), TotalCost: dec("40"), Urgency: planning.UrgencyCritical},
		{ProductID: "lettuce", SupplierID: "sup-2", SupplierName: "GreenGrocer", PacksNeeded: 4, PackSize: dec("5"), TotalCost: dec("16"), Urgency: planning.UrgencyHigh},
		{ProductID: "pork", SupplierID: "sup-1", SupplierName: "MeatCo", PacksNeeded: 1, PackSize: dec("5"), TotalCost: dec("15"), Urgency: planning.UrgencyLow},
	}

	orders := engine.GroupBySupplier(reqs)
	require.Len(t, orders, 2)

	meat := orders[0]
	assert.Equal(t, "sup-1", meat.SupplierID)
	assert.Equal(t, repository.OrderPending, meat.Status)
	assert.True(t, meat.TotalCost.Equal(dec("55")))
	require.Len(t, meat.Lines, 2)
	assert.Equal(t, "beef", meat.Lines[0].ProductID)
	assert.True(t, meat.Lines[0].PackCost.Equal(dec("20")), "per-pack cost derived from line total")
	assert.Equal(t, planning.UrgencyCritical, meat.Lines[0].Urgency)

	greens := orders[1]
	assert.Equal(t, "sup-2", greens.SupplierID)
	assert.True(t, greens.TotalCost.Equal(dec("16")))
	require.Len(t, greens.Lines, 1)
	assert.Equal(t, 4, greens.Lines[0].Packs)
}

type captureWriter struct {
	orders []*repository.SupplierOrder
}

func (w *captureWriter) Create(ctx context.Context, order *repository.SupplierOrder) error {
	w.orders = append(w.orders, order)
	return nil
}

func TestProposeOrders_PersistsPendingDrafts(t *testing.T) {
	engine, _ := newReplenishEngine(t, fakeCatalog{})

	reqs := []*planning.IngredientRequirement{
		{ProductID: "beef", SupplierID: "sup-1", SupplierName: "MeatCo", PacksNeeded: 2, PackSize: dec("5"), TotalCost: dec("40"), Urgency: planning.UrgencyHigh},
	}

	writer := &captureWriter{}
	orders, err := engine.ProposeOrders(context.Background(), reqs, writer)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, writer.orders, 1)
	assert.Equal(t, repository.OrderPending, writer.orders[0].Status)
}
