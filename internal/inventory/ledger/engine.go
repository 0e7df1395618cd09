// Package ledger implements the stock ledger: FIFO batch consumption,
// batch intake, and manual corrections, all recorded as append-only
// adjustment entries.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Store is the persistence boundary the engine writes through. Apply
// must be atomic: deductions, the new batch, and the adjustment entry
// commit together or not at all.
type Store interface {
	GetProduct(ctx context.Context, productID string) (*repository.Product, error)
	FIFOBatches(ctx context.Context, productID string) ([]*repository.Batch, error)
	TotalStock(ctx context.Context, productID string) (decimal.Decimal, error)
	Apply(ctx context.Context, mut *repository.StockMutation) (*repository.Adjustment, error)
}

// Notifier is told about stock level changes after they commit. Used to
// drive low stock alerting without coupling the ledger to it.
type Notifier interface {
	StockChanged(ctx context.Context, product *repository.Product, stock decimal.Decimal)
}

// ConsumeOptions configures a consumption
type ConsumeOptions struct {
	Type        repository.AdjustmentType // defaults to sale
	Reason      string
	ActorID     string
	ReferenceID string
	// Critical overrides the product's criticality for this consumption.
	// Recipe lines carry their own criticality flag.
	Critical *bool
}

// ConsumeResult reports what a consumption actually did
type ConsumeResult struct {
	Adjustment *repository.Adjustment
	Requested  decimal.Decimal
	Fulfilled  decimal.Decimal
	Partial    bool
}

// Engine serializes mutations per product and enforces the ledger
// rules: positive quantities only, FIFO draining, strict consumption
// for critical products and best-effort for the rest.
type Engine struct {
	store     Store
	notifier  Notifier
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
	locks     sync.Map // productID -> *sync.Mutex
}

// NewEngine creates a new ledger engine. notifier and publisher may be nil.
func NewEngine(store Store, notifier Notifier, publisher *events.InventoryEventPublisher, log *logger.Logger) *Engine {
	return &Engine{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    log,
	}
}

func (e *Engine) lock(productID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(productID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// TotalStock returns a product's current stock across all batches
func (e *Engine) TotalStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	if _, err := e.store.GetProduct(ctx, productID); err != nil {
		return decimal.Zero, err
	}
	return e.store.TotalStock(ctx, productID)
}

// FIFOBatches returns a product's batches in consumption order
func (e *Engine) FIFOBatches(ctx context.Context, productID string) ([]*repository.Batch, error) {
	if _, err := e.store.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return e.store.FIFOBatches(ctx, productID)
}

// Add receives a new batch of stock and records a purchase entry
func (e *Engine) Add(ctx context.Context, productID string, quantity, unitCost decimal.Decimal, expiry *time.Time, actorID, referenceID string) (*repository.Adjustment, error) {
	if !quantity.IsPositive() {
		return nil, errors.InvalidQuantity("batch quantity must be positive")
	}

	mu := e.lock(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adj := &repository.Adjustment{
		ProductID: productID,
		Type:      repository.AdjustmentPurchase,
		Quantity:  quantity,
	}
	if actorID != "" {
		adj.ActorID = &actorID
	}
	if referenceID != "" {
		adj.ReferenceID = &referenceID
	}

	mut := &repository.StockMutation{
		ProductID: productID,
		NewBatch: &repository.Batch{
			ProductID:  productID,
			Quantity:   quantity,
			UnitCost:   unitCost,
			ExpiryDate: expiry,
		},
		Adjustment: adj,
	}

	committed, err := e.store.Apply(ctx, mut)
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, product, committed)
	return committed, nil
}

// Consume drains stock FIFO. Critical products fail outright when stock
// is insufficient; non-critical products consume whatever is available
// and record the shortfall on the entry.
func (e *Engine) Consume(ctx context.Context, productID string, quantity decimal.Decimal, opts ConsumeOptions) (*ConsumeResult, error) {
	if !quantity.IsPositive() {
		return nil, errors.InvalidQuantity("consumption quantity must be positive")
	}

	adjType := opts.Type
	if adjType == "" {
		adjType = repository.AdjustmentSale
	}
	if !adjType.Valid() {
		return nil, errors.BadRequest("unknown adjustment type: " + string(adjType))
	}

	mu := e.lock(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	critical := product.IsCritical
	if opts.Critical != nil {
		critical = *opts.Critical
	}

	batches, err := e.store.FIFOBatches(ctx, productID)
	if err != nil {
		return nil, err
	}

	available := decimal.Zero
	for _, b := range batches {
		available = available.Add(b.Quantity)
	}

	fulfilled := quantity
	partial := false
	if available.LessThan(quantity) {
		if critical {
			return nil, errors.InsufficientStock(productID, quantity.String(), available.String())
		}
		fulfilled = available
		partial = true
	}

	deductions := planDeductions(batches, fulfilled)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reason := opts.Reason
	if partial {
		shortfall := fmt.Sprintf("partial: requested %s, fulfilled %s", quantity.String(), fulfilled.String())
		if reason != "" {
			reason = reason + "; " + shortfall
		} else {
			reason = shortfall
		}
	}

	adj := &repository.Adjustment{
		ProductID: productID,
		Type:      adjType,
		Quantity:  fulfilled.Neg(),
	}
	if reason != "" {
		adj.Reason = &reason
	}
	if opts.ActorID != "" {
		adj.ActorID = &opts.ActorID
	}
	if opts.ReferenceID != "" {
		adj.ReferenceID = &opts.ReferenceID
	}

	committed, err := e.store.Apply(ctx, &repository.StockMutation{
		ProductID:  productID,
		Deductions: deductions,
		Adjustment: adj,
	})
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, product, committed)

	return &ConsumeResult{
		Adjustment: committed,
		Requested:  quantity,
		Fulfilled:  fulfilled,
		Partial:    partial,
	}, nil
}

// AdjustManual applies a signed correction. Positive deltas create a
// correction batch with no cost tracking; negative deltas drain FIFO
// and never fail on insufficient stock, deducting what exists and
// recording the shortfall on the entry.
func (e *Engine) AdjustManual(ctx context.Context, productID string, delta decimal.Decimal, reason, actorID string) (*repository.Adjustment, error) {
	if delta.IsZero() {
		return nil, errors.InvalidQuantity("manual adjustment delta must be non-zero")
	}

	mu := e.lock(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	mut := &repository.StockMutation{ProductID: productID}
	applied := delta
	if delta.IsPositive() {
		mut.NewBatch = &repository.Batch{
			ProductID: productID,
			Quantity:  delta,
		}
	} else {
		need := delta.Neg()
		batches, err := e.store.FIFOBatches(ctx, productID)
		if err != nil {
			return nil, err
		}

		available := decimal.Zero
		for _, b := range batches {
			available = available.Add(b.Quantity)
		}

		fulfilled := need
		if available.LessThan(need) {
			fulfilled = available
			shortfall := fmt.Sprintf("partial: requested %s, fulfilled %s", need.String(), fulfilled.String())
			if reason != "" {
				reason = reason + "; " + shortfall
			} else {
				reason = shortfall
			}
		}

		mut.Deductions = planDeductions(batches, fulfilled)
		applied = fulfilled.Neg()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	adj := &repository.Adjustment{
		ProductID: productID,
		Type:      repository.AdjustmentManual,
		Quantity:  applied,
	}
	if reason != "" {
		adj.Reason = &reason
	}
	if actorID != "" {
		adj.ActorID = &actorID
	}
	mut.Adjustment = adj

	committed, err := e.store.Apply(ctx, mut)
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, product, committed)
	return committed, nil
}

// Reconcile sets a product's stock to the counted quantity and records
// the difference as a stocktake entry. A count matching current stock
// records nothing and returns nil.
func (e *Engine) Reconcile(ctx context.Context, productID string, counted decimal.Decimal, actorID string) (*repository.Adjustment, error) {
	if counted.IsNegative() {
		return nil, errors.InvalidQuantity("counted quantity must not be negative")
	}

	mu := e.lock(productID)
	mu.Lock()
	defer mu.Unlock()

	product, err := e.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	current, err := e.store.TotalStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	delta := counted.Sub(current)
	if delta.IsZero() {
		return nil, nil
	}

	mut, err := e.planDelta(ctx, productID, delta)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("stocktake: counted %s, expected %s", counted.String(), current.String())
	adj := &repository.Adjustment{
		ProductID: productID,
		Type:      repository.AdjustmentStocktake,
		Quantity:  delta,
		Reason:    &reason,
	}
	if actorID != "" {
		adj.ActorID = &actorID
	}
	mut.Adjustment = adj

	committed, err := e.store.Apply(ctx, mut)
	if err != nil {
		return nil, err
	}

	e.afterCommit(ctx, product, committed)
	return committed, nil
}

// planDelta turns a stocktake delta into a mutation: a surplus becomes
// a correction batch priced at the last known unit cost, a deficit
// becomes FIFO deductions. The deficit never exceeds current stock, so
// the shortage check cannot trip from Reconcile.
func (e *Engine) planDelta(ctx context.Context, productID string, delta decimal.Decimal) (*repository.StockMutation, error) {
	mut := &repository.StockMutation{ProductID: productID}

	batches, err := e.store.FIFOBatches(ctx, productID)
	if err != nil {
		return nil, err
	}

	if delta.IsPositive() {
		mut.NewBatch = &repository.Batch{
			ProductID: productID,
			Quantity:  delta,
			UnitCost:  latestUnitCost(batches),
		}
		return mut, nil
	}

	need := delta.Neg()
	available := decimal.Zero
	for _, b := range batches {
		available = available.Add(b.Quantity)
	}
	if available.LessThan(need) {
		return nil, errors.InsufficientStock(productID, need.String(), available.String())
	}

	mut.Deductions = planDeductions(batches, need)
	return mut, nil
}

// latestUnitCost is the unit cost of the most recently received batch,
// zero when no batches remain.
func latestUnitCost(batches []*repository.Batch) decimal.Decimal {
	var cost decimal.Decimal
	var latest time.Time
	for _, b := range batches {
		if !b.ReceivedDate.Before(latest) {
			latest = b.ReceivedDate
			cost = b.UnitCost
		}
	}
	return cost
}

// planDeductions walks batches in FIFO order, deleting batches it
// empties and shrinking the one it only partially drains.
func planDeductions(batches []*repository.Batch, quantity decimal.Decimal) []repository.BatchDeduction {
	var deductions []repository.BatchDeduction
	remaining := quantity

	for _, b := range batches {
		if !remaining.IsPositive() {
			break
		}
		if b.Quantity.LessThanOrEqual(remaining) {
			deductions = append(deductions, repository.BatchDeduction{
				BatchID: b.ID,
				Delete:  true,
			})
			remaining = remaining.Sub(b.Quantity)
			continue
		}
		deductions = append(deductions, repository.BatchDeduction{
			BatchID:     b.ID,
			NewQuantity: b.Quantity.Sub(remaining),
		})
		remaining = decimal.Zero
	}

	return deductions
}

// afterCommit runs best-effort side effects. Failures here never undo
// the committed mutation.
func (e *Engine) afterCommit(ctx context.Context, product *repository.Product, adj *repository.Adjustment) {
	if e.publisher != nil {
		e.publisher.PublishStockAdjusted(ctx, adj)
	}
	if e.notifier != nil {
		e.notifier.StockChanged(ctx, product, adj.StockAfter)
	}
}
