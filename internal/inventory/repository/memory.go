package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory ledger store. It backs unit tests and
// local development without PostgreSQL, and mirrors the semantics of
// StockRepository: FIFO ordering, per-product sequence numbers, and
// atomic mutations.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]*Product
	batches  map[string][]*Batch // productID -> batches
	ledger   map[string][]*Adjustment
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*Product),
		batches:  make(map[string][]*Batch),
		ledger:   make(map[string][]*Adjustment),
	}
}

// ListAll lists all products
func (s *MemoryStore) ListAll(ctx context.Context) ([]*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListExpiring lists batches expiring within the given number of days
func (s *MemoryStore) ListExpiring(ctx context.Context, withinDays int) ([]*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, withinDays)
	var out []*Batch
	for _, batches := range s.batches {
		for _, b := range batches {
			if b.ExpiryDate != nil && !b.ExpiryDate.After(cutoff) {
				cp := *b
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(*out[j].ExpiryDate) })
	return out, nil
}

// PutProduct adds or replaces a product
func (s *MemoryStore) PutProduct(product *Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	cp := *product
	s.products[product.ID] = &cp
}

// SeedBatch adds a batch directly, bypassing the ledger. Test setup only.
func (s *MemoryStore) SeedBatch(batch *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	if batch.ReceivedDate.IsZero() {
		batch.ReceivedDate = time.Now().UTC()
	}
	cp := *batch
	s.batches[batch.ProductID] = append(s.batches[batch.ProductID], &cp)
}

// GetProduct gets a product by ID
func (s *MemoryStore) GetProduct(ctx context.Context, productID string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, errors.NotFound("product")
	}
	cp := *product
	return &cp, nil
}

// FIFOBatches lists a product's batches in consumption order
func (s *MemoryStore) FIFOBatches(ctx context.Context, productID string) ([]*Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sortedBatches(productID), nil
}

// TotalStock sums a product's batch quantities
func (s *MemoryStore) TotalStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, b := range s.batches[productID] {
		total = total.Add(b.Quantity)
	}
	return total, nil
}

// Apply commits a stock mutation atomically
func (s *MemoryStore) Apply(ctx context.Context, mut *StockMutation) (*Adjustment, error) {
	adj := mut.Adjustment
	if adj == nil {
		return nil, errors.Internal("stock mutation without adjustment")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*Batch)
	for _, b := range s.batches[mut.ProductID] {
		byID[b.ID] = b
	}

	// Validate every deduction before touching anything so a bad
	// mutation leaves the store unchanged.
	for _, d := range mut.Deductions {
		if _, ok := byID[d.BatchID]; !ok {
			return nil, errors.ConcurrencyConflict(mut.ProductID)
		}
	}

	remaining := make([]*Batch, 0, len(s.batches[mut.ProductID]))
	deleted := make(map[string]bool)
	for _, d := range mut.Deductions {
		if d.Delete {
			deleted[d.BatchID] = true
		} else {
			byID[d.BatchID].Quantity = d.NewQuantity
		}
	}
	for _, b := range s.batches[mut.ProductID] {
		if !deleted[b.ID] {
			remaining = append(remaining, b)
		}
	}

	if nb := mut.NewBatch; nb != nil {
		if nb.ID == "" {
			nb.ID = uuid.New().String()
		}
		if nb.ReceivedDate.IsZero() {
			nb.ReceivedDate = time.Now().UTC()
		}
		cp := *nb
		remaining = append(remaining, &cp)
	}
	s.batches[mut.ProductID] = remaining

	total := decimal.Zero
	for _, b := range remaining {
		total = total.Add(b.Quantity)
	}

	if adj.ID == "" {
		adj.ID = uuid.New().String()
	}
	adj.ProductID = mut.ProductID
	adj.Seq = int64(len(s.ledger[mut.ProductID])) + 1
	adj.StockAfter = total
	adj.CreatedAt = time.Now().UTC()

	cp := *adj
	s.ledger[mut.ProductID] = append(s.ledger[mut.ProductID], &cp)

	return adj, nil
}

// Adjustments returns a copy of a product's ledger entries in order
func (s *MemoryStore) Adjustments(productID string) []*Adjustment {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Adjustment, 0, len(s.ledger[productID]))
	for _, a := range s.ledger[productID] {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (s *MemoryStore) sortedBatches(productID string) []*Batch {
	batches := make([]*Batch, 0, len(s.batches[productID]))
	for _, b := range s.batches[productID] {
		cp := *b
		batches = append(batches, &cp)
	}

	sort.SliceStable(batches, func(i, j int) bool {
		bi, bj := batches[i], batches[j]
		switch {
		case bi.ExpiryDate == nil && bj.ExpiryDate == nil:
			// fall through to received date
		case bi.ExpiryDate == nil:
			return false
		case bj.ExpiryDate == nil:
			return true
		case !bi.ExpiryDate.Equal(*bj.ExpiryDate):
			return bi.ExpiryDate.Before(*bj.ExpiryDate)
		}
		if !bi.ReceivedDate.Equal(bj.ReceivedDate) {
			return bi.ReceivedDate.Before(bj.ReceivedDate)
		}
		return bi.ID < bj.ID
	})

	return batches
}
