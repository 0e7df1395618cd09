package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductFixture represents test product data
type ProductFixture struct {
	ID            string
	Name          string
	Unit          string
	Category      string
	MinThreshold  decimal.Decimal
	IsCritical    bool
	ShelfLifeDays *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BatchFixture represents test stock batch data
type BatchFixture struct {
	ID           string
	ProductID    string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	ExpiryDate   *time.Time
	ReceivedDate time.Time
}

// RecipeLineFixture represents test recipe line data
type RecipeLineFixture struct {
	ID           string
	MenuItemID   string
	MenuItemName string
	ProductID    string
	Quantity     decimal.Decimal
	IsCritical   bool
}

// CatalogEntryFixture represents test supplier catalog data
type CatalogEntryFixture struct {
	ID            string
	SupplierID    string
	SupplierName  string
	ProductID     string
	PackSize      decimal.Decimal
	PackCost      decimal.Decimal
	MinOrderPacks int
	LeadTimeDays  int
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Product creates a product fixture with defaults
func (f *FixtureFactory) Product(opts ...func(*ProductFixture)) ProductFixture {
	seq := f.nextSeq()

	product := ProductFixture{
		ID:           uuid.New().String(),
		Name:         fmt.Sprintf("Test Product %d", seq),
		Unit:         "kg",
		Category:     "Produce",
		MinThreshold: decimal.NewFromInt(5),
		IsCritical:   false,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	for _, opt := range opts {
		opt(&product)
	}

	return product
}

// WithProductName sets the product name
func WithProductName(name string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.Name = name
	}
}

// WithUnit sets the product unit
func WithUnit(unit string) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.Unit = unit
	}
}

// WithThreshold sets the product minimum stock threshold
func WithThreshold(threshold decimal.Decimal) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.MinThreshold = threshold
	}
}

// Critical marks the product as critical
func Critical() func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.IsCritical = true
	}
}

// WithShelfLife sets the product shelf life in days
func WithShelfLife(days int) func(*ProductFixture) {
	return func(p *ProductFixture) {
		p.ShelfLifeDays = &days
	}
}

// Batch creates a stock batch fixture for the given product
func (f *FixtureFactory) Batch(productID string, opts ...func(*BatchFixture)) BatchFixture {
	batch := BatchFixture{
		ID:           uuid.New().String(),
		ProductID:    productID,
		Quantity:     decimal.NewFromInt(10),
		UnitCost:     decimal.NewFromFloat(1.50),
		ReceivedDate: time.Now(),
	}

	for _, opt := range opts {
		opt(&batch)
	}

	return batch
}

// WithQuantity sets the batch quantity
func WithQuantity(qty decimal.Decimal) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.Quantity = qty
	}
}

// WithExpiry sets the batch expiry date
func WithExpiry(expiry time.Time) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.ExpiryDate = &expiry
	}
}

// ExpiresInDays sets the batch expiry relative to now
func ExpiresInDays(days int) func(*BatchFixture) {
	return func(b *BatchFixture) {
		expiry := time.Now().AddDate(0, 0, days)
		b.ExpiryDate = &expiry
	}
}

// WithUnitCost sets the batch unit cost
func WithUnitCost(cost decimal.Decimal) func(*BatchFixture) {
	return func(b *BatchFixture) {
		b.UnitCost = cost
	}
}

// RecipeLine creates a recipe line fixture linking a menu item to a product
func (f *FixtureFactory) RecipeLine(menuItemID, productID string, opts ...func(*RecipeLineFixture)) RecipeLineFixture {
	seq := f.nextSeq()

	line := RecipeLineFixture{
		ID:           uuid.New().String(),
		MenuItemID:   menuItemID,
		MenuItemName: fmt.Sprintf("Menu Item %d", seq),
		ProductID:    productID,
		Quantity:     decimal.NewFromFloat(0.2),
		IsCritical:   false,
	}

	for _, opt := range opts {
		opt(&line)
	}

	return line
}

// WithLineQuantity sets the recipe line quantity per portion
func WithLineQuantity(qty decimal.Decimal) func(*RecipeLineFixture) {
	return func(l *RecipeLineFixture) {
		l.Quantity = qty
	}
}

// CriticalLine marks the recipe line as critical
func CriticalLine() func(*RecipeLineFixture) {
	return func(l *RecipeLineFixture) {
		l.IsCritical = true
	}
}

// CatalogEntry creates a supplier catalog fixture for the given product
func (f *FixtureFactory) CatalogEntry(supplierID, productID string, opts ...func(*CatalogEntryFixture)) CatalogEntryFixture {
	seq := f.nextSeq()

	entry := CatalogEntryFixture{
		ID:            uuid.New().String(),
		SupplierID:    supplierID,
		SupplierName:  fmt.Sprintf("Supplier %d", seq),
		ProductID:     productID,
		PackSize:      decimal.NewFromInt(5),
		PackCost:      decimal.NewFromFloat(4.00),
		MinOrderPacks: 1,
		LeadTimeDays:  1,
	}

	for _, opt := range opts {
		opt(&entry)
	}

	return entry
}

// WithPackSize sets the catalog entry pack size
func WithPackSize(size decimal.Decimal) func(*CatalogEntryFixture) {
	return func(e *CatalogEntryFixture) {
		e.PackSize = size
	}
}

// WithPackCost sets the catalog entry pack cost
func WithPackCost(cost decimal.Decimal) func(*CatalogEntryFixture) {
	return func(e *CatalogEntryFixture) {
		e.PackCost = cost
	}
}

// WithLeadTime sets the catalog entry lead time in days
func WithLeadTime(days int) func(*CatalogEntryFixture) {
	return func(e *CatalogEntryFixture) {
		e.LeadTimeDays = days
	}
}

// WithMinOrder sets the catalog entry minimum order in packs
func WithMinOrder(packs int) func(*CatalogEntryFixture) {
	return func(e *CatalogEntryFixture) {
		e.MinOrderPacks = packs
	}
}
