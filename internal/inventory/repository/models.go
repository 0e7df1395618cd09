package repository

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentType classifies a stock ledger entry
type AdjustmentType string

const (
	AdjustmentPurchase  AdjustmentType = "purchase"
	AdjustmentSale      AdjustmentType = "sale"
	AdjustmentWaste     AdjustmentType = "waste"
	AdjustmentManual    AdjustmentType = "manual"
	AdjustmentStocktake AdjustmentType = "stocktake"
)

// Valid reports whether t is a known adjustment type
func (t AdjustmentType) Valid() bool {
	switch t {
	case AdjustmentPurchase, AdjustmentSale, AdjustmentWaste, AdjustmentManual, AdjustmentStocktake:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of a supplier order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Product represents a perishable ingredient tracked in the ledger
type Product struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name" validate:"required"`
	Unit          string          `db:"unit" json:"unit" validate:"required"`
	Category      *string         `db:"category" json:"category,omitempty"`
	MinThreshold  decimal.Decimal `db:"min_threshold" json:"min_threshold"`
	IsCritical    bool            `db:"is_critical" json:"is_critical"`
	ShelfLifeDays *int            `db:"shelf_life_days" json:"shelf_life_days,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Batch is a received lot of stock with its own expiry date
type Batch struct {
	ID           string          `db:"id" json:"id"`
	ProductID    string          `db:"product_id" json:"product_id"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	ExpiryDate   *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	ReceivedDate time.Time       `db:"received_date" json:"received_date"`
}

// Adjustment is an append-only ledger entry recording a stock change.
// Seq is strictly increasing per product.
type Adjustment struct {
	ID          string          `db:"id" json:"id"`
	ProductID   string          `db:"product_id" json:"product_id"`
	Seq         int64           `db:"seq" json:"seq"`
	Type        AdjustmentType  `db:"adjustment_type" json:"adjustment_type"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	StockAfter  decimal.Decimal `db:"stock_after" json:"stock_after"`
	Reason      *string         `db:"reason" json:"reason,omitempty"`
	ActorID     *string         `db:"actor_id" json:"actor_id,omitempty"`
	ReferenceID *string         `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// LowStockAlert is raised when a product's total stock drops below its
// threshold. At most one unacknowledged alert exists per product.
type LowStockAlert struct {
	ID             string          `db:"id" json:"id"`
	ProductID      string          `db:"product_id" json:"product_id"`
	ProductName    string          `db:"product_name" json:"product_name"`
	CurrentStock   decimal.Decimal `db:"current_stock" json:"current_stock"`
	Threshold      decimal.Decimal `db:"threshold" json:"threshold"`
	IsCritical     bool            `db:"is_critical" json:"is_critical"`
	Acknowledged   bool            `db:"acknowledged" json:"acknowledged"`
	AcknowledgedBy *string         `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time      `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// RecipeLine maps one ingredient of a menu item to a ledger product
type RecipeLine struct {
	ID           string          `db:"id" json:"id"`
	MenuItemID   string          `db:"menu_item_id" json:"menu_item_id" validate:"required"`
	MenuItemName *string         `db:"menu_item_name" json:"menu_item_name,omitempty"`
	ProductID    string          `db:"product_id" json:"product_id" validate:"required"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	IsCritical   bool            `db:"is_critical" json:"is_critical"`
}

// CatalogEntry describes how a supplier sells a product
type CatalogEntry struct {
	ID            string          `db:"id" json:"id"`
	SupplierID    string          `db:"supplier_id" json:"supplier_id" validate:"required"`
	SupplierName  string          `db:"supplier_name" json:"supplier_name"`
	ProductID     string          `db:"product_id" json:"product_id" validate:"required"`
	PackSize      decimal.Decimal `db:"pack_size" json:"pack_size"`
	PackCost      decimal.Decimal `db:"pack_cost" json:"pack_cost"`
	MinOrderPacks int             `db:"min_order_packs" json:"min_order_packs"`
	LeadTimeDays  int             `db:"lead_time_days" json:"lead_time_days"`
}

// SupplierOrder is a replenishment order sent to one supplier
type SupplierOrder struct {
	ID           string          `db:"id" json:"id"`
	SupplierID   string          `db:"supplier_id" json:"supplier_id"`
	SupplierName string          `db:"supplier_name" json:"supplier_name"`
	Status       OrderStatus     `db:"status" json:"status"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	Lines        []*OrderLine    `db:"-" json:"lines,omitempty"`
}

// OrderLine is one product position on a supplier order
type OrderLine struct {
	ID        string          `db:"id" json:"id"`
	OrderID   string          `db:"order_id" json:"order_id"`
	ProductID string          `db:"product_id" json:"product_id"`
	Packs     int             `db:"packs" json:"packs"`
	PackSize  decimal.Decimal `db:"pack_size" json:"pack_size"`
	PackCost  decimal.Decimal `db:"pack_cost" json:"pack_cost"`
	Urgency   string          `db:"urgency" json:"urgency"`
}

// BatchDeduction instructs the store to shrink or remove one batch
type BatchDeduction struct {
	BatchID     string
	NewQuantity decimal.Decimal
	Delete      bool
}

// StockMutation is the atomic unit applied to the ledger: batch changes
// plus the adjustment entry describing them. Either all of it commits or
// none of it does.
type StockMutation struct {
	ProductID  string
	Deductions []BatchDeduction
	NewBatch   *Batch
	Adjustment *Adjustment
}
