package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Exchange names
const (
	ExchangeInventoryEvents = "inventory.events"
	ExchangePOSEvents       = "pos.events"
	ExchangeOrderingEvents  = "ordering.events"
)

// Event types
const (
	EventPOSSaleRecorded     = "pos.sale.recorded"
	EventStockAdjusted       = "inventory.stock.adjusted"
	EventAlertCreated        = "inventory.alert.created"
	EventBatchExpiring       = "inventory.batch.expiring"
	EventOrderProposed       = "ordering.order.proposed"
	EventOrderStatusChanged  = "ordering.order.status_changed"
	EventStocktakeReconciled = "inventory.stocktake.reconciled"
)

// Event is the base envelope for all events
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and payload
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          payload,
	}, nil
}

// UnmarshalData decodes the event payload into the given struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// SaleLine is a single menu item line on a recorded sale
type SaleLine struct {
	MenuItemID string          `json:"menu_item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// POSSaleRecordedEvent is published by the POS when a sale completes
type POSSaleRecordedEvent struct {
	SaleID     string     `json:"sale_id"`
	LocationID string     `json:"location_id,omitempty"`
	Lines      []SaleLine `json:"lines"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// StockAdjustedEvent is published after any ledger mutation commits
type StockAdjustedEvent struct {
	AdjustmentID   string          `json:"adjustment_id"`
	ProductID      string          `json:"product_id"`
	AdjustmentType string          `json:"adjustment_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	StockAfter     decimal.Decimal `json:"stock_after"`
	Reason         string          `json:"reason,omitempty"`
	AdjustedAt     time.Time       `json:"adjusted_at"`
}

// AlertCreatedEvent is published when a new low-stock alert is raised
type AlertCreatedEvent struct {
	AlertID      string          `json:"alert_id"`
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Threshold    decimal.Decimal `json:"threshold"`
	IsCritical   bool            `json:"is_critical"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BatchExpiringEvent is published when a batch enters the expiry warning window
type BatchExpiringEvent struct {
	BatchID    string          `json:"batch_id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpiryDate time.Time       `json:"expiry_date"`
}

// OrderProposedEvent is published when a supplier order draft is generated
type OrderProposedEvent struct {
	OrderID    string          `json:"order_id"`
	SupplierID string          `json:"supplier_id"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	LineCount  int             `json:"line_count"`
	ProposedAt time.Time       `json:"proposed_at"`
}

// OrderStatusChangedEvent is published on supplier order lifecycle transitions
type OrderStatusChangedEvent struct {
	OrderID   string    `json:"order_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}
