package planning

import (
	"context"
	"sort"

	"github.com/prepflow/prepflow-backend/internal/inventory/events"
	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Urgency tiers, ordered from most to least pressing
const (
	UrgencyCritical = "critical"
	UrgencyHigh     = "high"
	UrgencyMedium   = "medium"
	UrgencyLow      = "low"
)

// IngredientRequirement is one ingredient's computed reorder position.
// Ephemeral: recomputed per planning run, never ground truth.
type IngredientRequirement struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	Required     decimal.Decimal `json:"required"`
	Net          decimal.Decimal `json:"net"`
	SupplierID   string          `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	PackSize     decimal.Decimal `json:"pack_size"`
	PacksNeeded  int             `json:"packs_needed"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Urgency      string          `json:"urgency"`
	LeadTimeDays int             `json:"lead_time_days"`
}

// StockReader reads current stock levels
type StockReader interface {
	GetProduct(ctx context.Context, productID string) (*repository.Product, error)
	TotalStock(ctx context.Context, productID string) (decimal.Decimal, error)
}

// CatalogReader resolves a product to its supplier offer
type CatalogReader interface {
	EntryForProduct(ctx context.Context, productID string) (*repository.CatalogEntry, error)
}

// OrderWriter persists proposed supplier orders
type OrderWriter interface {
	Create(ctx context.Context, order *repository.SupplierOrder) error
}

// ReplenishmentEngine computes net ingredient requirements with urgency
// tiers and groups them into per-supplier orders
type ReplenishmentEngine struct {
	stock     StockReader
	catalog   CatalogReader
	publisher *events.InventoryEventPublisher
	logger    *logger.Logger
}

// NewReplenishmentEngine creates a new replenishment engine. publisher
// may be nil.
func NewReplenishmentEngine(stock StockReader, catalog CatalogReader, publisher *events.InventoryEventPublisher, log *logger.Logger) *ReplenishmentEngine {
	return &ReplenishmentEngine{
		stock:     stock,
		catalog:   catalog,
		publisher: publisher,
		logger:    log,
	}
}

// ComputeRequirements turns aggregated demand over a horizon into
// reorder positions. Ingredients already covered by current stock are
// omitted. A demanded ingredient missing from the supplier catalog
// fails the run; demand we cannot order against is not silently
// droppable.
func (e *ReplenishmentEngine) ComputeRequirements(ctx context.Context, demand map[string]decimal.Decimal, horizonDays int) ([]*IngredientRequirement, error) {
	if horizonDays < 1 {
		return nil, errors.BadRequest("horizon must be at least one day")
	}

	productIDs := make([]string, 0, len(demand))
	for id := range demand {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	var requirements []*IngredientRequirement
	for _, productID := range productIDs {
		required := demand[productID]
		if !required.IsPositive() {
			continue
		}

		product, err := e.stock.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}

		stock, err := e.stock.TotalStock(ctx, productID)
		if err != nil {
			return nil, err
		}

		net := required.Sub(stock)
		if !net.IsPositive() {
			continue
		}

		entry, err := e.catalog.EntryForProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.Unavailable("supplier catalog entry for product " + productID)
			}
			return nil, err
		}

		packs := packsNeeded(net, entry.PackSize, entry.MinOrderPacks)
		dailyDemand := required.Div(decimal.NewFromInt(int64(horizonDays)))

		requirements = append(requirements, &IngredientRequirement{
			ProductID:    productID,
			ProductName:  product.Name,
			CurrentStock: stock,
			Required:     required,
			Net:          net,
			SupplierID:   entry.SupplierID,
			SupplierName: entry.SupplierName,
			PackSize:     entry.PackSize,
			PacksNeeded:  packs,
			TotalCost:    entry.PackCost.Mul(decimal.NewFromInt(int64(packs))),
			Urgency:      urgencyTier(stock, dailyDemand, entry.LeadTimeDays),
			LeadTimeDays: entry.LeadTimeDays,
		})
	}

	return requirements, nil
}

// GroupBySupplier partitions requirements into one order per supplier,
// summing cost and preserving per-line detail
func (e *ReplenishmentEngine) GroupBySupplier(requirements []*IngredientRequirement) []*repository.SupplierOrder {
	bySupplier := make(map[string]*repository.SupplierOrder)
	var order []string

	for _, req := range requirements {
		group, ok := bySupplier[req.SupplierID]
		if !ok {
			group = &repository.SupplierOrder{
				SupplierID:   req.SupplierID,
				SupplierName: req.SupplierName,
				Status:       repository.OrderPending,
				TotalCost:    decimal.Zero,
			}
			bySupplier[req.SupplierID] = group
			order = append(order, req.SupplierID)
		}

		group.TotalCost = group.TotalCost.Add(req.TotalCost)
		group.Lines = append(group.Lines, &repository.OrderLine{
			ProductID: req.ProductID,
			Packs:     req.PacksNeeded,
			PackSize:  req.PackSize,
			PackCost:  req.TotalCost.Div(decimal.NewFromInt(int64(req.PacksNeeded))),
			Urgency:   req.Urgency,
		})
	}

	orders := make([]*repository.SupplierOrder, 0, len(bySupplier))
	for _, supplierID := range order {
		orders = append(orders, bySupplier[supplierID])
	}
	return orders
}

// ProposeOrders groups requirements, persists the resulting orders as
// pending drafts, and announces them
func (e *ReplenishmentEngine) ProposeOrders(ctx context.Context, requirements []*IngredientRequirement, writer OrderWriter) ([]*repository.SupplierOrder, error) {
	orders := e.GroupBySupplier(requirements)

	for _, order := range orders {
		if err := writer.Create(ctx, order); err != nil {
			return nil, err
		}

		e.logger.Info().
			Str("order_id", order.ID).
			Str("supplier_id", order.SupplierID).
			Str("total_cost", order.TotalCost.String()).
			Int("lines", len(order.Lines)).
			Msg("supplier order proposed")

		if e.publisher != nil {
			e.publisher.PublishOrderProposed(ctx, order)
		}
	}

	return orders, nil
}

// packsNeeded rounds net demand up to whole packs, then up to the
// supplier's minimum order
func packsNeeded(net, packSize decimal.Decimal, minOrder int) int {
	packs := int(net.Div(packSize).Ceil().IntPart())
	if packs < minOrder {
		packs = minOrder
	}
	return packs
}

// urgencyTier classifies how soon a reorder must happen. Boundaries are
// half-open on the lead time: running out exactly when the delivery
// lands counts as high, not critical.
func urgencyTier(stock, dailyDemand decimal.Decimal, leadTimeDays int) string {
	if !dailyDemand.IsPositive() {
		return UrgencyLow
	}

	daysUntilStockout := stock.Div(dailyDemand)
	lead := decimal.NewFromInt(int64(leadTimeDays))

	switch {
	case daysUntilStockout.LessThan(lead):
		return UrgencyCritical
	case daysUntilStockout.LessThan(lead.Add(decimal.NewFromInt(3))):
		return UrgencyHigh
	case daysUntilStockout.LessThan(lead.Add(decimal.NewFromInt(7))):
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
