package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// validTransitions lists the allowed order status changes
var validTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderDelivered, OrderCancelled},
}

// CanTransition reports whether an order may move from one status to another
func CanTransition(from, to OrderStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderRepository handles supplier order persistence
type OrderRepository struct {
	db *database.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create creates an order with its lines in one transaction
func (r *OrderRepository) Create(ctx context.Context, order *SupplierOrder) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = OrderPending
	}

	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO supplier_orders (id, supplier_id, supplier_name, status, total_cost)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowxContext(ctx, query,
			order.ID, order.SupplierID, order.SupplierName, order.Status, order.TotalCost,
		).Scan(&order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return database.MapPQError(err)
		}

		for _, line := range order.Lines {
			if line.ID == "" {
				line.ID = uuid.New().String()
			}
			line.OrderID = order.ID

			_, err := tx.ExecContext(ctx, `
				INSERT INTO supplier_order_lines (id, order_id, product_id, packs, pack_size, pack_cost, urgency)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, line.ID, line.OrderID, line.ProductID, line.Packs, line.PackSize, line.PackCost, line.Urgency)
			if err != nil {
				return database.MapPQError(err)
			}
		}

		return nil
	})
}

// GetByID gets an order with its lines
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*SupplierOrder, error) {
	var order SupplierOrder
	query := `SELECT * FROM supplier_orders WHERE id = $1`
	if err := r.db.GetContext(ctx, &order, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("order")
		}
		return nil, err
	}

	var lines []*OrderLine
	lineQuery := `SELECT * FROM supplier_order_lines WHERE order_id = $1 ORDER BY product_id`
	if err := r.db.SelectContext(ctx, &lines, lineQuery, id); err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

// List lists orders, optionally filtered by status, newest first
func (r *OrderRepository) List(ctx context.Context, status OrderStatus, page, perPage int) ([]*SupplierOrder, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var orders []*SupplierOrder
	var total int64

	if status != "" {
		countQuery := `SELECT COUNT(*) FROM supplier_orders WHERE status = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, status); err != nil {
			return nil, 0, err
		}
		query := `
			SELECT * FROM supplier_orders WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3
		`
		if err := r.db.SelectContext(ctx, &orders, query, status, perPage, offset); err != nil {
			return nil, 0, err
		}
		return orders, total, nil
	}

	countQuery := `SELECT COUNT(*) FROM supplier_orders`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}
	query := `SELECT * FROM supplier_orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &orders, query, perPage, offset); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus transitions an order to a new status. Invalid transitions
// return a conflict error.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, newStatus OrderStatus) (*SupplierOrder, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(order.Status, newStatus) {
		return nil, errors.Conflict(
			"order cannot move from " + string(order.Status) + " to " + string(newStatus))
	}

	query := `
		UPDATE supplier_orders SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, newStatus, order.Status)
	if err != nil {
		return nil, database.MapPQError(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		// Status changed under us between read and write
		return nil, errors.ConcurrencyConflict(id)
	}

	order.Status = newStatus
	return order, nil
}
