package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// fifoOrder drains batches nearest to expiry first. Batches without an
// expiry date sort last, ties break on received date.
const fifoOrder = `ORDER BY expiry_date ASC NULLS LAST, received_date ASC, id ASC`

// StockRepository handles batch and adjustment persistence. It is the
// PostgreSQL backing store for the stock ledger.
type StockRepository struct {
	db *database.DB
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db *database.DB) *StockRepository {
	return &StockRepository{db: db}
}

// GetProduct gets a product by ID
func (r *StockRepository) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	query := `SELECT * FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &product, query, productID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// FIFOBatches lists a product's batches in consumption order
func (r *StockRepository) FIFOBatches(ctx context.Context, productID string) ([]*Batch, error) {
	var batches []*Batch
	query := `SELECT * FROM stock_batches WHERE product_id = $1 ` + fifoOrder
	if err := r.db.SelectContext(ctx, &batches, query, productID); err != nil {
		return nil, err
	}
	return batches, nil
}

// TotalStock sums a product's batch quantities
func (r *StockRepository) TotalStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(quantity), 0) FROM stock_batches WHERE product_id = $1`
	if err := r.db.GetContext(ctx, &total, query, productID); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// GetBatch gets a single batch by ID
func (r *StockRepository) GetBatch(ctx context.Context, id string) (*Batch, error) {
	var batch Batch
	query := `SELECT * FROM stock_batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListExpiring lists batches whose expiry date falls within the given
// number of days from now, soonest first
func (r *StockRepository) ListExpiring(ctx context.Context, withinDays int) ([]*Batch, error) {
	var batches []*Batch
	query := `
		SELECT * FROM stock_batches
		WHERE expiry_date IS NOT NULL AND expiry_date <= $1
		ORDER BY expiry_date ASC
	`
	cutoff := time.Now().AddDate(0, 0, withinDays)
	if err := r.db.SelectContext(ctx, &batches, query, cutoff); err != nil {
		return nil, err
	}
	return batches, nil
}

// Apply commits a stock mutation atomically: batch deductions, an
// optional new batch, and the adjustment entry all land in one
// transaction. Batch rows are locked for the duration so concurrent
// mutations on the same product serialize.
func (r *StockRepository) Apply(ctx context.Context, mut *StockMutation) (*Adjustment, error) {
	adj := mut.Adjustment
	if adj == nil {
		return nil, errors.Internal("stock mutation without adjustment")
	}
	if adj.ID == "" {
		adj.ID = uuid.New().String()
	}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		// Lock the product's batch rows. This also serializes against
		// other Apply calls for the same product.
		lockQuery := `SELECT id FROM stock_batches WHERE product_id = $1 FOR UPDATE`
		var lockedIDs []string
		if err := tx.SelectContext(ctx, &lockedIDs, lockQuery, mut.ProductID); err != nil {
			return err
		}

		for _, d := range mut.Deductions {
			if d.Delete {
				res, err := tx.ExecContext(ctx,
					`DELETE FROM stock_batches WHERE id = $1`, d.BatchID)
				if err != nil {
					return database.MapPQError(err)
				}
				if n, _ := res.RowsAffected(); n == 0 {
					return errors.ConcurrencyConflict(mut.ProductID)
				}
				continue
			}

			res, err := tx.ExecContext(ctx,
				`UPDATE stock_batches SET quantity = $2 WHERE id = $1`,
				d.BatchID, d.NewQuantity)
			if err != nil {
				return database.MapPQError(err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return errors.ConcurrencyConflict(mut.ProductID)
			}
		}

		if b := mut.NewBatch; b != nil {
			if b.ID == "" {
				b.ID = uuid.New().String()
			}
			if b.ReceivedDate.IsZero() {
				b.ReceivedDate = time.Now().UTC()
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stock_batches (id, product_id, quantity, unit_cost, expiry_date, received_date)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, b.ID, b.ProductID, b.Quantity, b.UnitCost, b.ExpiryDate, b.ReceivedDate)
			if err != nil {
				return database.MapPQError(err)
			}
		}

		// Recompute the balance inside the transaction so stock_after
		// reflects exactly what was committed.
		var stockAfter decimal.Decimal
		err := tx.GetContext(ctx, &stockAfter,
			`SELECT COALESCE(SUM(quantity), 0) FROM stock_batches WHERE product_id = $1`,
			mut.ProductID)
		if err != nil {
			return err
		}
		adj.StockAfter = stockAfter

		insertAdj := `
			INSERT INTO stock_adjustments (
				id, product_id, seq, adjustment_type, quantity, stock_after,
				reason, actor_id, reference_id
			) VALUES (
				$1, $2,
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM stock_adjustments WHERE product_id = $2),
				$3, $4, $5, $6, $7, $8
			)
			RETURNING seq, created_at
		`
		err = tx.QueryRowxContext(ctx, insertAdj,
			adj.ID, mut.ProductID, adj.Type, adj.Quantity, adj.StockAfter,
			adj.Reason, adj.ActorID, adj.ReferenceID,
		).Scan(&adj.Seq, &adj.CreatedAt)
		if err != nil {
			return database.MapPQError(err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	adj.ProductID = mut.ProductID
	return adj, nil
}
