package repository

import (
	"context"

	"github.com/prepflow/prepflow-backend/pkg/database"
)

// AdjustmentRepository reads the append-only adjustment ledger
type AdjustmentRepository struct {
	db *database.DB
}

// NewAdjustmentRepository creates a new adjustment repository
func NewAdjustmentRepository(db *database.DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

// ListByProduct lists a product's adjustments, newest first
func (r *AdjustmentRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]*Adjustment, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}
	offset := (page - 1) * perPage

	var total int64
	countQuery := `SELECT COUNT(*) FROM stock_adjustments WHERE product_id = $1`
	if err := r.db.GetContext(ctx, &total, countQuery, productID); err != nil {
		return nil, 0, err
	}

	var adjustments []*Adjustment
	query := `
		SELECT * FROM stock_adjustments
		WHERE product_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &adjustments, query, productID, perPage, offset); err != nil {
		return nil, 0, err
	}
	return adjustments, total, nil
}

// ListRecent lists the most recent adjustments across all products
func (r *AdjustmentRepository) ListRecent(ctx context.Context, limit int) ([]*Adjustment, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var adjustments []*Adjustment
	query := `SELECT * FROM stock_adjustments ORDER BY created_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &adjustments, query, limit); err != nil {
		return nil, err
	}
	return adjustments, nil
}
