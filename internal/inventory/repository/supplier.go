package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// SupplierRepository handles supplier catalog persistence
type SupplierRepository struct {
	db *database.DB
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *database.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Upsert creates or replaces a catalog entry for (supplier, product)
func (r *SupplierRepository) Upsert(ctx context.Context, entry *CatalogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO supplier_catalog (
			id, supplier_id, supplier_name, product_id,
			pack_size, pack_cost, min_order_packs, lead_time_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (supplier_id, product_id) DO UPDATE SET
			supplier_name = EXCLUDED.supplier_name,
			pack_size = EXCLUDED.pack_size,
			pack_cost = EXCLUDED.pack_cost,
			min_order_packs = EXCLUDED.min_order_packs,
			lead_time_days = EXCLUDED.lead_time_days
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.SupplierID, entry.SupplierName, entry.ProductID,
		entry.PackSize, entry.PackCost, entry.MinOrderPacks, entry.LeadTimeDays,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// EntryForProduct returns the preferred catalog entry for a product.
// When several suppliers carry it the cheapest per-unit offer wins.
func (r *SupplierRepository) EntryForProduct(ctx context.Context, productID string) (*CatalogEntry, error) {
	var entry CatalogEntry
	query := `
		SELECT * FROM supplier_catalog
		WHERE product_id = $1
		ORDER BY pack_cost / pack_size ASC, lead_time_days ASC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &entry, query, productID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("catalog entry")
		}
		return nil, err
	}
	return &entry, nil
}

// ListBySupplier lists a supplier's catalog entries
func (r *SupplierRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	query := `SELECT * FROM supplier_catalog WHERE supplier_id = $1 ORDER BY product_id`
	if err := r.db.SelectContext(ctx, &entries, query, supplierID); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListAll lists all catalog entries
func (r *SupplierRepository) ListAll(ctx context.Context) ([]*CatalogEntry, error) {
	var entries []*CatalogEntry
	query := `SELECT * FROM supplier_catalog ORDER BY supplier_id, product_id`
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, err
	}
	return entries, nil
}

// Delete removes one catalog entry
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM supplier_catalog WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("catalog entry")
	}
	return nil
}
