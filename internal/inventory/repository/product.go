package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// ProductRepository handles product persistence
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, product *Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (
			id, name, unit, category, min_threshold, is_critical, shelf_life_days
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		product.ID, product.Name, product.Unit, product.Category,
		product.MinThreshold, product.IsCritical, product.ShelfLifeDays,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	query := `SELECT * FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// List lists products with pagination, optionally filtered by category
func (r *ProductRepository) List(ctx context.Context, page, perPage int, category string) ([]*Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	var products []*Product
	var total int64

	if category != "" {
		countQuery := `SELECT COUNT(*) FROM products WHERE category = $1`
		if err := r.db.GetContext(ctx, &total, countQuery, category); err != nil {
			return nil, 0, err
		}

		query := `
			SELECT * FROM products WHERE category = $1
			ORDER BY name LIMIT $2 OFFSET $3
		`
		if err := r.db.SelectContext(ctx, &products, query, category, perPage, offset); err != nil {
			return nil, 0, err
		}
		return products, total, nil
	}

	countQuery := `SELECT COUNT(*) FROM products`
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM products ORDER BY name LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &products, query, perPage, offset); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListAll lists all products without pagination, for alert scans
func (r *ProductRepository) ListAll(ctx context.Context) ([]*Product, error) {
	var products []*Product
	query := `SELECT * FROM products ORDER BY name`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, err
	}
	return products, nil
}

// Update updates a product
func (r *ProductRepository) Update(ctx context.Context, product *Product) error {
	query := `
		UPDATE products SET
			name = $2, unit = $3, category = $4, min_threshold = $5,
			is_critical = $6, shelf_life_days = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		product.ID, product.Name, product.Unit, product.Category,
		product.MinThreshold, product.IsCritical, product.ShelfLifeDays,
	)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("product")
	}
	return nil
}

// Delete deletes a product. Fails if batches or adjustments reference it.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return database.MapPQError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("product")
	}
	return nil
}
