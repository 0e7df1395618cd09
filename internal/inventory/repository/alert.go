package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// AlertRepository handles low stock alert persistence
type AlertRepository struct {
	db *database.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *database.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// CreateIfAbsent inserts an alert unless the product already has an
// unacknowledged one. Returns true when a new alert was created, false
// when one already existed.
func (r *AlertRepository) CreateIfAbsent(ctx context.Context, alert *LowStockAlert) (bool, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}

	query := `
		INSERT INTO low_stock_alerts (
			id, product_id, product_name, current_stock, threshold, is_critical
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.ProductID, alert.ProductName,
		alert.CurrentStock, alert.Threshold, alert.IsCritical,
	).Scan(&alert.CreatedAt)
	if err != nil {
		// The partial unique index on unacknowledged alerts makes the
		// dedup race-safe: a concurrent insert loses with 23505.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, nil
		}
		return false, database.MapPQError(err)
	}
	return true, nil
}

// GetByID gets an alert by ID
func (r *AlertRepository) GetByID(ctx context.Context, id string) (*LowStockAlert, error) {
	var alert LowStockAlert
	query := `SELECT * FROM low_stock_alerts WHERE id = $1`
	if err := r.db.GetContext(ctx, &alert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return &alert, nil
}

// Acknowledge marks an alert as acknowledged. Missing and already
// acknowledged alerts both report not found.
func (r *AlertRepository) Acknowledge(ctx context.Context, id, actorID string) (*LowStockAlert, error) {
	var alert LowStockAlert
	query := `
		UPDATE low_stock_alerts
		SET acknowledged = TRUE,
		    acknowledged_by = $2,
		    acknowledged_at = $3
		WHERE id = $1 AND NOT acknowledged
		RETURNING *
	`
	err := r.db.GetContext(ctx, &alert, query, id, actorID, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("alert")
		}
		return nil, err
	}
	return &alert, nil
}

// ListOpen lists unacknowledged alerts, newest first
func (r *AlertRepository) ListOpen(ctx context.Context) ([]*LowStockAlert, error) {
	var alerts []*LowStockAlert
	query := `
		SELECT * FROM low_stock_alerts
		WHERE NOT acknowledged
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &alerts, query); err != nil {
		return nil, err
	}
	return alerts, nil
}

// HasOpenAlert reports whether a product has an unacknowledged alert
func (r *AlertRepository) HasOpenAlert(ctx context.Context, productID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM low_stock_alerts
			WHERE product_id = $1 AND NOT acknowledged
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, productID); err != nil {
		return false, err
	}
	return exists, nil
}
