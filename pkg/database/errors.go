package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Serialization failure (40001) - per-product atomic unit lost a race
	case "40001":
		return errors.ConcurrencyConflict(pqErr.Table)

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.InvalidQuantity("quantity must not be negative")

	case strings.Contains(constraint, "adjustment_type_valid"):
		return errors.Validation(map[string]string{
			"type": "must be one of: purchase, sale, waste, manual, stocktake",
		})

	case strings.Contains(constraint, "order_status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: pending, confirmed, delivered, cancelled",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "unacknowledged_alert"):
		return "an unacknowledged low-stock alert already exists for this product"
	case strings.Contains(constraint, "product_name"):
		return "a product with this name already exists"
	default:
		return "a record with these values already exists"
	}
}
