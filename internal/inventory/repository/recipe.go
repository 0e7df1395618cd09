package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepflow/prepflow-backend/pkg/database"
	"github.com/prepflow/prepflow-backend/pkg/errors"
)

// RecipeRepository handles recipe line persistence
type RecipeRepository struct {
	db *database.DB
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *database.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Upsert creates or replaces a recipe line for (menu item, product)
func (r *RecipeRepository) Upsert(ctx context.Context, line *RecipeLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}

	query := `
		INSERT INTO recipe_lines (
			id, menu_item_id, menu_item_name, product_id, quantity, is_critical
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (menu_item_id, product_id) DO UPDATE SET
			menu_item_name = EXCLUDED.menu_item_name,
			quantity = EXCLUDED.quantity,
			is_critical = EXCLUDED.is_critical
	`

	_, err := r.db.ExecContext(ctx, query,
		line.ID, line.MenuItemID, line.MenuItemName,
		line.ProductID, line.Quantity, line.IsCritical,
	)
	if err != nil {
		return database.MapPQError(err)
	}
	return nil
}

// LinesForMenuItem lists ingredient lines for one menu item
func (r *RecipeRepository) LinesForMenuItem(ctx context.Context, menuItemID string) ([]*RecipeLine, error) {
	var lines []*RecipeLine
	query := `SELECT * FROM recipe_lines WHERE menu_item_id = $1 ORDER BY product_id`
	if err := r.db.SelectContext(ctx, &lines, query, menuItemID); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListMenuItems lists distinct menu item IDs that have recipe lines
func (r *RecipeRepository) ListMenuItems(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT menu_item_id FROM recipe_lines ORDER BY menu_item_id`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

// Delete removes one recipe line
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recipe_lines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NotFound("recipe line")
	}
	return nil
}

// GetByID gets a recipe line by ID
func (r *RecipeRepository) GetByID(ctx context.Context, id string) (*RecipeLine, error) {
	var line RecipeLine
	query := `SELECT * FROM recipe_lines WHERE id = $1`
	if err := r.db.GetContext(ctx, &line, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("recipe line")
		}
		return nil, err
	}
	return &line, nil
}
