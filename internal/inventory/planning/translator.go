// Package planning turns sales forecasts into ingredient demand and
// ingredient demand into supplier orders.
package planning

import (
	"context"
	"time"

	"github.com/prepflow/prepflow-backend/internal/inventory/repository"
	"github.com/prepflow/prepflow-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// ForecastPoint is one predicted menu item quantity on one day
type ForecastPoint struct {
	Date       time.Time       `json:"date"`
	MenuItemID string          `json:"menu_item_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// RecipeReader resolves a menu item to its ingredient lines
type RecipeReader interface {
	LinesForMenuItem(ctx context.Context, menuItemID string) ([]*repository.RecipeLine, error)
}

// Translator expands forecasted menu item sales into ingredient demand
// via recipe lines
type Translator struct {
	recipes RecipeReader
	logger  *logger.Logger
}

// NewTranslator creates a new translator
func NewTranslator(recipes RecipeReader, log *logger.Logger) *Translator {
	return &Translator{recipes: recipes, logger: log}
}

// Translate accumulates ingredient demand across the whole forecast.
// A menu item with no recipe lines contributes nothing; forecast data
// is allowed to run ahead of recipe data.
func (t *Translator) Translate(ctx context.Context, forecast []ForecastPoint) (map[string]decimal.Decimal, error) {
	demand := make(map[string]decimal.Decimal)
	lineCache := make(map[string][]*repository.RecipeLine)

	for _, point := range forecast {
		if !point.Quantity.IsPositive() {
			continue
		}

		lines, ok := lineCache[point.MenuItemID]
		if !ok {
			var err error
			lines, err = t.recipes.LinesForMenuItem(ctx, point.MenuItemID)
			if err != nil {
				return nil, err
			}
			lineCache[point.MenuItemID] = lines

			if len(lines) == 0 {
				t.logger.Debug().
					Str("menu_item_id", point.MenuItemID).
					Msg("forecasted menu item has no recipe, skipping")
			}
		}

		for _, line := range lines {
			need := line.Quantity.Mul(point.Quantity)
			demand[line.ProductID] = demand[line.ProductID].Add(need)
		}
	}

	return demand, nil
}

// HorizonDays counts the distinct days covered by a forecast
func HorizonDays(forecast []ForecastPoint) int {
	days := make(map[string]struct{})
	for _, point := range forecast {
		days[point.Date.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}
