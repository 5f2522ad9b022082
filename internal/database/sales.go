package database

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realestate/server/internal/models"
)

// InsertSales stores comparable sales. A sale already recorded for the same
// address and date is left as is; the count of new rows is returned.
func (d *Database) InsertSales(ctx context.Context, sales []models.ComparableSale) (int, error) {
	if len(sales) == 0 {
		return 0, nil
	}

	var inserted int64
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&sales, 100)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert comparable sales: %w", err)
	}
	return int(inserted), nil
}

// SuburbSales returns every comparable sale in a suburb, matched
// case-insensitively. It satisfies estimate.Dataset.
func (d *Database) SuburbSales(ctx context.Context, suburb string) ([]models.ComparableSale, error) {
	var sales []models.ComparableSale
	err := d.db.WithContext(ctx).
		Where("LOWER(suburb) = LOWER(?)", strings.TrimSpace(suburb)).
		Order("sale_date ASC, address ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query comparable sales: %w", err)
	}
	return sales, nil
}

// normalizedAddress folds case and turns ", " into a single space so stored
// addresses compare like lookup queries.
const normalizedAddress = "REPLACE(REPLACE(LOWER(address), ',', ' '), '  ', ' ')"

// SalesMatchingAddress returns up to limit sales whose address contains every
// word of the query. Exact and prefix matches come first, then the most
// recent sales. Final ranking is left to the caller.
func (d *Database) SalesMatchingAddress(ctx context.Context, query string, limit int) ([]models.ComparableSale, error) {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(query, ",", " ")))
	normalized := strings.Join(words, " ")

	tx := d.db.WithContext(ctx)
	for _, word := range words {
		tx = tx.Where(normalizedAddress+" LIKE ?", "%"+word+"%")
	}

	var sales []models.ComparableSale
	err := tx.
		Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL: "CASE WHEN " + normalizedAddress + " = ? THEN 0 WHEN " + normalizedAddress +
				" LIKE ? THEN 1 ELSE 2 END, sale_date DESC, address ASC, id ASC",
			Vars:               []interface{}{normalized, normalized + "%"},
			WithoutParentheses: true,
		}}).
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search comparable sales: %w", err)
	}
	return sales, nil
}

// Suburbs returns the distinct suburb names in the comparable dataset
func (d *Database) Suburbs(ctx context.Context) ([]string, error) {
	var suburbs []string
	err := d.db.WithContext(ctx).Model(&models.ComparableSale{}).
		Distinct().
		Order("suburb ASC").
		Pluck("suburb", &suburbs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query suburbs: %w", err)
	}
	return suburbs, nil
}
