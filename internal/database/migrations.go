package database

import (
	"fmt"

	"realestate/server/internal/models"
)

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(
		&models.Agent{},
		&models.Listing{},
		&models.ListingImage{},
		&models.ComparableSale{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Estimates look suburbs up case-insensitively
	err := d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_comparable_sales_suburb_nocase
		ON comparable_sales(LOWER(suburb), property_type);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create suburb index: %w", err)
	}

	// Create spatial index on coordinates
	err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_coordinates
		ON listings(latitude, longitude);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create coordinates index: %w", err)
	}

	return nil
}
