package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"realestate/server/internal/models"
)

// SearchListings applies the text filters in SQL and the numeric ones on the
// loaded rows. Results are ordered by date with undated listings last.
func (d *Database) SearchListings(ctx context.Context, filters models.ListingFilters) ([]models.Listing, error) {
	query := d.db.WithContext(ctx).Preload("Agent")

	if filters.NeedsHelp {
		query = query.Where("needs_help = ?", true)
	}
	if filters.Suburb != "" {
		query = query.Where("LOWER(suburb) LIKE ?", "%"+strings.ToLower(filters.Suburb)+"%")
	}
	if filters.PropertyType != "" {
		query = query.Where("LOWER(property_type) LIKE ?", "%"+strings.ToLower(filters.PropertyType)+"%")
	}
	if filters.Office != "" {
		query = query.Where("office = ?", filters.Office)
	}

	var listings []models.Listing
	if err := query.Order("date IS NULL, date ASC, id ASC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}

	matched := make([]models.Listing, 0, len(listings))
	for i := range listings {
		if filters.IsListingAllowed(&listings[i]) {
			matched = append(matched, listings[i])
		}
	}
	return matched, nil
}

// ListListings returns every listing for the admin view, newest first
func (d *Database) ListListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Preload("Agent").
		Order("date IS NULL, date DESC, id DESC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	return listings, nil
}

func (d *Database) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	err := d.db.WithContext(ctx).
		Preload("Agent").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&listing, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

// UpdateListingDetails saves the admin enrichment fields. A nil agent id
// unassigns the agent.
func (d *Database) UpdateListingDetails(ctx context.Context, id uint, details models.ListingDetails) (*models.Listing, error) {
	result := d.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(map[string]interface{}{
		"description":  strings.TrimSpace(details.Description),
		"listing_link": strings.TrimSpace(details.ListingLink),
		"needs_help":   details.NeedsHelp,
		"agent_id":     details.AgentID,
	})
	if result.Error != nil {
		if isForeignKeyViolation(result.Error) {
			return nil, ErrUnknownAgent
		}
		return nil, fmt.Errorf("failed to update listing: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return d.GetListing(ctx, id)
}

// PropertyTypes returns the distinct non-empty property types on file
func (d *Database) PropertyTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := d.db.WithContext(ctx).Model(&models.Listing{}).
		Where("property_type IS NOT NULL AND property_type != ''").
		Distinct().
		Order("property_type ASC").
		Pluck("property_type", &types).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query property types: %w", err)
	}
	return types, nil
}

func (d *Database) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	db := d.db.WithContext(ctx)
	if err := db.Model(&models.Agent{}).Count(&stats.AgentCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count agents: %w", err)
	}
	if err := db.Model(&models.Listing{}).Count(&stats.ListingCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count listings: %w", err)
	}
	if err := db.Model(&models.ComparableSale{}).Count(&stats.SaleCount).Error; err != nil {
		return stats, fmt.Errorf("failed to count comparable sales: %w", err)
	}
	return stats, nil
}

// ImportListings matches each record to a listing by address, updating it in
// place or creating it, inside a single transaction. Records without an
// address are skipped.
func (d *Database) ImportListings(ctx context.Context, records []models.ListingRecord) (models.ImportResult, error) {
	result := models.ImportResult{Processed: len(records)}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result.Created, result.Skipped = 0, 0
		agents := make(map[string]*models.Agent)

		for _, record := range records {
			address := record.Address()
			if address == "" {
				result.Skipped++
				continue
			}

			agent, err := agentByInitials(tx, agents, record.AgentInitials())
			if err != nil {
				return err
			}

			var listing models.Listing
			err = tx.Where("address = ?", address).First(&listing).Error
			isNew := errors.Is(err, gorm.ErrRecordNotFound)
			if err != nil && !isNew {
				return fmt.Errorf("failed to look up listing %q: %w", address, err)
			}

			record.ApplyTo(&listing, agent)
			if err := tx.Omit("Agent", "Images").Save(&listing).Error; err != nil {
				return fmt.Errorf("failed to save listing %q: %w", address, err)
			}
			if isNew {
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return models.ImportResult{}, err
	}
	return result, nil
}

func agentByInitials(tx *gorm.DB, cache map[string]*models.Agent, initials string) (*models.Agent, error) {
	if initials == "" {
		return nil, nil
	}
	if agent, ok := cache[initials]; ok {
		return agent, nil
	}

	var agent models.Agent
	err := tx.Where("initials = ?", initials).First(&agent).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		cache[initials] = nil
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to look up agent %s: %w", initials, err)
	}
	cache[initials] = &agent
	return &agent, nil
}

func (d *Database) AddListingImage(ctx context.Context, listingID uint, filename string) (*models.ListingImage, error) {
	image := models.ListingImage{ListingID: listingID, Filename: filename}
	if err := d.db.WithContext(ctx).Create(&image).Error; err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save listing image: %w", err)
	}
	return &image, nil
}

func (d *Database) GetListingImage(ctx context.Context, listingID, imageID uint) (*models.ListingImage, error) {
	var image models.ListingImage
	err := d.db.WithContext(ctx).Where("id = ? AND listing_id = ?", imageID, listingID).First(&image).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &image, nil
}

func (d *Database) DeleteListingImage(ctx context.Context, image *models.ListingImage) error {
	if err := d.db.WithContext(ctx).Delete(image).Error; err != nil {
		return fmt.Errorf("failed to delete listing image: %w", err)
	}
	return nil
}

// ListingsMissingCoordinates returns listings that have never been geocoded
func (d *Database) ListingsMissingCoordinates(ctx context.Context, limit int) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("(latitude IS NULL OR longitude IS NULL) AND geocoding_attempted = ? AND address != ''", false).
		Order("id ASC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query listings to geocode: %w", err)
	}
	return listings, nil
}

// SetListingCoordinates marks a geocoding attempt. Nil coordinates record a
// failed lookup so the listing is not retried on every run.
func (d *Database) SetListingCoordinates(ctx context.Context, id uint, lat, lng *float64) error {
	err := d.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Updates(map[string]interface{}{
		"latitude":            lat,
		"longitude":           lng,
		"geocoding_attempted": true,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update coordinates: %w", err)
	}
	return nil
}

func (d *Database) GeocodedListings(ctx context.Context) ([]models.Listing, error) {
	var listings []models.Listing
	err := d.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("id ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query geocoded listings: %w", err)
	}
	return listings, nil
}
