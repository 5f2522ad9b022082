package models

import "time"

// ComparableSale is a recorded transaction used as evidence for estimates.
// Rows are written by the comparables import and never updated.
type ComparableSale struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Address      string    `gorm:"size:255;not null;uniqueIndex:idx_sale_address_date" json:"address"`
	Suburb       string    `gorm:"size:100;not null;index" json:"suburb"`
	PropertyType string    `gorm:"size:20;not null" json:"property_type"`
	SaleDate     time.Time `gorm:"type:date;not null;uniqueIndex:idx_sale_address_date" json:"sale_date"`
	SalePrice    int       `gorm:"not null" json:"sale_price"`
	Bedrooms     *int      `json:"bedrooms"`
	Bathrooms    *int      `json:"bathrooms"`
	Parking      *int      `json:"parking"`
	LandSize     *float64  `json:"land_size"`
}

type DashboardStats struct {
	AgentCount   int64 `json:"agent_count"`
	ListingCount int64 `json:"listing_count"`
	SaleCount    int64 `json:"comparable_count"`
}

// ImportResult summarises a spreadsheet import
type ImportResult struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}
