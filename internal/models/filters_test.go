package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int {
	return &v
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"3", 3, true},
		{"3 + study", 3, true},
		{"Offers over $850,000", 850000, true},
		{"612.5m2", 612.5, true},
		{"Contact agent", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			value, ok := ExtractNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, value, 0.0001)
		})
	}
}

func TestExtractPriceRounds(t *testing.T) {
	price, ok := ExtractPrice("$749,999.60")
	assert.True(t, ok)
	assert.Equal(t, 750000, price)
}

func TestListingFilters_IsListingAllowed(t *testing.T) {
	listing := &Listing{Bed: "4", Bath: "2", Gar: "2", Price: "Offers over $850,000"}
	noPrice := &Listing{Bed: "3", Bath: "1", Gar: "", Price: "Auction"}

	tests := []struct {
		name     string
		filters  *ListingFilters
		listing  *Listing
		expected bool
	}{
		{
			name:     "Nil filters allow all",
			filters:  nil,
			listing:  listing,
			expected: true,
		},
		{
			name:     "Bedrooms minimum met",
			filters:  &ListingFilters{Bedrooms: intPtr(4)},
			listing:  listing,
			expected: true,
		},
		{
			name:     "Bedrooms minimum not met",
			filters:  &ListingFilters{Bedrooms: intPtr(5)},
			listing:  listing,
			expected: false,
		},
		{
			name:     "Garage filter requires a number",
			filters:  &ListingFilters{Garages: intPtr(0)},
			listing:  noPrice,
			expected: false,
		},
		{
			name:     "Price inside range",
			filters:  &ListingFilters{PriceMin: intPtr(800000), PriceMax: intPtr(900000)},
			listing:  listing,
			expected: true,
		},
		{
			name:     "Price above maximum",
			filters:  &ListingFilters{PriceMax: intPtr(849999)},
			listing:  listing,
			expected: false,
		},
		{
			name:     "Price filter rejects listing without price",
			filters:  &ListingFilters{PriceMin: intPtr(1)},
			listing:  noPrice,
			expected: false,
		},
		{
			name:     "Text-only filters are not checked here",
			filters:  &ListingFilters{Suburb: "Kaleen", NeedsHelp: true},
			listing:  noPrice,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.filters.IsListingAllowed(tt.listing))
		})
	}
}
