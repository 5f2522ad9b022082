package models

// ListingFilters holds the search criteria for the public listings view.
// Text filters are applied in SQL; numeric filters are matched here because
// bed, bath, gar and price are free text in the source spreadsheets.
type ListingFilters struct {
	NeedsHelp    bool   `json:"needs_help"`
	Suburb       string `json:"suburb"`
	PropertyType string `json:"property_type"`
	Office       string `json:"office"`
	Bedrooms     *int   `json:"bedrooms"`
	Bathrooms    *int   `json:"bathrooms"`
	Garages      *int   `json:"garages"`
	PriceMin     *int   `json:"price_min"`
	PriceMax     *int   `json:"price_max"`
}

// IsListingAllowed checks if a listing matches the numeric filter criteria
func (f *ListingFilters) IsListingAllowed(listing *Listing) bool {
	if f == nil {
		return true
	}

	if !atLeast(listing.Bed, f.Bedrooms) {
		return false
	}
	if !atLeast(listing.Bath, f.Bathrooms) {
		return false
	}
	if !atLeast(listing.Gar, f.Garages) {
		return false
	}

	if f.PriceMin == nil && f.PriceMax == nil {
		return true
	}
	price, ok := ExtractPrice(listing.Price)
	if !ok {
		return false // Filter requires a price but the listing has none
	}
	if f.PriceMin != nil && price < *f.PriceMin {
		return false
	}
	if f.PriceMax != nil && price > *f.PriceMax {
		return false
	}

	return true
}

func atLeast(field string, min *int) bool {
	if min == nil {
		return true
	}
	value, ok := ExtractNumber(field)
	return ok && value >= float64(*min)
}
