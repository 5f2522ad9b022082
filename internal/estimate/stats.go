package estimate

import (
	"math"
	"sort"
	"time"

	"realestate/server/internal/models"
)

func median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

func medianPrice(sales []models.ComparableSale) (float64, bool) {
	prices := make([]float64, 0, len(sales))
	for _, s := range sales {
		prices = append(prices, float64(s.SalePrice))
	}
	return median(prices)
}

func medianBedrooms(sales []models.ComparableSale) (float64, bool) {
	var values []float64
	for _, s := range sales {
		if s.Bedrooms != nil {
			values = append(values, float64(*s.Bedrooms))
		}
	}
	return median(values)
}

func medianLandSize(sales []models.ComparableSale) (float64, bool) {
	var values []float64
	for _, s := range sales {
		if s.LandSize != nil && *s.LandSize > 0 {
			values = append(values, *s.LandSize)
		}
	}
	return median(values)
}

func salesOfType(sales []models.ComparableSale, pt PropertyType) []models.ComparableSale {
	var matched []models.ComparableSale
	for _, s := range sales {
		if t, ok := ParsePropertyType(s.PropertyType); ok && t == pt {
			matched = append(matched, s)
		}
	}
	return matched
}

// ComputeSuburbStats derives the medians and trailing sales counts for one
// suburb. The window ends at the suburb's latest recorded sale so the figures
// depend only on the dataset, not on the wall clock.
func ComputeSuburbStats(sales []models.ComparableSale, recencyMonths int) SuburbStats {
	var stats SuburbStats
	if len(sales) == 0 {
		return stats
	}

	houses := salesOfType(sales, House)
	units := salesOfType(sales, Unit)
	if m, ok := medianPrice(houses); ok {
		stats.MedianHousePrice = int64(math.Round(m))
	}
	if m, ok := medianPrice(units); ok {
		stats.MedianUnitPrice = int64(math.Round(m))
	}

	var asOf time.Time
	for _, s := range sales {
		if s.SaleDate.After(asOf) {
			asOf = s.SaleDate
		}
	}
	windowStart := asOf.AddDate(0, -recencyMonths, 0)
	inWindow := func(s models.ComparableSale) bool {
		return s.SaleDate.After(windowStart) && !s.SaleDate.After(asOf)
	}
	for _, s := range houses {
		if inWindow(s) {
			stats.NumHouseSales12m++
		}
	}
	for _, s := range units {
		if inWindow(s) {
			stats.NumUnitSales12m++
		}
	}
	return stats
}

// ConfidenceFor maps a comparable count onto a confidence label. It never
// decreases as the count grows.
func ConfidenceFor(count int, s Settings) Confidence {
	switch {
	case count < s.LowConfidenceThreshold:
		return ConfidenceLow
	case count < s.HighConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}
