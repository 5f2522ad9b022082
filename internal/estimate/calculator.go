// Package estimate computes indicative price ranges from suburb comparables.
package estimate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"realestate/server/internal/models"
)

// Dataset is the read-only source of comparable sales. SuburbSales matches
// the suburb case-insensitively and returns every property type.
type Dataset interface {
	SuburbSales(ctx context.Context, suburb string) ([]models.ComparableSale, error)
}

type Calculator struct {
	dataset  Dataset
	settings Settings
	rules    []rule
	logger   *logrus.Logger
}

func NewCalculator(dataset Dataset, settings Settings, logger *logrus.Logger) (*Calculator, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid estimate settings: %w", err)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Calculator{
		dataset:  dataset,
		settings: settings,
		rules:    buildRules(settings),
		logger:   logger,
	}, nil
}

func (c *Calculator) Settings() Settings {
	return c.settings
}

// Estimate validates the request, reads the suburb's comparables and returns
// the adjusted range. The same request against an unchanged dataset always
// produces the same result.
func (c *Calculator) Estimate(ctx context.Context, req Request) (*Result, error) {
	req, propertyType, err := c.normalize(req)
	if err != nil {
		return nil, err
	}

	sales, err := c.dataset.SuburbSales(ctx, req.Suburb)
	if err != nil {
		return nil, fmt.Errorf("failed to load comparables for %s: %w", req.Suburb, err)
	}
	sortSales(sales)

	comps := salesOfType(sales, propertyType)
	if len(comps) == 0 {
		return nil, &NoComparablesError{Suburb: req.Suburb, PropertyType: propertyType}
	}

	baseline, _ := medianPrice(comps)
	adjusted, adjustments := applyRules(c.rules, newSubject(req, comps), baseline)

	confidence := ConfidenceFor(len(comps), c.settings)
	spread := c.settings.spreadPct(confidence) / 100
	step := c.settings.RoundTo

	result := &Result{
		Suburb:          comps[0].Suburb,
		PropertyType:    propertyType,
		BaselinePrice:   int64(math.Round(baseline)),
		AdjustedPrice:   int64(math.Round(adjusted)),
		Adjustments:     adjustments,
		EstimateLow:     int64(math.Floor(adjusted*(1-spread)/step) * step),
		EstimateHigh:    int64(math.Ceil(adjusted*(1+spread)/step) * step),
		Confidence:      confidence,
		ComparableCount: len(comps),
		SuburbStats:     ComputeSuburbStats(sales, c.settings.RecencyMonths),
	}

	c.logger.WithFields(logrus.Fields{
		"suburb":        result.Suburb,
		"property_type": propertyType,
		"comparables":   result.ComparableCount,
		"baseline":      result.BaselinePrice,
		"adjustments":   len(adjustments),
		"estimate_low":  result.EstimateLow,
		"estimate_high": result.EstimateHigh,
		"confidence":    confidence,
	}).Debug("Estimate computed")

	return result, nil
}

// normalize checks every field before any comparable is read and returns a
// copy with trimmed suburb and canonical rating and feature keys.
func (c *Calculator) normalize(req Request) (Request, PropertyType, error) {
	req.Suburb = strings.TrimSpace(req.Suburb)
	if req.Suburb == "" {
		return req, "", &InvalidInputError{Field: "suburb", Reason: "is required"}
	}

	propertyType, ok := ParsePropertyType(req.PropertyType)
	if !ok {
		return req, "", &InvalidInputError{
			Field:  "propertyType",
			Reason: fmt.Sprintf("must be %q or %q", House, Unit),
		}
	}

	if req.Bedrooms != nil && *req.Bedrooms < 0 {
		return req, "", &InvalidInputError{Field: "bedrooms", Reason: "must not be negative"}
	}
	if req.LandSize != nil && (*req.LandSize < 0 || math.IsNaN(*req.LandSize) || math.IsInf(*req.LandSize, 0)) {
		return req, "", &InvalidInputError{Field: "landSize", Reason: "must not be negative"}
	}
	if req.BuildingAge != nil && *req.BuildingAge < 0 {
		return req, "", &InvalidInputError{Field: "buildingAge", Reason: "must not be negative"}
	}

	ratings := make(map[string]int, len(req.QualityRatings))
	for _, key := range sortedKeys(req.QualityRatings) {
		area := strings.ToLower(strings.TrimSpace(key))
		field := "qualityRatings." + key
		if !knownArea(area) {
			return req, "", &InvalidInputError{Field: field, Reason: "unknown quality area"}
		}
		rating := req.QualityRatings[key]
		if rating < MinQualityRating || rating > MaxQualityRating {
			return req, "", &InvalidInputError{
				Field:  field,
				Reason: fmt.Sprintf("rating must be between %d and %d", MinQualityRating, MaxQualityRating),
			}
		}
		ratings[area] = rating
	}
	req.QualityRatings = ratings

	features := make(map[string]bool, len(req.Features))
	for _, key := range sortedKeys(req.Features) {
		name := normalizeFeature(key)
		if _, ok := c.settings.FeatureBonuses[name]; !ok {
			return req, "", &InvalidInputError{Field: "features." + key, Reason: "unknown feature"}
		}
		features[name] = features[name] || req.Features[key]
	}
	req.Features = features

	return req, propertyType, nil
}

func knownArea(area string) bool {
	for _, a := range QualityAreas {
		if a == area {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortSales fixes the order of a dataset read so ties and the canonical
// suburb spelling never depend on storage order.
func sortSales(sales []models.ComparableSale) {
	sort.SliceStable(sales, func(i, j int) bool {
		a, b := sales[i], sales[j]
		if !a.SaleDate.Equal(b.SaleDate) {
			return a.SaleDate.Before(b.SaleDate)
		}
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.ID < b.ID
	})
}
