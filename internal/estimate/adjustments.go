package estimate

import (
	"math"
	"sort"
	"strings"

	"realestate/server/internal/models"
)

// subject is what every rule sees: the request plus the comparable medians
type subject struct {
	req            Request
	medianBedrooms float64
	hasBedrooms    bool
	medianLand     float64
	hasLand        bool
}

func newSubject(req Request, comps []models.ComparableSale) subject {
	s := subject{req: req}
	s.medianBedrooms, s.hasBedrooms = medianBedrooms(comps)
	s.medianLand, s.hasLand = medianLandSize(comps)
	return s
}

// rule is one (predicate, effect) pair. effect returns a percent for
// AdjustPercent rules and a dollar amount for AdjustAmount rules.
type rule struct {
	name    string
	kind    AdjustmentKind
	applies func(subject) bool
	effect  func(subject) float64
}

// buildRules returns the adjustment table in application order: bedrooms,
// land size, each quality area, then each feature by name.
func buildRules(s Settings) []rule {
	rules := []rule{
		{
			name: "bedrooms",
			kind: AdjustPercent,
			applies: func(sub subject) bool {
				return sub.req.Bedrooms != nil && sub.hasBedrooms &&
					float64(*sub.req.Bedrooms) != sub.medianBedrooms
			},
			effect: func(sub subject) float64 {
				return (float64(*sub.req.Bedrooms) - sub.medianBedrooms) * s.BedroomPct
			},
		},
		{
			name: "land_size",
			kind: AdjustPercent,
			applies: func(sub subject) bool {
				return sub.req.LandSize != nil && sub.hasLand && *sub.req.LandSize != sub.medianLand
			},
			effect: func(sub subject) float64 {
				pct := (*sub.req.LandSize - sub.medianLand) / 100 * s.LandPctPer100Sqm
				return math.Max(-s.LandCapPct, math.Min(s.LandCapPct, pct))
			},
		},
	}

	for _, area := range QualityAreas {
		area := area
		rules = append(rules, rule{
			name: "quality." + area,
			kind: AdjustPercent,
			applies: func(sub subject) bool {
				rating, ok := sub.req.QualityRatings[area]
				return ok && rating != NeutralQualityRating
			},
			effect: func(sub subject) float64 {
				return float64(sub.req.QualityRatings[area]-NeutralQualityRating) * s.QualityPctPerPoint
			},
		})
	}

	features := make([]string, 0, len(s.FeatureBonuses))
	for name := range s.FeatureBonuses {
		features = append(features, name)
	}
	sort.Strings(features)
	for _, name := range features {
		name := name
		bonus := s.FeatureBonuses[name]
		rules = append(rules, rule{
			name: "feature." + name,
			kind: AdjustAmount,
			applies: func(sub subject) bool {
				return featureSet(sub.req.Features, name)
			},
			effect: func(subject) float64 {
				return bonus
			},
		})
	}

	return rules
}

// applyRules runs the table against a baseline. The running value is
// floored at zero so a stack of negative adjustments cannot go below it.
func applyRules(rules []rule, sub subject, baseline float64) (float64, []Adjustment) {
	value := baseline
	applied := make([]Adjustment, 0, len(rules))
	for _, r := range rules {
		if !r.applies(sub) {
			continue
		}
		amount := r.effect(sub)
		next := value
		switch r.kind {
		case AdjustPercent:
			next = value * (1 + amount/100)
		case AdjustAmount:
			next = value + amount
		}
		next = math.Max(0, next)
		applied = append(applied, Adjustment{
			Name:   r.name,
			Kind:   r.kind,
			Value:  amount,
			Effect: int64(math.Round(next - value)),
		})
		value = next
	}
	return value, applied
}

func normalizeFeature(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func featureSet(features map[string]bool, name string) bool {
	for key, on := range features {
		if on && normalizeFeature(key) == name {
			return true
		}
	}
	return false
}
