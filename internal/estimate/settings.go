package estimate

import (
	"errors"
	"fmt"
)

// Settings holds every magnitude the calculator uses. The defaults are
// placeholders to be tuned per office, not measured market behaviour.
type Settings struct {
	// Comparable counts at which confidence steps up to Medium and High
	LowConfidenceThreshold  int `env:"ESTIMATE_LOW_CONFIDENCE" envDefault:"3"`
	HighConfidenceThreshold int `env:"ESTIMATE_HIGH_CONFIDENCE" envDefault:"8"`

	// Half-width of the estimate range, in percent, per confidence level
	LowSpreadPct    float64 `env:"ESTIMATE_LOW_SPREAD_PCT" envDefault:"15"`
	MediumSpreadPct float64 `env:"ESTIMATE_MEDIUM_SPREAD_PCT" envDefault:"10"`
	HighSpreadPct   float64 `env:"ESTIMATE_HIGH_SPREAD_PCT" envDefault:"5"`

	// Percent per bedroom above or below the comparables' median
	BedroomPct float64 `env:"ESTIMATE_BEDROOM_PCT" envDefault:"5"`

	// Percent per 100 m² of land above or below the median, capped both ways
	LandPctPer100Sqm float64 `env:"ESTIMATE_LAND_PCT_PER_100SQM" envDefault:"1"`
	LandCapPct       float64 `env:"ESTIMATE_LAND_CAP_PCT" envDefault:"10"`

	// Percent per rating point away from the neutral rating
	QualityPctPerPoint float64 `env:"ESTIMATE_QUALITY_PCT" envDefault:"2"`

	// Fixed dollar bonus per feature flag
	FeatureBonuses map[string]float64 `env:"ESTIMATE_FEATURE_BONUSES" envSeparator:"," envKeyValSeparator:":" envDefault:"pool:20000,solar:8000,tennis_court:15000"`

	// Trailing window for the suburb sales counts
	RecencyMonths int `env:"ESTIMATE_RECENCY_MONTHS" envDefault:"12"`

	// Range bounds are rounded outward to a multiple of this many dollars
	RoundTo float64 `env:"ESTIMATE_ROUND_TO" envDefault:"1000"`
}

// DefaultSettings mirrors the env defaults
func DefaultSettings() Settings {
	return Settings{
		LowConfidenceThreshold:  3,
		HighConfidenceThreshold: 8,
		LowSpreadPct:            15,
		MediumSpreadPct:         10,
		HighSpreadPct:           5,
		BedroomPct:              5,
		LandPctPer100Sqm:        1,
		LandCapPct:              10,
		QualityPctPerPoint:      2,
		FeatureBonuses: map[string]float64{
			"pool":         20000,
			"solar":        8000,
			"tennis_court": 15000,
		},
		RecencyMonths: 12,
		RoundTo:       1000,
	}
}

func (s Settings) Validate() error {
	if s.LowConfidenceThreshold < 1 {
		return errors.New("low confidence threshold must be at least 1")
	}
	if s.HighConfidenceThreshold < s.LowConfidenceThreshold {
		return fmt.Errorf("high confidence threshold %d is below low threshold %d",
			s.HighConfidenceThreshold, s.LowConfidenceThreshold)
	}
	for name, pct := range map[string]float64{
		"low":    s.LowSpreadPct,
		"medium": s.MediumSpreadPct,
		"high":   s.HighSpreadPct,
	} {
		if pct < 0 || pct >= 100 {
			return fmt.Errorf("%s confidence spread must be in [0, 100), got %v", name, pct)
		}
	}
	if s.LowSpreadPct < s.MediumSpreadPct || s.MediumSpreadPct < s.HighSpreadPct {
		return fmt.Errorf("confidence spreads must narrow as confidence rises, got low %v, medium %v, high %v",
			s.LowSpreadPct, s.MediumSpreadPct, s.HighSpreadPct)
	}
	if s.LandCapPct < 0 {
		return errors.New("land adjustment cap must not be negative")
	}
	for name, bonus := range s.FeatureBonuses {
		if normalizeFeature(name) != name {
			return fmt.Errorf("feature name %q must be lower-case with underscores", name)
		}
		if bonus < 0 {
			return fmt.Errorf("feature %q has a negative bonus", name)
		}
	}
	if s.RecencyMonths < 1 {
		return errors.New("recency window must be at least one month")
	}
	if s.RoundTo < 1 {
		return errors.New("rounding step must be at least one dollar")
	}
	return nil
}

func (s Settings) spreadPct(c Confidence) float64 {
	switch c {
	case ConfidenceHigh:
		return s.HighSpreadPct
	case ConfidenceMedium:
		return s.MediumSpreadPct
	default:
		return s.LowSpreadPct
	}
}
