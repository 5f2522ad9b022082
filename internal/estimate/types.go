package estimate

import "strings"

type PropertyType string

const (
	House PropertyType = "house"
	Unit  PropertyType = "unit"
)

// ParsePropertyType accepts "house" or "unit" in any case
func ParsePropertyType(value string) (PropertyType, bool) {
	switch PropertyType(strings.ToLower(strings.TrimSpace(value))) {
	case House:
		return House, true
	case Unit:
		return Unit, true
	}
	return "", false
}

type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Quality ratings use a 1-5 ordinal scale with 3 as "typical for the suburb"
const (
	MinQualityRating     = 1
	MaxQualityRating     = 5
	NeutralQualityRating = 3
)

// QualityAreas lists the rated areas in the order their adjustments apply
var QualityAreas = []string{"kitchen", "bathroom", "living", "exterior", "energy"}

// Request is the whole client-held appraisal state. The server keeps nothing
// between requests, so a multi-step form resubmits every field it has.
type Request struct {
	Address        string          `json:"address,omitempty"`
	Suburb         string          `json:"suburb"`
	PropertyType   string          `json:"propertyType"`
	Bedrooms       *int            `json:"bedrooms,omitempty"`
	LandSize       *float64        `json:"landSize,omitempty"`
	BuildingAge    *int            `json:"buildingAge,omitempty"`
	QualityRatings map[string]int  `json:"qualityRatings,omitempty"`
	Features       map[string]bool `json:"features,omitempty"`
}

type AdjustmentKind string

const (
	AdjustPercent AdjustmentKind = "percent"
	AdjustAmount  AdjustmentKind = "amount"
)

// Adjustment records one applied rule. Value is a percent or a dollar amount
// depending on Kind; Effect is the dollar change it made to the running value.
type Adjustment struct {
	Name   string         `json:"name"`
	Kind   AdjustmentKind `json:"kind"`
	Value  float64        `json:"value"`
	Effect int64          `json:"effect"`
}

type SuburbStats struct {
	MedianHousePrice int64 `json:"medianHousePrice"`
	MedianUnitPrice  int64 `json:"medianUnitPrice"`
	NumHouseSales12m int   `json:"numHouseSales12m"`
	NumUnitSales12m  int   `json:"numUnitSales12m"`
}

type Result struct {
	Suburb          string       `json:"suburb"`
	PropertyType    PropertyType `json:"propertyType"`
	BaselinePrice   int64        `json:"baselinePrice"`
	AdjustedPrice   int64        `json:"adjustedPrice"`
	Adjustments     []Adjustment `json:"adjustments"`
	EstimateLow     int64        `json:"estimateLow"`
	EstimateHigh    int64        `json:"estimateHigh"`
	Confidence      Confidence   `json:"confidence"`
	ComparableCount int          `json:"comparableCount"`
	SuburbStats     SuburbStats  `json:"suburbStats"`
}
