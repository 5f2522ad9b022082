package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Agent struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Initials string `gorm:"size:10;uniqueIndex;not null" json:"initials"`
	Name     string `gorm:"size:120;not null" json:"name"`
	Email    string `gorm:"size:120" json:"email"`
	Phone    string `gorm:"size:40" json:"phone"`
	Office   string `gorm:"size:40;not null" json:"office"`
}

type Listing struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Date          *time.Time `gorm:"type:date;index" json:"date"`
	Time          string     `gorm:"size:50" json:"time"`
	Address       string     `gorm:"size:255;not null;index" json:"address"`
	Development   string     `gorm:"size:255" json:"development"`
	Suburb        string     `gorm:"size:100;index" json:"suburb"`
	Seen          string     `gorm:"size:20" json:"seen"`
	Price         string     `gorm:"size:120" json:"price"`
	AgentInitials string     `gorm:"size:10" json:"agent_initials"`
	Office        string     `gorm:"size:40" json:"office"`
	Compliant     string     `gorm:"size:10" json:"compliant"`
	PropertyType  string     `gorm:"size:120" json:"property_type"`
	Bed           string     `gorm:"size:20" json:"bed"`
	Bath          string     `gorm:"size:20" json:"bath"`
	Gar           string     `gorm:"size:20" json:"gar"`
	Land          string     `gorm:"size:50" json:"land"`
	Access        string     `gorm:"size:50" json:"access"`
	SingleLevel   string     `gorm:"size:20" json:"single_level"`
	RZZoning      string     `gorm:"column:rz_zoning;size:50" json:"rz_zoning"`
	Auctioneer    string     `gorm:"size:120" json:"auctioneer"`
	Description   string     `gorm:"type:text" json:"description"`
	ListingLink   string     `gorm:"size:255" json:"listing_link"`
	NeedsHelp     bool       `gorm:"default:false;index" json:"needs_help"`

	AgentID *uint  `json:"agent_id"`
	Agent   *Agent `gorm:"constraint:OnDelete:RESTRICT" json:"agent,omitempty"`

	Images []ListingImage `gorm:"constraint:OnDelete:CASCADE" json:"images"`

	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	GeocodingAttempted bool     `gorm:"default:false" json:"-"`
}

type ListingImage struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Filename  string `gorm:"size:255;not null" json:"filename"`
	ListingID uint   `gorm:"not null;index" json:"listing_id"`
}

// ListingDetails holds the fields an admin can edit on a listing
type ListingDetails struct {
	Description string `json:"description"`
	ListingLink string `json:"listing_link"`
	NeedsHelp   bool   `json:"needs_help"`
	AgentID     *uint  `json:"agent_id"`
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ExtractNumber returns the first number found in a free-text field such as
// "3 + study" or "Offers over $850,000".
func ExtractNumber(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}
	match := numberPattern.FindString(strings.ReplaceAll(value, ",", ""))
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractPrice returns the first number in a price field rounded to whole dollars
func ExtractPrice(value string) (int, bool) {
	n, ok := ExtractNumber(value)
	if !ok {
		return 0, false
	}
	return int(n + 0.5), true
}
