package models

import (
	"strings"
	"time"
)

// ListingRecord is one spreadsheet row keyed by lower-cased column name
type ListingRecord map[string]string

var recordDateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// ParseDate accepts ISO dates and the day-first layouts used by the offices
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func (r ListingRecord) Address() string {
	return strings.TrimSpace(r["address"])
}

func (r ListingRecord) AgentInitials() string {
	return strings.ToUpper(strings.TrimSpace(r["agent"]))
}

// ApplyTo copies the record onto a listing. Admin-entered enrichment
// (description, link, needs-help flag, images) is left untouched.
func (r ListingRecord) ApplyTo(listing *Listing, agent *Agent) {
	listing.AgentInitials = r.AgentInitials()
	listing.Agent = agent
	if agent != nil {
		listing.AgentID = &agent.ID
	} else {
		listing.AgentID = nil
	}

	listing.Date = ParseDate(r["date"])
	listing.Time = r["time"]
	if address := r.Address(); address != "" {
		listing.Address = address
	}
	listing.Development = r["development"]
	listing.Suburb = r["suburb"]
	listing.Seen = r["seen"]
	listing.Price = r["price"]
	listing.Office = r["office"]
	listing.Compliant = r["com"]
	listing.PropertyType = r["type"]
	listing.Bed = r["bed"]
	listing.Bath = r["bath"]
	listing.Gar = r["gar"]
	listing.Land = r["land"]
	listing.Access = r["access"]
	listing.SingleLevel = r["single level"]
	listing.RZZoning = r["rz zoning"]
	listing.Auctioneer = r["auctioneer"]
}
