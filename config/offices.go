package config

import "strings"

// Offices lists the network's offices in display order. The first entry is
// the default office for new agents.
var Offices = []string{
	"Kippax",
	"Kaleen",
	"Canberra City",
	"Gungahlin",
	"Tuggeranong",
	"Dickson",
	"Woden/Weston",
	"Country",
	"Projects",
}

// DefaultOffice returns the office assigned when none is given
func DefaultOffice() string {
	return Offices[0]
}

// GetOfficeByName returns the canonical office name, matching case-insensitively
func GetOfficeByName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, office := range Offices {
		if strings.EqualFold(office, name) {
			return office, true
		}
	}
	return "", false
}
