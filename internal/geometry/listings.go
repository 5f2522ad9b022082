package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"realestate/server/internal/models"
)

// ListingFeatures builds a GeoJSON point feature per geocoded listing.
// Listings without coordinates are skipped. When suburbHulls is set, a
// convex hull polygon is added for every suburb with at least three points.
func ListingFeatures(listings []models.Listing, suburbHulls bool) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	bound := orb.Bound{}
	first := true
	bySuburb := make(map[string][]orb.Point)

	for _, listing := range listings {
		if listing.Latitude == nil || listing.Longitude == nil {
			continue
		}
		point := orb.Point{*listing.Longitude, *listing.Latitude}

		feature := geojson.NewFeature(point)
		feature.ID = listing.ID
		feature.Properties = geojson.Properties{
			"id":            listing.ID,
			"address":       listing.Address,
			"suburb":        listing.Suburb,
			"price":         listing.Price,
			"property_type": listing.PropertyType,
			"office":        listing.Office,
			"needs_help":    listing.NeedsHelp,
			"geometry_type": "listing",
		}
		fc.Append(feature)

		if first {
			bound = point.Bound()
			first = false
		} else {
			bound = bound.Extend(point)
		}
		if listing.Suburb != "" {
			bySuburb[listing.Suburb] = append(bySuburb[listing.Suburb], point)
		}
	}

	if suburbHulls {
		suburbs := make([]string, 0, len(bySuburb))
		for suburb := range bySuburb {
			suburbs = append(suburbs, suburb)
		}
		sort.Strings(suburbs)

		for _, suburb := range suburbs {
			hull := ConvexHull(bySuburb[suburb])
			if hull == nil {
				continue
			}
			feature := geojson.NewFeature(orb.Polygon{hull})
			feature.Properties = geojson.Properties{
				"suburb":        suburb,
				"point_count":   len(bySuburb[suburb]),
				"geometry_type": "hull",
				"hull_type":     "convex",
			}
			fc.Append(feature)
		}
	}

	if !first {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc
}

// ConvexHull returns the closed counter-clockwise hull of the points, or nil
// when they do not span an area.
func ConvexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	// Andrew's monotone chain
	hull := make([]orb.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Closed ring of at least a triangle
	if len(hull) < 4 {
		return nil
	}
	return orb.Ring(hull)
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
