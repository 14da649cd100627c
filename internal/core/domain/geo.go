package domain

import "time"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// BoundingRegion is an axis-aligned rectangle in lon/lat space.
// SouthWest is componentwise <= NorthEast; build it with geospatial.Normalize.
type BoundingRegion struct {
	SouthWest GeoPoint `json:"southwest"`
	NorthEast GeoPoint `json:"northeast"`
}

// Degenerate reports whether the region has no extent in either axis.
func (r BoundingRegion) Degenerate() bool {
	return r.SouthWest.Lon == r.NorthEast.Lon || r.SouthWest.Lat == r.NorthEast.Lat
}

// Contains reports whether p lies inside the region (edges included).
func (r BoundingRegion) Contains(p GeoPoint) bool {
	return p.Lon >= r.SouthWest.Lon && p.Lon <= r.NorthEast.Lon &&
		p.Lat >= r.SouthWest.Lat && p.Lat <= r.NorthEast.Lat
}

// RegionDescriptor is the finalized output of a completed drag gesture.
// It is never mutated; a new selection replaces it.
type RegionDescriptor struct {
	ID                   string         `json:"id,omitempty"`
	Region               BoundingRegion `json:"region"`
	Center               GeoPoint       `json:"center"`
	AreaKm2              float64        `json:"area_km2"`
	PopulationEstimate   int            `json:"population_estimate"`
	SphericalAreaKm2     float64        `json:"spherical_area_km2"`
	OutsideRegionalScale bool           `json:"outside_regional_scale"`
	SelectedAt           time.Time      `json:"selected_at,omitempty"`
}
