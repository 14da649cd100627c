package domain

import "time"

// SolarPlant is a solar power plant from the regional catalog.
type SolarPlant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   GeoPoint  `json:"location"`
	CapacityMw float64   `json:"capacity_mw"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// PlantSummary aggregates the plants that fall inside a region.
type PlantSummary struct {
	Count      int     `json:"count"`
	CapacityMw float64 `json:"capacity_mw"`
}
