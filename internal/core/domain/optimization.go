package domain

import "time"

// OptimizationStatus is the caller-visible state of a session's optimization.
type OptimizationStatus string

const (
	StatusPending  OptimizationStatus = "pending"
	StatusRunning  OptimizationStatus = "running"
	StatusComplete OptimizationStatus = "complete"
)

// Label is the human-readable status shown next to the results panel.
func (s OptimizationStatus) Label() string {
	switch s {
	case StatusRunning:
		return "Running QAOA..."
	case StatusComplete:
		return "Complete"
	default:
		return "Pending"
	}
}

// ResultDescriptor is the output of one optimization run.
type ResultDescriptor struct {
	RegionID        string    `json:"region_id"`
	MicrogridCount  int       `json:"microgrid_count"`
	UtilizationPct  float64   `json:"utilization_pct"`
	OutputMw        float64   `json:"output_mw"`
	Scorer          string    `json:"scorer"`
	SolarPlants     int       `json:"solar_plants"`
	PlantCapacityMw float64   `json:"plant_capacity_mw"`
	CompletedAt     time.Time `json:"completed_at"`
}

// RunRecord is a completed, applied run kept in the history store.
type RunRecord struct {
	RunID       string           `json:"run_id"`
	SessionID   string           `json:"session_id"`
	Region      RegionDescriptor `json:"region"`
	Result      ResultDescriptor `json:"result"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}
