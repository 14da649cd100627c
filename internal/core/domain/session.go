package domain

import "time"

// SelectionState is either Idle or Drawing{Start}.
type SelectionState struct {
	Drawing bool      `json:"drawing"`
	Start   *GeoPoint `json:"start,omitempty"`
}

// Mode returns "idle" or "drawing".
func (s SelectionState) Mode() string {
	if s.Drawing {
		return "drawing"
	}
	return "idle"
}

// SessionSnapshot is the read model of one demo session. Version increases
// with every state change, so of two snapshots the higher one is newer.
type SessionSnapshot struct {
	ID            string             `json:"id"`
	SelectionMode bool               `json:"selection_mode"`
	Selection     SelectionState     `json:"selection"`
	Region        *RegionDescriptor  `json:"region"`
	Status        OptimizationStatus `json:"status"`
	StatusLabel   string             `json:"status_label"`
	Result        *ResultDescriptor  `json:"result"`
	Version       uint64             `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
