package usecases

import (
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

// SelectionController tracks one drag gesture at a time.
//
// States are Idle and Drawing{start}. Idle -> Drawing happens only while the
// selection-mode flag is set; Drawing -> Idle on gesture end emits a region
// and clears the flag, so every further drag must be re-armed. It is not safe
// for concurrent use; the owning session serializes calls.
type SelectionController struct {
	estimator geospatial.Estimator
	armed     bool
	state     domain.SelectionState
}

// NewSelectionController creates an idle, un-armed controller.
func NewSelectionController(estimator geospatial.Estimator) *SelectionController {
	return &SelectionController{estimator: estimator}
}

// SetMode sets the selection-mode flag. It does not change the state.
func (c *SelectionController) SetMode(enabled bool) {
	c.armed = enabled
}

// Armed reports whether the next gesture start will begin a selection.
func (c *SelectionController) Armed() bool {
	return c.armed
}

// State returns a copy of the current state.
func (c *SelectionController) State() domain.SelectionState {
	s := c.state
	if s.Start != nil {
		start := *s.Start
		s.Start = &start
	}
	return s
}

// Begin records a gesture start. It returns false when selection mode is off.
// A start while already drawing replaces the previous start point.
func (c *SelectionController) Begin(p domain.GeoPoint) bool {
	if !c.armed {
		return false
	}
	c.state = domain.SelectionState{Drawing: true, Start: &p}
	return true
}

// End completes the gesture and returns the region it spans. It returns
// false, with no descriptor, when no gesture is in progress.
func (c *SelectionController) End(p domain.GeoPoint) (domain.RegionDescriptor, bool) {
	if !c.state.Drawing || c.state.Start == nil {
		return domain.RegionDescriptor{}, false
	}
	start := *c.state.Start
	c.state = domain.SelectionState{}
	c.armed = false
	return c.estimator.Describe(start, p), true
}

// Clear returns to Idle from any state, dropping any start point.
func (c *SelectionController) Clear() {
	c.state = domain.SelectionState{}
}

// Restore reinstates a previously persisted state.
func (c *SelectionController) Restore(armed bool, state domain.SelectionState) {
	c.armed = armed
	c.state = state
	if !state.Drawing {
		c.state.Start = nil
	}
}
