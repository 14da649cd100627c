package geospatial

import "github.com/samirrijal/qgrid/internal/core/domain"

// Defaults for Estimator.
const (
	DefaultPopulationDensity = 140.0 // people per km², Thailand national average
	DefaultMaxRegionalSpanKm = 500.0
)

// Estimator turns two drag endpoints into a RegionDescriptor.
type Estimator struct {
	PopulationDensity float64 // people per km²
	MaxRegionalSpanKm float64 // diagonal beyond which AreaKm2 is flagged
}

// NewEstimator returns an Estimator, substituting defaults for non-positive values.
func NewEstimator(density, maxSpanKm float64) Estimator {
	if density <= 0 {
		density = DefaultPopulationDensity
	}
	if maxSpanKm <= 0 {
		maxSpanKm = DefaultMaxRegionalSpanKm
	}
	return Estimator{PopulationDensity: density, MaxRegionalSpanKm: maxSpanKm}
}

// Describe derives center, area and population for the region spanned by p1 and p2.
// The returned descriptor has no ID; the caller assigns one.
func (e Estimator) Describe(p1, p2 domain.GeoPoint) domain.RegionDescriptor {
	return e.DescribeRegion(Normalize(p1, p2))
}

// DescribeRegion derives the descriptor for an already normalized region.
// A region with no extent (a click without a drag) has zero area and
// population; it is still a valid selection.
func (e Estimator) DescribeRegion(r domain.BoundingRegion) domain.RegionDescriptor {
	d := domain.RegionDescriptor{
		Region: r,
		Center: Center(r),
	}
	if r.Degenerate() {
		return d
	}
	d.AreaKm2 = AreaKm2(r)
	d.PopulationEstimate = PopulationEstimate(d.AreaKm2, e.PopulationDensity)
	d.SphericalAreaKm2 = SphericalAreaKm2(r)
	d.OutsideRegionalScale = DiagonalKm(r) > e.MaxRegionalSpanKm
	return d
}
