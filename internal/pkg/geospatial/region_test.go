package geospatial_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

func pt(lon, lat float64) domain.GeoPoint { return domain.GeoPoint{Lon: lon, Lat: lat} }

func TestNormalize_OrderIndependent(t *testing.T) {
	pairs := [][2]domain.GeoPoint{
		{pt(100, 13), pt(101, 14)},
		{pt(101, 13), pt(100, 14)},
		{pt(-2.93, 43.26), pt(-2.95, 43.25)},
		{pt(5, 5), pt(5, 5)},
		{pt(-179.5, -89), pt(179.5, 89)},
	}

	for _, p := range pairs {
		a := geospatial.Normalize(p[0], p[1])
		b := geospatial.Normalize(p[1], p[0])
		assert.Equal(t, a, b)
		assert.LessOrEqual(t, a.SouthWest.Lon, a.NorthEast.Lon)
		assert.LessOrEqual(t, a.SouthWest.Lat, a.NorthEast.Lat)
	}
}

func TestNormalize_SwapsComponentsIndependently(t *testing.T) {
	r := geospatial.Normalize(pt(101, 13), pt(100, 14))
	assert.Equal(t, pt(100, 13), r.SouthWest)
	assert.Equal(t, pt(101, 14), r.NorthEast)
}

func TestCenter(t *testing.T) {
	c := geospatial.Center(geospatial.Normalize(pt(100, 13), pt(101, 14)))
	assert.InDelta(t, 100.5, c.Lon, 1e-9)
	assert.InDelta(t, 13.5, c.Lat, 1e-9)
}

func TestAreaKm2_OneDegreeSquareNearBangkok(t *testing.T) {
	r := geospatial.Normalize(pt(100, 13), pt(101, 14))
	want := 111 * 111 * math.Cos(13.5*math.Pi/180)

	area := geospatial.AreaKm2(r)
	assert.InDelta(t, want, area, 1e-6)
	assert.InDelta(t, 11980.6, area, 0.5)
}

func TestAreaKm2_ZeroOnlyWhenDegenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.GeoPoint
		zero bool
	}{
		{"same point", pt(100.5, 13.7), pt(100.5, 13.7), true},
		{"vertical line", pt(100.5, 13), pt(100.5, 14), true},
		{"horizontal line", pt(100, 13.7), pt(101, 13.7), true},
		{"tiny box", pt(100.5, 13.7), pt(100.5001, 13.7001), false},
		{"southern hemisphere", pt(-47.9, -15.8), pt(-47.8, -15.7), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := geospatial.Normalize(tt.a, tt.b)
			area := geospatial.AreaKm2(r)
			assert.GreaterOrEqual(t, area, 0.0)
			assert.Equal(t, tt.zero, area == 0)
			assert.Equal(t, tt.zero, r.Degenerate())
		})
	}
}

func TestPopulationEstimate_Monotonic(t *testing.T) {
	prev := -1
	for area := 0.0; area <= 500; area += 0.37 {
		p := geospatial.PopulationEstimate(area, 140)
		assert.GreaterOrEqual(t, p, prev, "area %.2f", area)
		prev = p
	}
}

func TestPopulationEstimate_Rounds(t *testing.T) {
	assert.Equal(t, 1680, geospatial.PopulationEstimate(12.0, 140))
	assert.Equal(t, 0, geospatial.PopulationEstimate(0, 140))
	assert.Equal(t, 1, geospatial.PopulationEstimate(0.005, 100))
	assert.Equal(t, 0, geospatial.PopulationEstimate(0.004, 100))
}

func TestSphericalArea_CloseToFlatAtRegionalScale(t *testing.T) {
	r := geospatial.Normalize(pt(100, 13), pt(101, 14))
	flat := geospatial.AreaKm2(r)
	sphere := geospatial.SphericalAreaKm2(r)
	assert.InEpsilon(t, sphere, flat, 0.01)
}

func TestEstimator_Describe(t *testing.T) {
	e := geospatial.NewEstimator(0, 0)
	require.Equal(t, geospatial.DefaultPopulationDensity, e.PopulationDensity)

	d := e.Describe(pt(101, 14), pt(100, 13))
	assert.Equal(t, pt(100, 13), d.Region.SouthWest)
	assert.Equal(t, pt(100.5, 13.5), d.Center)
	assert.Equal(t, geospatial.PopulationEstimate(d.AreaKm2, 140), d.PopulationEstimate)
	assert.False(t, d.OutsideRegionalScale)
	assert.Empty(t, d.ID)
}

func TestEstimator_FlagsContinentalRegions(t *testing.T) {
	e := geospatial.NewEstimator(140, 500)
	d := e.Describe(pt(90, 0), pt(110, 25))
	assert.True(t, d.OutsideRegionalScale)
	assert.Greater(t, d.AreaKm2, 0.0)
}

func TestEstimator_DegenerateClick(t *testing.T) {
	d := geospatial.NewEstimator(140, 500).Describe(pt(100.5, 13.75), pt(100.5, 13.75))
	assert.Zero(t, d.AreaKm2)
	assert.Zero(t, d.PopulationEstimate)
	assert.Equal(t, pt(100.5, 13.75), d.Center)
}

func TestEstimator_LineSelectionHasNoArea(t *testing.T) {
	d := geospatial.NewEstimator(140, 500).Describe(pt(100, 13.5), pt(101, 13.5))
	require.True(t, d.Region.Degenerate())
	assert.Zero(t, d.AreaKm2)
	assert.Zero(t, d.SphericalAreaKm2)
	assert.Zero(t, d.PopulationEstimate)
	assert.False(t, d.OutsideRegionalScale)
	assert.Equal(t, pt(100.5, 13.5), d.Center)
}

func TestDistanceKm_OneDegreeLatitude(t *testing.T) {
	assert.InDelta(t, 111.195, geospatial.DistanceKm(pt(100, 13), pt(100, 14)), 0.05)
	assert.Zero(t, geospatial.DistanceKm(pt(100, 13), pt(100, 13)))
}

func TestRegionAround(t *testing.T) {
	center := pt(100.5018, 13.7563)
	r := geospatial.RegionAround(center, 5)
	assert.True(t, r.Contains(center))
	assert.InDelta(t, center.Lon, geospatial.Center(r).Lon, 1e-9)

	// A 5 km radius is a 10 km square under the flat approximation.
	assert.InDelta(t, 100.0, geospatial.AreaKm2(r), 1e-6)
}

func TestRegionAround_ClampsAtPole(t *testing.T) {
	r := geospatial.RegionAround(pt(0, 89.99), 50)
	assert.Equal(t, 90.0, r.NorthEast.Lat)
}

func TestValidPoint(t *testing.T) {
	assert.True(t, geospatial.ValidPoint(pt(100, 13)))
	assert.False(t, geospatial.ValidPoint(pt(181, 13)))
	assert.False(t, geospatial.ValidPoint(pt(100, -91)))
	assert.False(t, geospatial.ValidPoint(pt(math.NaN(), 0)))
	assert.False(t, geospatial.ValidPoint(pt(0, math.Inf(1))))
}

func TestRegionFeature(t *testing.T) {
	d := geospatial.NewEstimator(140, 500).Describe(pt(100, 13), pt(101, 14))
	d.ID = "r-1"

	data, err := json.Marshal(geospatial.RegionFeature(d))
	require.NoError(t, err)

	var out struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string        `json:"type"`
			Coordinates [][][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Feature", out.Type)
	assert.Equal(t, "r-1", out.ID)
	assert.Equal(t, "Polygon", out.Geometry.Type)
	require.Len(t, out.Geometry.Coordinates, 1)
	ring := out.Geometry.Coordinates[0]
	require.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[4])
	assert.InDelta(t, d.AreaKm2, out.Properties["area_km2"], 1e-6)
}
