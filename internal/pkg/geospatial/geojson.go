package geospatial

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// RegionFeature renders a region descriptor as a closed GeoJSON polygon
// for the selection overlay.
func RegionFeature(d domain.RegionDescriptor) *geojson.Feature {
	sw, ne := d.Region.SouthWest, d.Region.NorthEast
	ring := []geom.Coord{
		{sw.Lon, sw.Lat},
		{ne.Lon, sw.Lat},
		{ne.Lon, ne.Lat},
		{sw.Lon, ne.Lat},
		{sw.Lon, sw.Lat},
	}
	poly := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{ring})

	return &geojson.Feature{
		ID:       d.ID,
		BBox:     geom.NewBounds(geom.XY).Set(sw.Lon, sw.Lat, ne.Lon, ne.Lat),
		Geometry: poly,
		Properties: map[string]interface{}{
			"area_km2":               d.AreaKm2,
			"population_estimate":    d.PopulationEstimate,
			"center":                 []float64{d.Center.Lon, d.Center.Lat},
			"outside_regional_scale": d.OutsideRegionalScale,
		},
	}
}
