package geospatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// KmPerDegree is the fixed degree-to-kilometre factor used by AreaKm2.
const KmPerDegree = 111.0

// Normalize orders two drag endpoints into southwest/northeast corners.
// Any two finite points are valid, including identical ones.
func Normalize(p1, p2 domain.GeoPoint) domain.BoundingRegion {
	return domain.BoundingRegion{
		SouthWest: domain.GeoPoint{Lon: math.Min(p1.Lon, p2.Lon), Lat: math.Min(p1.Lat, p2.Lat)},
		NorthEast: domain.GeoPoint{Lon: math.Max(p1.Lon, p2.Lon), Lat: math.Max(p1.Lat, p2.Lat)},
	}
}

// Center returns the arithmetic midpoint of the two corners.
func Center(r domain.BoundingRegion) domain.GeoPoint {
	return domain.GeoPoint{
		Lon: (r.SouthWest.Lon + r.NorthEast.Lon) / 2,
		Lat: (r.SouthWest.Lat + r.NorthEast.Lat) / 2,
	}
}

// AreaKm2 approximates the region's area with a flat-Earth projection:
// the latitude span at 111 km/degree times the longitude span at
// 111 km/degree scaled by cos(mean latitude).
//
// Only valid at regional scale (city to province, tens to low hundreds of km
// across). Use SphericalAreaKm2 or DiagonalKm to detect when it is not.
func AreaKm2(r domain.BoundingRegion) float64 {
	latSpan := (r.NorthEast.Lat - r.SouthWest.Lat) * KmPerDegree
	meanLat := (r.SouthWest.Lat + r.NorthEast.Lat) / 2
	lonSpan := (r.NorthEast.Lon - r.SouthWest.Lon) * KmPerDegree * math.Cos(toRad(meanLat))
	return math.Abs(latSpan * lonSpan)
}

// PopulationEstimate multiplies area by a density in people/km² and rounds.
func PopulationEstimate(areaKm2, densityPerKm2 float64) int {
	if areaKm2 <= 0 || densityPerKm2 <= 0 {
		return 0
	}
	return int(math.Round(areaKm2 * densityPerKm2))
}

// SphericalAreaKm2 returns the exact area of the lat/lng rectangle on a
// spherical Earth.
func SphericalAreaKm2(r domain.BoundingRegion) float64 {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(r.SouthWest.Lat, r.SouthWest.Lon))
	rect = rect.AddPoint(s2.LatLngFromDegrees(r.NorthEast.Lat, r.NorthEast.Lon))
	return rect.Area() * earthRadiusKm * earthRadiusKm
}

// DiagonalKm returns the great-circle distance between the two corners.
func DiagonalKm(r domain.BoundingRegion) float64 {
	return DistanceKm(r.SouthWest, r.NorthEast)
}

// RegionAround builds the region reaching radiusKm north, south, east and
// west of center, using the same KmPerDegree factor as AreaKm2. Latitudes are
// clamped to the poles.
func RegionAround(center domain.GeoPoint, radiusKm float64) domain.BoundingRegion {
	latDelta := radiusKm / KmPerDegree
	lonDelta := radiusKm / (KmPerDegree * math.Cos(toRad(center.Lat)))
	return Normalize(
		domain.GeoPoint{Lon: center.Lon - lonDelta, Lat: math.Max(-90, center.Lat-latDelta)},
		domain.GeoPoint{Lon: center.Lon + lonDelta, Lat: math.Min(90, center.Lat+latDelta)},
	)
}

// ValidPoint reports whether p is finite and within WGS 84 ranges.
func ValidPoint(p domain.GeoPoint) bool {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return false
	}
	return p.Lon >= -180 && p.Lon <= 180 && p.Lat >= -90 && p.Lat <= 90
}
