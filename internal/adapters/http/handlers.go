package http

import (
	"math"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

// MapConfigResponse is the viewport and credential the page initializes its map with.
type MapConfigResponse struct {
	Style       string          `json:"style"`
	Center      domain.GeoPoint `json:"center"`
	Zoom        float64         `json:"zoom"`
	AccessToken string          `json:"access_token"`
}

// MapConfigHandler serves the map defaults.
func MapConfigHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(MapConfigResponse{
			Style:       deps.Map.Style,
			Center:      domain.GeoPoint{Lon: deps.Map.CenterLon, Lat: deps.Map.CenterLat},
			Zoom:        deps.Map.Zoom,
			AccessToken: deps.Map.AccessToken,
		})
	}
}

// ListPlantsHandler returns the solar plant catalog, optionally limited to a
// bounding box given as sw_lon, sw_lat, ne_lon, ne_lat.
func ListPlantsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			plants []domain.SolarPlant
			err    error
		)
		if c.Query("sw_lon") != "" || c.Query("ne_lon") != "" {
			sw := domain.GeoPoint{Lon: c.QueryFloat("sw_lon", math.NaN()), Lat: c.QueryFloat("sw_lat", math.NaN())}
			ne := domain.GeoPoint{Lon: c.QueryFloat("ne_lon", math.NaN()), Lat: c.QueryFloat("ne_lat", math.NaN())}
			if !geospatial.ValidPoint(sw) || !geospatial.ValidPoint(ne) {
				return errBadRequest(c, "sw_lon, sw_lat, ne_lon and ne_lat must all be valid coordinates")
			}
			plants, err = deps.Plants.FindInRegion(c.UserContext(), geospatial.Normalize(sw, ne))
		} else {
			plants, err = deps.Plants.List(c.UserContext())
		}
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := pageParams(c, 100, 200)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(plants)}
		return sendPage(c, pageOf(plants, offset, limit), pg)
	}
}

// EstimateHandler describes the region spanned by two points without
// touching any session.
func EstimateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p1 := domain.GeoPoint{Lon: c.QueryFloat("lon1", math.NaN()), Lat: c.QueryFloat("lat1", math.NaN())}
		p2 := domain.GeoPoint{Lon: c.QueryFloat("lon2", math.NaN()), Lat: c.QueryFloat("lat2", math.NaN())}
		if !geospatial.ValidPoint(p1) || !geospatial.ValidPoint(p2) {
			return errBadRequest(c, "lon1, lat1, lon2 and lat2 are required and must be valid coordinates")
		}
		return c.JSON(deps.Estimator.Describe(p1, p2))
	}
}

// ListRunsHandler returns completed runs, newest first.
func ListRunsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.History == nil {
			return errUnavailable(c, "run history is disabled")
		}
		offset, limit := pageParams(c, 20, 100)
		runs, total, err := deps.History.List(c.UserContext(), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if runs == nil {
			runs = []domain.RunRecord{}
		}

		return sendPage(c, runs, Pagination{Offset: offset, Limit: limit, Total: total})
	}
}

// GetRunHandler returns one completed run.
func GetRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.History == nil {
			return errUnavailable(c, "run history is disabled")
		}
		run, err := deps.History.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(run)
	}
}
