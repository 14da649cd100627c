package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

type selectionModeRequest struct {
	Enabled *bool `json:"enabled"`
}

type pointRequest struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

func parsePoint(c *fiber.Ctx) (domain.GeoPoint, bool) {
	var req pointRequest
	if err := c.BodyParser(&req); err != nil || req.Lon == nil || req.Lat == nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lon: *req.Lon, Lat: *req.Lat}
	return p, geospatial.ValidPoint(p)
}

// CreateSessionHandler starts a new session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + snap.ID)
		return c.Status(fiber.StatusCreated).JSON(snap)
	}
}

// GetSessionHandler returns a session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// DeleteSessionHandler ends a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SelectionModeHandler arms or disarms the next drag gesture.
func SelectionModeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req selectionModeRequest
		if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
			return errBadRequest(c, `body must be {"enabled": true|false}`)
		}
		snap, err := deps.Sessions.SetSelectionMode(c.UserContext(), c.Params("id"), *req.Enabled)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// GestureStartHandler forwards a pointer-down at a map coordinate.
func GestureStartHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := parsePoint(c)
		if !ok {
			return errFromDomain(c, domain.ErrInvalidPoint)
		}
		snap, err := deps.Sessions.BeginGesture(c.UserContext(), c.Params("id"), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// GestureEndHandler forwards a pointer-up at a map coordinate.
func GestureEndHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := parsePoint(c)
		if !ok {
			return errFromDomain(c, domain.ErrInvalidPoint)
		}
		snap, err := deps.Sessions.EndGesture(c.UserContext(), c.Params("id"), p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// ClearSelectionHandler resets the selection.
func ClearSelectionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Clear(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(snap)
	}
}

// RunOptimizationHandler starts a run and returns 202 with the Running snapshot.
func RunOptimizationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Run(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(snap)
	}
}

// RegionGeoJSONHandler returns the current region as a GeoJSON feature for
// the page's selection overlay.
func RegionGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if snap.Region == nil {
			return errNotFound(c, "no region selected")
		}
		data, err := geospatial.RegionFeature(*snap.Region).MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}
