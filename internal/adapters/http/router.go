package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/qgrid/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

func bounded(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

// SetupRoutes registers the REST, GraphQL and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Gesture events arrive in bursts while a user drags, so the budget is
	// wider than a plain read API would need.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health checks skip the timeout wrapper.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/map/config", MapConfigHandler(deps))
	v1.Get("/plants", bounded(ListPlantsHandler(deps)))
	v1.Get("/estimate", EstimateHandler(deps))
	v1.Get("/runs", bounded(ListRunsHandler(deps)))
	v1.Get("/runs/:id", bounded(GetRunHandler(deps)))

	sessions := v1.Group("/sessions")
	sessions.Post("/", bounded(CreateSessionHandler(deps)))
	sessions.Get("/:id", bounded(GetSessionHandler(deps)))
	sessions.Delete("/:id", bounded(DeleteSessionHandler(deps)))
	sessions.Put("/:id/selection-mode", bounded(SelectionModeHandler(deps)))
	sessions.Post("/:id/gesture/start", bounded(GestureStartHandler(deps)))
	sessions.Post("/:id/gesture/end", bounded(GestureEndHandler(deps)))
	sessions.Post("/:id/clear", bounded(ClearSelectionHandler(deps)))
	sessions.Post("/:id/run", bounded(RunOptimizationHandler(deps)))
	sessions.Get("/:id/region.geojson", bounded(RegionGeoJSONHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if deps.NATS == nil {
			return errUnavailable(c, "event relay not configured")
		}
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
