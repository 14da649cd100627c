package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type cacheRule struct {
	prefix string
	exact  bool
	policy string
}

// Checked in order; first match wins.
var cacheRules = []cacheRule{
	{prefix: "/v1/health", exact: true, policy: "public, max-age=10"},
	{prefix: "/v1/ready", exact: true, policy: "public, max-age=10"},
	{prefix: "/metrics", exact: true, policy: "no-cache"},
	{prefix: "/graphql", exact: true, policy: "private, max-age=0"},
	{prefix: "/v1/sessions", policy: "no-store"},
	{prefix: "/v1/map/config", exact: true, policy: "public, max-age=3600"},
	{prefix: "/v1/plants", policy: "public, max-age=600"},
	{prefix: "/v1/estimate", policy: "public, max-age=3600"},
	{prefix: "/v1/runs", policy: "public, max-age=30"},
	{prefix: "/v1/", policy: "public, max-age=60"},
}

func cachePolicy(path string) string {
	for _, r := range cacheRules {
		if (r.exact && path == r.prefix) || (!r.exact && strings.HasPrefix(path, r.prefix)) {
			return r.policy
		}
	}
	return ""
}

// CachingMiddleware sets Cache-Control on GET responses by route unless the
// handler already set one. Session state changes on every event and is never
// cached; the plant catalog only changes on ingest.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}
		if policy := cachePolicy(c.Path()); policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}
