package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/config"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

// Pinger is a dependency the readiness endpoint can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions  *usecases.SessionService
	Plants    *usecases.PlantService
	History   *usecases.HistoryService // nil when history.driver is none
	Estimator geospatial.Estimator
	Map       config.MapConfig
	NATS      *nats.Conn
	Pingers   map[string]Pinger // readiness checks by name
}
