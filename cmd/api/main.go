package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/qgrid/internal/adapters/http"
	"github.com/samirrijal/qgrid/internal/adapters/memory"
	natsadapter "github.com/samirrijal/qgrid/internal/adapters/nats"
	"github.com/samirrijal/qgrid/internal/adapters/postgres"
	"github.com/samirrijal/qgrid/internal/adapters/sqlite"
	"github.com/samirrijal/qgrid/internal/adapters/temporal"
	"github.com/samirrijal/qgrid/internal/adapters/valkey"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/config"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
	"github.com/samirrijal/qgrid/internal/pkg/logging"
	"github.com/samirrijal/qgrid/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("qgrid-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	pingers := make(map[string]http.Pinger)

	// Database, only when something is stored in it
	var db *postgres.DB
	if cfg.Database.Enabled || cfg.History.Driver == "postgres" || cfg.Plants.Source == "postgres" {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		pingers["database"] = db
	}

	// Valkey backs the plant cache and the session store
	var (
		cache ports.CacheService
		store ports.SessionStore
	)
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, sessions are memory-only", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		store = valkey.NewSessionStore(vc, cfg.Session.StoreTTL)
		pingers["valkey"] = vc
	}

	// NATS: session events and the completed-runs stream
	var publisher ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
		natsConn = nil
	} else {
		defer natsConn.Close()
	}

	// Plant catalog
	var plants ports.PlantRepository
	switch cfg.Plants.Source {
	case "postgres":
		plants = postgres.NewPlantRepo(db)
	default:
		repo, err := memory.OpenPlantRepo(cfg.Plants.CSVPath)
		if err != nil {
			log.Fatalf("plants: %v", err)
		}
		plants = repo
	}

	// Run history
	var history *usecases.HistoryService
	switch cfg.History.Driver {
	case "postgres":
		history = usecases.NewHistoryService(postgres.NewRunRepo(db))
	case "sqlite":
		repo, err := sqlite.Open(cfg.History.SQLitePath)
		if err != nil {
			log.Fatalf("history: %v", err)
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("history: %v", err)
		}
		history = usecases.NewHistoryService(repo)
		pingers["history"] = repo
	}

	// Optimization
	scorer, err := usecases.NewScorer(cfg.Optimizer.Scorer, cfg.Optimizer.Seed,
		cfg.Optimizer.OutputMwPerKm2, cfg.Optimizer.JitterMw, cfg.Optimizer.HalfSaturationKm2)
	if err != nil {
		log.Fatalf("optimizer: %v", err)
	}
	pipeline := usecases.NewPipeline(cfg.Optimizer.GridDensityKm2, scorer, plants)

	var executor ports.RunExecutor = usecases.NewLocalExecutor(pipeline, cfg.Optimizer.RunDelay)
	if cfg.Optimizer.Executor == "temporal" {
		te, err := temporal.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
		if err != nil {
			log.Fatalf("temporal: %v", err)
		}
		defer te.Close()
		executor = te
	}

	estimator := geospatial.NewEstimator(cfg.Geometry.PopulationDensity, cfg.Geometry.MaxRegionalSpanKm)
	sessions := usecases.NewSessionService(estimator, executor, store, publisher, usecases.SessionOptions{
		ClearDefault: cfg.Selection.ClearDefault.Region(),
		RunTimeout:   cfg.Optimizer.RunTimeout,
	})

	go sweepSessions(ctx, sessions, cfg.Session.IdleTTL, cfg.Session.SweepInterval)

	deps := &http.Dependencies{
		Sessions:  sessions,
		Plants:    usecases.NewPlantService(plants, cache),
		History:   history,
		Estimator: estimator,
		Map:       cfg.Map,
		NATS:      natsConn,
		Pingers:   pingers,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "qgrid API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr,
			"executor", cfg.Optimizer.Executor, "scorer", scorer.Name(), "history", cfg.History.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Let in-flight runs finish so their results are published.
	runsDone := make(chan struct{})
	go func() {
		sessions.Wait()
		close(runsDone)
	}()
	select {
	case <-runsDone:
	case <-shutdownCtx.Done():
		slog.Warn("optimization runs still in flight at shutdown")
	}

	slog.Info("server stopped")
}

func sweepSessions(ctx context.Context, sessions *usecases.SessionService, idleTTL, interval time.Duration) {
	if idleTTL <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(time.Now().Add(-idleTTL)); n > 0 {
				slog.Info("swept idle sessions", "count", n, "remaining", sessions.Count())
			}
		}
	}
}
