package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/qgrid/internal/adapters/memory"
	"github.com/samirrijal/qgrid/internal/adapters/postgres"
	"github.com/samirrijal/qgrid/internal/adapters/valkey"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/config"
	"github.com/samirrijal/qgrid/internal/pkg/logging"
	"github.com/samirrijal/qgrid/internal/workflows"
)

func main() {
	cfg, err := config.Load("qgrid-optimizer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	var plants ports.PlantRepository
	if cfg.Plants.Source == "postgres" {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		plants = postgres.NewPlantRepo(db)
	} else {
		repo, err := memory.OpenPlantRepo(cfg.Plants.CSVPath)
		if err != nil {
			log.Fatalf("plants: %v", err)
		}
		plants = repo
	}

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, plant lookups uncached", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	scorer, err := usecases.NewScorer(cfg.Optimizer.Scorer, cfg.Optimizer.Seed,
		cfg.Optimizer.OutputMwPerKm2, cfg.Optimizer.JitterMw, cfg.Optimizer.HalfSaturationKm2)
	if err != nil {
		log.Fatalf("optimizer: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.OptimizationWorkflow)
	w.RegisterActivity(&workflows.OptimizationActivities{
		// Plant enrichment runs as its own activity, so the pipeline gets no repo.
		Pipeline: usecases.NewPipeline(cfg.Optimizer.GridDensityKm2, scorer, nil),
		Plants:   usecases.NewPlantService(plants, cache),
	})

	slog.Info("optimizer worker started", "task_queue", cfg.Temporal.TaskQueue, "scorer", scorer.Name())
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
