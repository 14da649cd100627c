package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	natsadapter "github.com/samirrijal/qgrid/internal/adapters/nats"
	"github.com/samirrijal/qgrid/internal/adapters/postgres"
	"github.com/samirrijal/qgrid/internal/adapters/sqlite"
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/config"
	"github.com/samirrijal/qgrid/internal/pkg/logging"
	"github.com/samirrijal/qgrid/internal/pkg/metrics"
)

// recorder consumes qgrid.runs.completed and writes each run to the history store.
func main() {
	cfg, err := config.Load("qgrid-recorder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runs ports.RunHistoryRepository
	switch cfg.History.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		runs = postgres.NewRunRepo(db)
	case "sqlite":
		repo, err := sqlite.Open(cfg.History.SQLitePath)
		if err != nil {
			log.Fatalf("history: %v", err)
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			log.Fatalf("history: %v", err)
		}
		runs = repo
	default:
		log.Fatalf("history.driver %q has nowhere to record runs", cfg.History.Driver)
	}
	history := usecases.NewHistoryService(runs)

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	// Metrics only; the recorder has no public API.
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.Handler())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := sub.SubscribeRunsCompleted(gctx, func(ctx context.Context, rec *domain.RunRecord) error {
			if err := history.Record(ctx, rec); err != nil {
				slog.Error("record run failed", "run_id", rec.RunID, "error", err)
				return err
			}
			slog.Info("run recorded", "run_id", rec.RunID, "session_id", rec.SessionID,
				"microgrids", rec.Result.MicrogridCount)
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("recorder metrics listening", "addr", addr, "history", cfg.History.Driver)
		return app.Listen(addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		slog.Error("recorder stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("recorder stopped")
}
