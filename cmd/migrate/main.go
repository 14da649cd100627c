package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/qgrid/internal/pkg/config"
)

// Applied in order. Each version is recorded in schema_migrations once.
var upFiles = []string{
	"migrations/001_init_extensions.sql",
	"migrations/002_core_tables.sql",
}

// The postgis extension is left installed on down.
var downStatements = []string{
	"DROP TABLE IF EXISTS optimization_runs",
	"DROP TABLE IF EXISTS solar_plants",
	"DROP TABLE IF EXISTS schema_migrations",
}

const createVersions = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("qgrid-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		if err := up(ctx, pool); err != nil {
			log.Fatal(err)
		}
	case "down":
		for _, stmt := range downStatements {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				log.Fatalf("exec %q: %v", stmt, err)
			}
			fmt.Printf("OK  %s\n", stmt)
		}
	case "status":
		applied, err := appliedVersions(ctx, pool)
		if err != nil {
			log.Fatal(err)
		}
		for _, f := range upFiles {
			mark := "pending"
			if applied[version(f)] {
				mark = "applied"
			}
			fmt.Printf("%-8s %s\n", mark, f)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

func version(file string) string {
	return filepath.Base(file)
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	if _, err := pool.Exec(ctx, createVersions); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// up applies each pending file in its own transaction together with its
// version row, so a failed file leaves nothing half-recorded.
func up(ctx context.Context, pool *pgxpool.Pool) error {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}

	for _, f := range upFiles {
		v := version(f)
		if applied[v] {
			fmt.Printf("--  %s (already applied)\n", f)
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", v)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
	return nil
}
