package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/qgrid/internal/adapters/memory"
	"github.com/samirrijal/qgrid/internal/adapters/postgres"
	"github.com/samirrijal/qgrid/internal/adapters/valkey"
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/config"
)

const batchSize = 500

// ingestor loads solar plant catalogs into PostgreSQL.
//
//	ingestor                      bundled central-Thailand catalog
//	ingestor a.csv https://x/b.csv  files or URLs, merged by plant ID
func main() {
	cfg, err := config.Load("qgrid-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Invalidate the API's cached catalog after import.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		log.Printf("valkey unavailable, cached catalogs expire on their own: %v", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	svc := usecases.NewPlantService(postgres.NewPlantRepo(db), cache)

	sources := os.Args[1:]
	if len(sources) == 0 {
		sources = []string{""}
	}

	client := &http.Client{Timeout: 60 * time.Second}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		merged = make(map[string]domain.SolarPlant)
		failed int
	)
	sem := make(chan struct{}, 4)

	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			plants, err := load(ctx, client, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("ERROR [%s]: %v", label(src), err)
				failed++
				return
			}
			for _, p := range plants {
				merged[p.ID] = p
			}
			log.Printf("[%s] %d plants", label(src), len(plants))
		}(src)
	}
	wg.Wait()

	batch := make([]domain.SolarPlant, 0, batchSize)
	total := 0
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.Import(ctx, batch); err != nil {
			log.Fatalf("import: %v", err)
		}
		total += len(batch)
		batch = batch[:0]
	}
	for _, p := range merged {
		batch = append(batch, p)
		if len(batch) == batchSize {
			flush()
		}
	}
	flush()

	log.Printf("ingestion complete: %d plants, %d failed sources", total, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func label(src string) string {
	if src == "" {
		return "bundled"
	}
	return src
}

func load(ctx context.Context, client *http.Client, src string) ([]domain.SolarPlant, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return memory.LoadPlants(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return memory.ParsePlantsCSV(bytes.NewReader(data))
}
