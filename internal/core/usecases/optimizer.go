package usecases

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/pkg/telemetry"
)

// DefaultGridDensityKm2 is the area served by one microgrid.
const DefaultGridDensityKm2 = 8.0

// Score is the part of a result produced by a Scorer.
type Score struct {
	UtilizationPct float64
	OutputMw       float64
}

// Scorer maps a region to utilization and output. Implementations must be
// deterministic for a given region.
type Scorer interface {
	Name() string
	Score(region domain.RegionDescriptor) Score
}

// SeededScorer reproduces the reference demo's ranges with an explicitly
// seeded generator:
//
//	utilization = min(95, 60 + u1*35)       (%)
//	output      = area*MwPerKm2 + u2*JitterMw (MW)
//
// u1 and u2 are the first two draws of a PCG generator seeded with Seed and
// an FNV-64a hash of the region bounds. Both values are rounded to 0.1.
type SeededScorer struct {
	Seed     uint64
	MwPerKm2 float64
	JitterMw float64
}

// Name implements Scorer.
func (s SeededScorer) Name() string { return "seeded" }

// Score implements Scorer.
func (s SeededScorer) Score(region domain.RegionDescriptor) Score {
	rng := rand.New(rand.NewPCG(s.Seed, regionHash(region.Region)))
	util := math.Min(95, 60+rng.Float64()*35)
	out := region.AreaKm2*s.MwPerKm2 + rng.Float64()*s.JitterMw
	return Score{UtilizationPct: round1(util), OutputMw: round1(out)}
}

// LinearScorer has no random component:
//
//	utilization = 60 + 35 * area / (area + HalfSaturationKm2)
//	output      = area * MwPerKm2
type LinearScorer struct {
	HalfSaturationKm2 float64
	MwPerKm2          float64
}

// Name implements Scorer.
func (s LinearScorer) Name() string { return "linear" }

// Score implements Scorer.
func (s LinearScorer) Score(region domain.RegionDescriptor) Score {
	area := math.Max(0, region.AreaKm2)
	util := 60.0
	if area > 0 {
		util = 60 + 35*area/(area+s.HalfSaturationKm2)
	}
	return Score{UtilizationPct: round1(util), OutputMw: round1(area * s.MwPerKm2)}
}

// NewScorer builds the scorer named by optimizer.scorer.
func NewScorer(name string, seed uint64, mwPerKm2, jitterMw, halfSaturationKm2 float64) (Scorer, error) {
	switch name {
	case "", "seeded":
		return SeededScorer{Seed: seed, MwPerKm2: mwPerKm2, JitterMw: jitterMw}, nil
	case "linear":
		return LinearScorer{HalfSaturationKm2: halfSaturationKm2, MwPerKm2: mwPerKm2}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

func regionHash(r domain.BoundingRegion) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []float64{r.SouthWest.Lon, r.SouthWest.Lat, r.NorthEast.Lon, r.NorthEast.Lat} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// MicrogridCount returns max(1, round(area / gridDensityKm2)).
func MicrogridCount(areaKm2, gridDensityKm2 float64) int {
	if gridDensityKm2 <= 0 {
		gridDensityKm2 = DefaultGridDensityKm2
	}
	n := int(math.Round(areaKm2 / gridDensityKm2))
	if n < 1 {
		return 1
	}
	return n
}

// Pipeline derives a ResultDescriptor from a RegionDescriptor. It keeps no
// state between calls.
type Pipeline struct {
	gridDensityKm2 float64
	scorer         Scorer
	plants         ports.PlantRepository
}

// NewPipeline creates a Pipeline. plants may be nil.
func NewPipeline(gridDensityKm2 float64, scorer Scorer, plants ports.PlantRepository) *Pipeline {
	if gridDensityKm2 <= 0 {
		gridDensityKm2 = DefaultGridDensityKm2
	}
	return &Pipeline{gridDensityKm2: gridDensityKm2, scorer: scorer, plants: plants}
}

// Derive applies the derivation policy only.
func (p *Pipeline) Derive(region domain.RegionDescriptor) domain.ResultDescriptor {
	score := p.scorer.Score(region)
	return domain.ResultDescriptor{
		RegionID:       region.ID,
		MicrogridCount: MicrogridCount(region.AreaKm2, p.gridDensityKm2),
		UtilizationPct: math.Max(0, math.Min(100, score.UtilizationPct)),
		OutputMw:       math.Max(0, score.OutputMw),
		Scorer:         p.scorer.Name(),
	}
}

// Optimize derives the result and counts the catalog plants inside the region.
func (p *Pipeline) Optimize(ctx context.Context, region domain.RegionDescriptor) (domain.ResultDescriptor, error) {
	res := p.Derive(region)
	if p.plants != nil {
		lookupCtx, span := tracer.Start(ctx, telemetry.SpanPlantLookup)
		plants, err := p.plants.FindInRegion(lookupCtx, region.Region)
		if err != nil {
			span.RecordError(err)
			slog.WarnContext(ctx, "plant lookup failed", "region_id", region.ID, "error", err)
		} else {
			sum := SummarizePlants(plants)
			res.SolarPlants = sum.Count
			res.PlantCapacityMw = sum.CapacityMw
			span.SetAttributes(attribute.Int(telemetry.AttrPlants, sum.Count))
		}
		span.End()
	}
	res.CompletedAt = time.Now().UTC()
	return res, nil
}

// LocalExecutor runs the pipeline in-process after a fixed delay that stands
// in for solver time.
type LocalExecutor struct {
	pipeline *Pipeline
	delay    time.Duration
}

// NewLocalExecutor creates a LocalExecutor.
func NewLocalExecutor(pipeline *Pipeline, delay time.Duration) *LocalExecutor {
	return &LocalExecutor{pipeline: pipeline, delay: delay}
}

// Optimize implements ports.RunExecutor.
func (e *LocalExecutor) Optimize(ctx context.Context, runID string, region domain.RegionDescriptor) (domain.ResultDescriptor, error) {
	if e.delay > 0 {
		timer := time.NewTimer(e.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return domain.ResultDescriptor{}, ctx.Err()
		}
	}
	return e.pipeline.Optimize(ctx, region)
}
