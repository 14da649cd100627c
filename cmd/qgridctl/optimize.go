package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samirrijal/qgrid/internal/adapters/memory"
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

var scorerFlag string

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Run the optimization pipeline for a region",
	Long: `Runs the same derivation the API applies when a run completes, without the
simulated solver delay. Solar plants come from the bundled catalog unless
--plants-csv is given.`,
	Example: `  qgridctl optimize --from 100.3,13.6 --to 100.9,14.1 --scorer linear`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p1, p2, err := corners()
		if err != nil {
			return err
		}
		name := cfg.Optimizer.Scorer
		if scorerFlag != "" {
			name = scorerFlag
		}
		scorer, err := usecases.NewScorer(name, cfg.Optimizer.Seed,
			cfg.Optimizer.OutputMwPerKm2, cfg.Optimizer.JitterMw, cfg.Optimizer.HalfSaturationKm2)
		if err != nil {
			return err
		}
		plants, err := memory.OpenPlantRepo(csvPath)
		if err != nil {
			return err
		}
		pipeline := usecases.NewPipeline(cfg.Optimizer.GridDensityKm2, scorer, plants)
		est := geospatial.NewEstimator(cfg.Geometry.PopulationDensity, cfg.Geometry.MaxRegionalSpanKm)
		return runOptimize(cmd.Context(), cmd.OutOrStdout(), pipeline, est, p1, p2, jsonOutput)
	},
}

func init() {
	optimizeCmd.Flags().StringVar(&scorerFlag, "scorer", "", "seeded or linear (default from config)")
	rootCmd.AddCommand(optimizeCmd)
}

type optimizeOutput struct {
	Region domain.RegionDescriptor `json:"region"`
	Result domain.ResultDescriptor `json:"result"`
}

func runOptimize(ctx context.Context, w io.Writer, pipeline *usecases.Pipeline, est geospatial.Estimator, p1, p2 domain.GeoPoint, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	region := est.Describe(p1, p2)
	res, err := pipeline.Optimize(ctx, region)
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(w, optimizeOutput{Region: region, Result: res})
	}
	_, err = fmt.Fprintf(w, `%sMicrogrids:  %d
Utilization: %.1f%%
Output:      %.1f MW
Scorer:      %s
Solar:       %d plants, %.1f MW installed
`, formatRegion(region), res.MicrogridCount, res.UtilizationPct, res.OutputMw, res.Scorer,
		res.SolarPlants, res.PlantCapacityMw)
	return err
}
