package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samirrijal/qgrid/internal/adapters/memory"
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/ports"
	"github.com/samirrijal/qgrid/internal/core/usecases"
)

var bboxFlag string

var plantsCmd = &cobra.Command{
	Use:     "plants",
	Short:   "List solar plants in the catalog",
	Example: `  qgridctl plants --bbox 100.3,13.6,100.9,14.1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var bbox *domain.BoundingRegion
		if bboxFlag != "" {
			r, err := parseBBox(bboxFlag)
			if err != nil {
				return err
			}
			bbox = &r
		}
		repo, err := memory.OpenPlantRepo(csvPath)
		if err != nil {
			return err
		}
		return runPlants(cmd.Context(), cmd.OutOrStdout(), repo, bbox, jsonOutput)
	},
}

func init() {
	plantsCmd.Flags().StringVar(&bboxFlag, "bbox", "", "limit to sw_lon,sw_lat,ne_lon,ne_lat")
	rootCmd.AddCommand(plantsCmd)
}

func runPlants(ctx context.Context, w io.Writer, repo ports.PlantRepository, bbox *domain.BoundingRegion, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		plants []domain.SolarPlant
		err    error
	)
	if bbox != nil {
		plants, err = repo.FindInRegion(ctx, *bbox)
	} else {
		plants, err = repo.List(ctx)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(w, plants)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLON\tLAT\tMW")
	for _, p := range plants {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.1f\n", p.ID, p.Name, p.Location.Lon, p.Location.Lat, p.CapacityMw)
	}
	sum := usecases.SummarizePlants(plants)
	fmt.Fprintf(tw, "\t%d plants\t\t\t%.1f\n", sum.Count, sum.CapacityMw)
	return tw.Flush()
}
