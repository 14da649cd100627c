package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

var (
	fromFlag string
	toFlag   string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Describe the rectangle between two corners",
	Example: `  qgridctl estimate --from 100.3,13.6 --to 100.9,14.1
  qgridctl estimate --from 100.3,13.6 --to 100.9,14.1 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p1, p2, err := corners()
		if err != nil {
			return err
		}
		est := geospatial.NewEstimator(cfg.Geometry.PopulationDensity, cfg.Geometry.MaxRegionalSpanKm)
		return runEstimate(cmd.OutOrStdout(), est, p1, p2, jsonOutput)
	},
}

func init() {
	for _, c := range []*cobra.Command{estimateCmd, optimizeCmd} {
		c.Flags().StringVar(&fromFlag, "from", "", "first corner as lon,lat")
		c.Flags().StringVar(&toFlag, "to", "", "opposite corner as lon,lat")
		_ = c.MarkFlagRequired("from")
		_ = c.MarkFlagRequired("to")
	}
	rootCmd.AddCommand(estimateCmd)
}

func corners() (domain.GeoPoint, domain.GeoPoint, error) {
	p1, err := parsePoint(fromFlag)
	if err != nil {
		return domain.GeoPoint{}, domain.GeoPoint{}, err
	}
	p2, err := parsePoint(toFlag)
	if err != nil {
		return domain.GeoPoint{}, domain.GeoPoint{}, err
	}
	return p1, p2, nil
}

func runEstimate(w io.Writer, est geospatial.Estimator, p1, p2 domain.GeoPoint, asJSON bool) error {
	region := est.Describe(p1, p2)
	if asJSON {
		return writeJSON(w, region)
	}
	_, err := fmt.Fprint(w, formatRegion(region))
	return err
}
