package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/config"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

var (
	jsonOutput bool
	csvPath    string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "qgridctl",
	Short: "Offline tools for the qgrid microgrid planner",
	Long: `qgridctl runs region estimates and optimizations without the API server.

It reads the same configuration as the services (config.yaml, .env and
QGRID_* environment variables), so results match what a session would show.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load("qgridctl")
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&csvPath, "plants-csv", "", "Plant catalog CSV (default: bundled catalog)")
}

// parsePoint parses "lon,lat".
func parsePoint(s string) (domain.GeoPoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return domain.GeoPoint{}, fmt.Errorf("point %q: want lon,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, err)
	}
	p := domain.GeoPoint{Lon: lon, Lat: lat}
	if !geospatial.ValidPoint(p) {
		return domain.GeoPoint{}, fmt.Errorf("point %q: %w", s, domain.ErrInvalidPoint)
	}
	return p, nil
}

// parseBBox parses "sw_lon,sw_lat,ne_lon,ne_lat" into a normalized region.
func parseBBox(s string) (domain.BoundingRegion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.BoundingRegion{}, fmt.Errorf("bbox %q: want sw_lon,sw_lat,ne_lon,ne_lat", s)
	}
	sw, err := parsePoint(parts[0] + "," + parts[1])
	if err != nil {
		return domain.BoundingRegion{}, err
	}
	ne, err := parsePoint(parts[2] + "," + parts[3])
	if err != nil {
		return domain.BoundingRegion{}, err
	}
	return geospatial.Normalize(sw, ne), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatRegion(r domain.RegionDescriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bounds:      (%.4f, %.4f) - (%.4f, %.4f)\n",
		r.Region.SouthWest.Lon, r.Region.SouthWest.Lat, r.Region.NorthEast.Lon, r.Region.NorthEast.Lat)
	fmt.Fprintf(&b, "Center:      %.4f, %.4f\n", r.Center.Lon, r.Center.Lat)
	fmt.Fprintf(&b, "Area:        %.1f km²\n", r.AreaKm2)
	fmt.Fprintf(&b, "Population:  %d\n", r.PopulationEstimate)
	if r.OutsideRegionalScale {
		fmt.Fprintf(&b, "Warning:     beyond regional scale, spherical area %.1f km² (%.1f%% off)\n",
			r.SphericalAreaKm2, 100*math.Abs(r.AreaKm2-r.SphericalAreaKm2)/math.Max(r.SphericalAreaKm2, 1e-9))
	}
	return b.String()
}
