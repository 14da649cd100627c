package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/qgrid/internal/adapters/memory"
	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/core/usecases"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

func TestParsePoint(t *testing.T) {
	p, err := parsePoint(" 100.5, 13.75 ")
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lon: 100.5, Lat: 13.75}, p)

	for _, bad := range []string{"100.5", "a,b", "181,0", "0,91", "1,2,3"} {
		_, err := parsePoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBBox_Normalizes(t *testing.T) {
	r, err := parseBBox("101,14,100,13")
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lon: 100, Lat: 13}, r.SouthWest)
	assert.Equal(t, domain.GeoPoint{Lon: 101, Lat: 14}, r.NorthEast)

	_, err = parseBBox("100,13,101")
	assert.Error(t, err)
}

func TestRunEstimate_Human(t *testing.T) {
	var buf bytes.Buffer
	err := runEstimate(&buf, geospatial.NewEstimator(0, 0),
		domain.GeoPoint{Lon: 100, Lat: 13}, domain.GeoPoint{Lon: 101, Lat: 14}, false)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Center:      100.5000, 13.5000")
	assert.Contains(t, out, "Area:")
	assert.NotContains(t, out, "Warning")
}

func TestRunEstimate_FlagsContinentalScale(t *testing.T) {
	var buf bytes.Buffer
	err := runEstimate(&buf, geospatial.NewEstimator(0, 0),
		domain.GeoPoint{Lon: 90, Lat: 0}, domain.GeoPoint{Lon: 110, Lat: 25}, false)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Warning")
}

func TestRunOptimize_JSON(t *testing.T) {
	plants, err := memory.NewDefaultPlantRepo()
	require.NoError(t, err)
	pipeline := usecases.NewPipeline(8, usecases.LinearScorer{HalfSaturationKm2: 100, MwPerKm2: 2.5}, plants)

	var buf bytes.Buffer
	err = runOptimize(context.Background(), &buf, pipeline, geospatial.NewEstimator(0, 0),
		domain.GeoPoint{Lon: 100, Lat: 13}, domain.GeoPoint{Lon: 101, Lat: 14}, true)
	require.NoError(t, err)

	var out optimizeOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, usecases.MicrogridCount(out.Region.AreaKm2, 8), out.Result.MicrogridCount)
	assert.Equal(t, "linear", out.Result.Scorer)
}

func TestRunPlants_Table(t *testing.T) {
	repo := memory.NewPlantRepo([]domain.SolarPlant{
		{ID: "a", Name: "Alpha", Location: domain.GeoPoint{Lon: 100.1, Lat: 13.1}, CapacityMw: 10},
		{ID: "b", Name: "Beta", Location: domain.GeoPoint{Lon: 102, Lat: 15}, CapacityMw: 5.5},
	})
	box := domain.BoundingRegion{
		SouthWest: domain.GeoPoint{Lon: 100, Lat: 13},
		NorthEast: domain.GeoPoint{Lon: 101, Lat: 14},
	}

	var buf bytes.Buffer
	require.NoError(t, runPlants(context.Background(), &buf, repo, &box, false))

	out := buf.String()
	assert.Contains(t, out, "Alpha")
	assert.NotContains(t, out, "Beta")
	assert.True(t, strings.Contains(out, "1 plants"), out)
}
