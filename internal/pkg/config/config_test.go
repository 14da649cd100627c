package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("qgrid-test")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "qgrid-test", cfg.Telemetry.ServiceName)
	assert.Equal(t, 140.0, cfg.Geometry.PopulationDensity)
	assert.Equal(t, "seeded", cfg.Optimizer.Scorer)
	assert.Equal(t, "local", cfg.Optimizer.Executor)
	assert.Equal(t, 8.0, cfg.Optimizer.GridDensityKm2)
	assert.Equal(t, 3*time.Second, cfg.Optimizer.RunDelay)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, 13.7563, cfg.Map.CenterLat)

	r := cfg.Selection.ClearDefault.Region()
	require.NotNil(t, r)
	assert.Equal(t, 100.0, r.SouthWest.Lon)
	assert.Equal(t, 14.0, r.NorthEast.Lat)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QGRID_OPTIMIZER_SEED", "7")
	t.Setenv("QGRID_OPTIMIZER_SCORER", "linear")
	t.Setenv("QGRID_OPTIMIZER_RUN_DELAY", "250ms")
	t.Setenv("QGRID_SELECTION_CLEAR_DEFAULT_ENABLED", "false")

	cfg, err := Load("qgrid-test")
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Optimizer.Seed)
	assert.Equal(t, "linear", cfg.Optimizer.Scorer)
	assert.Equal(t, 250*time.Millisecond, cfg.Optimizer.RunDelay)
	assert.Nil(t, cfg.Selection.ClearDefault.Region())
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("QGRID_OPTIMIZER_SCORER", "quantum")
	_, err := Load("qgrid-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "optimizer.scorer")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg, err := Load("qgrid-test")
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Geometry.PopulationDensity = -1
	cfg.Optimizer.GridDensityKm2 = 0
	cfg.History.Driver = "mongo"

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"server.port", "geometry.population_density", "optimizer.grid_density_km2", "history.driver"} {
		assert.True(t, strings.Contains(err.Error(), want), "missing %s in %v", want, err)
	}
}

func TestValidate_PostgresRequiresDatabase(t *testing.T) {
	cfg, err := Load("qgrid-test")
	require.NoError(t, err)

	cfg.History.Driver = "postgres"
	cfg.Database.Host = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.host")
}

func TestClearDefault_NormalizesBounds(t *testing.T) {
	cd := ClearDefaultConfig{Enabled: true, SWLon: 101, SWLat: 14, NELon: 100, NELat: 13}
	r := cd.Region()
	require.NotNil(t, r)
	assert.Equal(t, 100.0, r.SouthWest.Lon)
	assert.Equal(t, 13.0, r.SouthWest.Lat)
	assert.Equal(t, 101.0, r.NorthEast.Lon)
	assert.Equal(t, 14.0, r.NorthEast.Lat)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "qgrid", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/qgrid?sslmode=disable", d.DSN())
}
