package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samirrijal/qgrid/internal/core/domain"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Geometry  GeometryConfig  `mapstructure:"geometry"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Selection SelectionConfig `mapstructure:"selection"`
	Session   SessionConfig   `mapstructure:"session"`
	History   HistoryConfig   `mapstructure:"history"`
	Plants    PlantsConfig    `mapstructure:"plants"`
	Map       MapConfig       `mapstructure:"map"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	CORSOrigins  string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// GeometryConfig tunes the area and population estimates.
type GeometryConfig struct {
	PopulationDensity float64 `mapstructure:"population_density"` // people per km²
	MaxRegionalSpanKm float64 `mapstructure:"max_regional_span_km"`
}

// OptimizerConfig selects the scorer and executor for optimization runs.
type OptimizerConfig struct {
	Executor          string        `mapstructure:"executor"` // local | temporal
	Scorer            string        `mapstructure:"scorer"`   // seeded | linear
	Seed              uint64        `mapstructure:"seed"`
	GridDensityKm2    float64       `mapstructure:"grid_density_km2"`
	OutputMwPerKm2    float64       `mapstructure:"output_mw_per_km2"`
	JitterMw          float64       `mapstructure:"jitter_mw"`
	HalfSaturationKm2 float64       `mapstructure:"half_saturation_km2"`
	RunDelay          time.Duration `mapstructure:"run_delay"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// SelectionConfig holds the region installed by a clear.
type SelectionConfig struct {
	ClearDefault ClearDefaultConfig `mapstructure:"clear_default"`
}

type ClearDefaultConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	SWLon   float64 `mapstructure:"sw_lon"`
	SWLat   float64 `mapstructure:"sw_lat"`
	NELon   float64 `mapstructure:"ne_lon"`
	NELat   float64 `mapstructure:"ne_lat"`
}

// Region returns the configured default region, or nil when disabled.
func (c ClearDefaultConfig) Region() *domain.BoundingRegion {
	if !c.Enabled {
		return nil
	}
	return &domain.BoundingRegion{
		SouthWest: domain.GeoPoint{Lon: math.Min(c.SWLon, c.NELon), Lat: math.Min(c.SWLat, c.NELat)},
		NorthEast: domain.GeoPoint{Lon: math.Max(c.SWLon, c.NELon), Lat: math.Max(c.SWLat, c.NELat)},
	}
}

type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	StoreTTL      time.Duration `mapstructure:"store_ttl"`
}

// HistoryConfig selects where completed runs are recorded.
type HistoryConfig struct {
	Driver     string `mapstructure:"driver"` // postgres | sqlite | none
	SQLitePath string `mapstructure:"sqlite_path"`
}

type PlantsConfig struct {
	Source  string `mapstructure:"source"` // memory | postgres
	CSVPath string `mapstructure:"csv_path"`
}

// MapConfig is served to the page so it never hard-codes a token or viewport.
type MapConfig struct {
	Style       string  `mapstructure:"style"`
	CenterLon   float64 `mapstructure:"center_lon"`
	CenterLat   float64 `mapstructure:"center_lat"`
	Zoom        float64 `mapstructure:"zoom"`
	AccessToken string  `mapstructure:"access_token"`
}

// Load reads configuration from .env, file and environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: QGRID_OPTIMIZER_SEED → optimizer.seed
	v.SetEnvPrefix("QGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.cors_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "qgrid")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "qgrid")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("geometry.population_density", 140.0)
	v.SetDefault("geometry.max_regional_span_km", 500.0)

	v.SetDefault("optimizer.executor", "local")
	v.SetDefault("optimizer.scorer", "seeded")
	v.SetDefault("optimizer.seed", 42)
	v.SetDefault("optimizer.grid_density_km2", 8.0)
	v.SetDefault("optimizer.output_mw_per_km2", 2.5)
	v.SetDefault("optimizer.jitter_mw", 20.0)
	v.SetDefault("optimizer.half_saturation_km2", 100.0)
	v.SetDefault("optimizer.run_delay", "3s")
	v.SetDefault("optimizer.run_timeout", "2m")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "qgrid-optimizer")

	v.SetDefault("selection.clear_default.enabled", true)
	v.SetDefault("selection.clear_default.sw_lon", 100.0)
	v.SetDefault("selection.clear_default.sw_lat", 13.0)
	v.SetDefault("selection.clear_default.ne_lon", 101.0)
	v.SetDefault("selection.clear_default.ne_lat", 14.0)

	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("session.store_ttl", "24h")

	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.sqlite_path", "qgrid-history.db")

	v.SetDefault("plants.source", "memory")
	v.SetDefault("plants.csv_path", "")

	v.SetDefault("map.style", "mapbox://styles/mapbox/dark-v11")
	v.SetDefault("map.center_lon", 100.5018)
	v.SetDefault("map.center_lat", 13.7563)
	v.SetDefault("map.zoom", 6.0)
	v.SetDefault("map.access_token", "")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Enabled || c.History.Driver == "postgres" || c.Plants.Source == "postgres" {
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required")
		}
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	if c.Geometry.PopulationDensity <= 0 {
		errs = append(errs, "geometry.population_density must be positive")
	}
	if c.Geometry.MaxRegionalSpanKm <= 0 {
		errs = append(errs, "geometry.max_regional_span_km must be positive")
	}

	switch c.Optimizer.Executor {
	case "local", "temporal":
	default:
		errs = append(errs, fmt.Sprintf("optimizer.executor must be local or temporal, got %q", c.Optimizer.Executor))
	}
	switch c.Optimizer.Scorer {
	case "seeded", "linear":
	default:
		errs = append(errs, fmt.Sprintf("optimizer.scorer must be seeded or linear, got %q", c.Optimizer.Scorer))
	}
	if c.Optimizer.GridDensityKm2 <= 0 {
		errs = append(errs, "optimizer.grid_density_km2 must be positive")
	}
	if c.Optimizer.OutputMwPerKm2 < 0 || c.Optimizer.JitterMw < 0 {
		errs = append(errs, "optimizer output parameters must not be negative")
	}
	if c.Optimizer.Scorer == "linear" && c.Optimizer.HalfSaturationKm2 <= 0 {
		errs = append(errs, "optimizer.half_saturation_km2 must be positive for the linear scorer")
	}
	if c.Optimizer.RunDelay < 0 {
		errs = append(errs, "optimizer.run_delay must not be negative")
	}
	if c.Optimizer.RunTimeout <= c.Optimizer.RunDelay {
		errs = append(errs, "optimizer.run_timeout must exceed optimizer.run_delay")
	}
	if c.Optimizer.Executor == "temporal" && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required for the temporal executor")
	}

	if cd := c.Selection.ClearDefault; cd.Enabled {
		if !validLonLat(cd.SWLon, cd.SWLat) || !validLonLat(cd.NELon, cd.NELat) {
			errs = append(errs, "selection.clear_default bounds are out of range")
		}
	}

	if c.Session.IdleTTL <= 0 {
		errs = append(errs, "session.idle_ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		errs = append(errs, "session.sweep_interval must be positive")
	}

	switch c.History.Driver {
	case "postgres", "none":
	case "sqlite":
		if c.History.SQLitePath == "" {
			errs = append(errs, "history.sqlite_path is required for the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("history.driver must be postgres, sqlite or none, got %q", c.History.Driver))
	}
	switch c.Plants.Source {
	case "memory", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("plants.source must be memory or postgres, got %q", c.Plants.Source))
	}

	if !validLonLat(c.Map.CenterLon, c.Map.CenterLat) {
		errs = append(errs, "map center is out of range")
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		errs = append(errs, fmt.Sprintf("map.zoom must be 0-22, got %v", c.Map.Zoom))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validLonLat(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
