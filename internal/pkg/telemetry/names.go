package telemetry

// InstrumentationName is the tracer name shared by the core packages.
const InstrumentationName = "github.com/samirrijal/qgrid"

// Span names.
const (
	SpanOptimizationRun = "optimization.run"
	SpanPlantLookup     = "catalog.find_in_region"
)

// Span attribute keys.
const (
	AttrSessionID = "session.id"
	AttrRunID     = "run.id"
	AttrRegionID  = "region.id"
	AttrAreaKm2   = "region.area_km2"
	AttrDiscarded = "run.discarded"
	AttrPlants    = "catalog.plants"
)
