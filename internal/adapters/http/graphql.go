package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/qgrid/internal/core/domain"
	"github.com/samirrijal/qgrid/internal/pkg/geospatial"
)

// Object fields resolve through the json tags of the domain structs.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lon": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BoundingRegion",
		Fields: graphql.Fields{
			"southwest": &graphql.Field{Type: geoPointType},
			"northeast": &graphql.Field{Type: geoPointType},
		},
	})

	regionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Region",
		Fields: graphql.Fields{
			"id":                     &graphql.Field{Type: graphql.String},
			"region":                 &graphql.Field{Type: boundsType},
			"center":                 &graphql.Field{Type: geoPointType},
			"area_km2":               &graphql.Field{Type: graphql.Float},
			"population_estimate":    &graphql.Field{Type: graphql.Int},
			"spherical_area_km2":     &graphql.Field{Type: graphql.Float},
			"outside_regional_scale": &graphql.Field{Type: graphql.Boolean},
			"selected_at":            &graphql.Field{Type: graphql.DateTime},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OptimizationResult",
		Fields: graphql.Fields{
			"region_id":         &graphql.Field{Type: graphql.String},
			"microgrid_count":   &graphql.Field{Type: graphql.Int},
			"utilization_pct":   &graphql.Field{Type: graphql.Float},
			"output_mw":         &graphql.Field{Type: graphql.Float},
			"scorer":            &graphql.Field{Type: graphql.String},
			"solar_plants":      &graphql.Field{Type: graphql.Int},
			"plant_capacity_mw": &graphql.Field{Type: graphql.Float},
			"completed_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	selectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Selection",
		Fields: graphql.Fields{
			"drawing": &graphql.Field{Type: graphql.Boolean},
			"start":   &graphql.Field{Type: geoPointType},
			"mode": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					switch s := p.Source.(type) {
					case domain.SelectionState:
						return s.Mode(), nil
					case *domain.SelectionState:
						return s.Mode(), nil
					}
					return nil, nil
				},
			},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"selection_mode": &graphql.Field{Type: graphql.Boolean},
			"selection":      &graphql.Field{Type: selectionType},
			"region":         &graphql.Field{Type: regionType},
			"status":         &graphql.Field{Type: graphql.String},
			"status_label":   &graphql.Field{Type: graphql.String},
			"result":         &graphql.Field{Type: resultType},
			"version":        &graphql.Field{Type: graphql.Int},
			"created_at":     &graphql.Field{Type: graphql.DateTime},
			"updated_at":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	plantType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SolarPlant",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"capacity_mw": &graphql.Field{Type: graphql.Float},
		},
	})

	runType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Run",
		Fields: graphql.Fields{
			"run_id":       &graphql.Field{Type: graphql.String},
			"session_id":   &graphql.Field{Type: graphql.String},
			"region":       &graphql.Field{Type: regionType},
			"result":       &graphql.Field{Type: resultType},
			"started_at":   &graphql.Field{Type: graphql.DateTime},
			"completed_at": &graphql.Field{Type: graphql.DateTime},
		},
	})

	idArg := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}
	pointArgs := graphql.FieldConfigArgument{
		"id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
		"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
	}
	argPoint := func(args map[string]interface{}, lonKey, latKey string) (domain.GeoPoint, error) {
		p := domain.GeoPoint{Lon: args[lonKey].(float64), Lat: args[latKey].(float64)}
		if !geospatial.ValidPoint(p) {
			return p, domain.ErrInvalidPoint
		}
		return p, nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "Snapshot of a demo session",
				Args:        idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Get(p.Context, p.Args["id"].(string))
				},
			},
			"plants": &graphql.Field{
				Type:        graphql.NewList(plantType),
				Description: "Solar plants in the catalog",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Plants.List(p.Context)
				},
			},
			"estimate": &graphql.Field{
				Type:        regionType,
				Description: "Describe the rectangle spanned by two corners",
				Args: graphql.FieldConfigArgument{
					"lon1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					p1, err := argPoint(p.Args, "lon1", "lat1")
					if err != nil {
						return nil, err
					}
					p2, err := argPoint(p.Args, "lon2", "lat2")
					if err != nil {
						return nil, err
					}
					return deps.Estimator.Describe(p1, p2), nil
				},
			},
			"estimateAround": &graphql.Field{
				Type:        regionType,
				Description: "Describe the square of the given radius around a point",
				Args: graphql.FieldConfigArgument{
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius_km": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 10.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center, err := argPoint(p.Args, "lon", "lat")
					if err != nil {
						return nil, err
					}
					radius := p.Args["radius_km"].(float64)
					if radius <= 0 {
						return nil, errors.New("radius_km must be positive")
					}
					return deps.Estimator.DescribeRegion(geospatial.RegionAround(center, radius)), nil
				},
			},
			"runs": &graphql.Field{
				Type:        graphql.NewList(runType),
				Description: "Recent completed runs, newest first",
				Args: graphql.FieldConfigArgument{
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.History == nil {
						return nil, errors.New("run history not configured")
					}
					runs, _, err := deps.History.List(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return runs, err
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createSession": &graphql.Field{
				Type: sessionType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Create(p.Context)
				},
			},
			"setSelectionMode": &graphql.Field{
				Type: sessionType,
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"enabled": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Boolean)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.SetSelectionMode(p.Context, p.Args["id"].(string), p.Args["enabled"].(bool))
				},
			},
			"beginGesture": &graphql.Field{
				Type: sessionType,
				Args: pointArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, err := argPoint(p.Args, "lon", "lat")
					if err != nil {
						return nil, err
					}
					return deps.Sessions.BeginGesture(p.Context, p.Args["id"].(string), pt)
				},
			},
			"endGesture": &graphql.Field{
				Type: sessionType,
				Args: pointArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, err := argPoint(p.Args, "lon", "lat")
					if err != nil {
						return nil, err
					}
					return deps.Sessions.EndGesture(p.Context, p.Args["id"].(string), pt)
				},
			},
			"clearSelection": &graphql.Field{
				Type: sessionType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Clear(p.Context, p.Args["id"].(string))
				},
			},
			"runOptimization": &graphql.Field{
				Type: sessionType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Sessions.Run(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
