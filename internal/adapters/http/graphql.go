package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	territoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Territory",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"owner_id":    &graphql.Field{Type: graphql.String},
			"ring":        &graphql.Field{Type: graphql.NewList(geoPointType)},
			"bounds":      &graphql.Field{Type: boundsType},
			"area_m2":     &graphql.Field{Type: graphql.Float},
			"point_count": &graphql.Field{Type: graphql.Int},
			"active":      &graphql.Field{Type: graphql.Boolean},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ExplorationSession",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"owner_id":   &graphql.Field{Type: graphql.String},
			"distance_m": &graphql.Field{Type: graphql.Float},
			"terminated": &graphql.Field{Type: graphql.Boolean},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"territories": &graphql.Field{
				Type:        graphql.NewList(territoryType),
				Description: "List all active territories",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Territories.ListActive(p.Context)
				},
			},
			"territory": &graphql.Field{
				Type:        territoryType,
				Description: "Get a territory by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Territories.GetByID(p.Context, id)
				},
			},
			"territoriesNearby": &graphql.Field{
				Type:        graphql.NewList(territoryType),
				Description: "Find territories near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Territories.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"validatePath": &graphql.Field{
				Type: graphql.NewObject(graphql.ObjectConfig{
					Name: "ValidationResult",
					Fields: graphql.Fields{
						"ok":      &graphql.Field{Type: graphql.Boolean},
						"reason":  &graphql.Field{Type: graphql.String},
						"area_m2": &graphql.Field{Type: graphql.Float},
					},
				}),
				Description: "Validate a candidate claim path",
				Args: graphql.FieldConfigArgument{
					"points": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.NewList(graphql.NewList(graphql.Float))),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw := p.Args["points"].([]interface{})
					pts := make([]domain.GeoPoint, 0, len(raw))
					for _, pair := range raw {
						coords, ok := pair.([]interface{})
						if !ok || len(coords) != 2 {
							continue
						}
						lat, _ := coords[0].(float64)
						lon, _ := coords[1].(float64)
						pts = append(pts, domain.GeoPoint{Lat: lat, Lon: lon})
					}
					return deps.Claims.Validate(pts), nil
				},
			},
			"explorationHistory": &graphql.Field{
				Type:        graphql.NewList(sessionType),
				Description: "Finished free-roam sessions for an owner",
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					owner := p.Args["owner"].(string)
					limit := p.Args["limit"].(int)
					if deps.Sessions == nil {
						return nil, nil
					}
					return deps.Sessions.ListByOwner(p.Context, owner, limit)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
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
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
