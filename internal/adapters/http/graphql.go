package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/priyanshu-3/SkinCare/internal/adapters/geocoding"
	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

// timeField resolves a time.Time or *time.Time field as RFC 3339.
func timeField(get func(*domain.Resolution) *time.Time) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			r, ok := p.Source.(*domain.Resolution)
			if !ok {
				return nil, nil
			}
			if t := get(r); t != nil {
				return t.UTC().Format(time.RFC3339), nil
			}
			return nil, nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinatesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinates",
		Fields: graphql.Fields{
			"latitude":        &graphql.Field{Type: graphql.Float},
			"longitude":       &graphql.Field{Type: graphql.Float},
			"accuracy_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	stageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StageAttempt",
		Fields: graphql.Fields{
			"stage":   &graphql.Field{Type: graphql.String},
			"outcome": &graphql.Field{Type: graphql.String},
			"error":   &graphql.Field{Type: graphql.String},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ResolvedLocation",
		Fields: graphql.Fields{
			"text":        &graphql.Field{Type: graphql.String},
			"source":      &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: coordinatesType},
			"trail":       &graphql.Field{Type: graphql.NewList(stageType)},
			"display_name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if loc, ok := p.Source.(*domain.ResolvedLocation); ok && loc.Reverse != nil {
						return loc.Reverse.DisplayName, nil
					}
					return nil, nil
				},
			},
		},
	})

	resolutionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Resolution",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"form_id":       &graphql.Field{Type: graphql.String},
			"status":        &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: locationType},
			"error_code":    &graphql.Field{Type: graphql.String},
			"error_message": &graphql.Field{Type: graphql.String},
			"stale":         &graphql.Field{Type: graphql.Boolean},
			"text": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if r, ok := p.Source.(*domain.Resolution); ok {
						return r.Text(), nil
					}
					return nil, nil
				},
			},
			"created_at": timeField(func(r *domain.Resolution) *time.Time { return &r.CreatedAt }),
			"refined_at": timeField(func(r *domain.Resolution) *time.Time { return r.RefinedAt }),
		},
	})

	reverseType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReverseGeocode",
		Fields: graphql.Fields{
			"text":         &graphql.Field{Type: graphql.String},
			"source":       &graphql.Field{Type: graphql.String},
			"display_name": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"resolution": &graphql.Field{
				Type:        resolutionType,
				Description: "Get a recorded resolution by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					r, err := deps.Resolutions.Get(p.Context, id)
					if errors.Is(err, domain.ErrNotFound) {
						return nil, nil
					}
					return r, err
				},
			},
			"resolutions": &graphql.Field{
				Type:        graphql.NewList(resolutionType),
				Description: "Recorded resolutions, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					items, _, err := deps.Resolutions.List(p.Context, offset, limit)
					if err != nil {
						return nil, err
					}
					out := make([]*domain.Resolution, len(items))
					for i := range items {
						out[i] = &items[i]
					}
					return out, nil
				},
			},
			"reverseGeocode": &graphql.Field{
				Type:        reverseType,
				Description: "Format the reverse-geocode result for a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					c := domain.Coordinates{Latitude: p.Args["lat"].(float64), Longitude: p.Args["lon"].(float64)}
					if !c.Valid() {
						return nil, fmt.Errorf("coordinates out of range")
					}
					res, err := deps.Reverse.Reverse(p.Context, c.Latitude, c.Longitude)
					if err != nil {
						return nil, fmt.Errorf("reverse geocoding is unavailable")
					}
					text, source := usecases.FormatReverseGeocode(res, c)
					return map[string]interface{}{
						"text":         text,
						"source":       string(source),
						"display_name": res.DisplayName,
					}, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"resolveLocation": &graphql.Field{
				Type:        resolutionType,
				Description: "Resolve a location; a total failure comes back with status failed",
				Args: graphql.FieldConfigArgument{
					"form_id":           &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"order":             &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"latitude":          &graphql.ArgumentConfig{Type: graphql.Float},
					"longitude":         &graphql.ArgumentConfig{Type: graphql.Float},
					"accuracy_meters":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
					"geolocation_error": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if len(p.Args["form_id"].(string)) > maxFormIDLen {
						return nil, errors.New(errFormIDTooLong)
					}
					order, ok := deps.parseOrder(p.Args["order"].(string))
					if !ok {
						return nil, fmt.Errorf("unknown order %q", p.Args["order"])
					}

					var reading *domain.Coordinates
					lat, hasLat := p.Args["latitude"].(float64)
					lon, hasLon := p.Args["longitude"].(float64)
					if hasLat != hasLon {
						return nil, fmt.Errorf("latitude and longitude must be given together")
					}
					if hasLat {
						reading = &domain.Coordinates{Latitude: lat, Longitude: lon, AccuracyMeters: p.Args["accuracy_meters"].(float64)}
					}
					provider, err := geocoding.PositionFromReport(reading, p.Args["geolocation_error"].(string), "")
					if err != nil {
						return nil, err
					}

					r, err := deps.Resolutions.Resolve(p.Context, p.Args["form_id"].(string), usecases.ResolveRequest{
						Position: provider,
						Order:    order,
					})
					var rerr *domain.ResolutionError
					if err != nil && !errors.As(err, &rerr) {
						return nil, err
					}
					return r, nil
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
