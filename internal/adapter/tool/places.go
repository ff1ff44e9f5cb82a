package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"tripmate-ai/internal/adapter/maps"
	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/tracer"
)

const defaultNearbyRadius = 1000 // meters

var validPlaceTypes = map[string]bool{
	"restaurant": true,
	"attraction": true,
	"general":    true,
}

// PlacesTool searches for points of interest near a location.
type PlacesTool struct {
	provider maps.Provider
	logger   *slog.Logger
}

// NewPlacesTool creates the nearby-places tool over the given provider.
func NewPlacesTool(provider maps.Provider, logger *slog.Logger) *PlacesTool {
	return &PlacesTool{provider: provider, logger: logger}
}

func (t *PlacesTool) Name() string { return "search_nearby_places" }
func (t *PlacesTool) Description() string {
	return "Search for restaurants, attractions or other places near the user's location. " +
		"Use a keyword to narrow the search (cuisine, landmark type)."
}

func (t *PlacesTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"type": {
					"type": "string",
					"enum": ["restaurant", "attraction", "general"],
					"description": "Category of place to search for"
				},
				"keyword": {
					"type": "string",
					"description": "Optional keyword narrowing the search"
				},
				"location": {
					"type": "string",
					"description": "Search center as \"lng,lat\"; omit to use the user's current location"
				},
				"radius": {
					"type": "integer",
					"description": "Search radius in meters (default 1000)"
				}
			},
			"required": ["type"]
		}`),
	}
}

type placesParams struct {
	Type     string `json:"type"`
	Keyword  string `json:"keyword,omitempty"`
	Location string `json:"location,omitempty"`
	Radius   int    `json:"radius,omitempty"`
}

// placesResponse is the tool-result body. A zero-result search carries
// a descriptive error string instead of failing, so the model can
// explain the miss to the user.
type placesResponse struct {
	Results []domain.PlaceResult `json:"results"`
	Error   string               `json:"error,omitempty"`
}

func (t *PlacesTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.search_nearby_places", t.logger, params,
		func(ctx context.Context, span trace.Span, p placesParams) (any, error) {
			span.SetAttributes(tracer.StringAttr("tool.place_type", p.Type))

			if !validPlaceTypes[p.Type] {
				return ErrResult("unknown place type %q (want: restaurant, attraction, general)", p.Type)
			}

			tc := domain.TurnFromContext(ctx)
			center := tc.Origin
			if p.Location != "" {
				loc, err := domain.ParseLngLat(p.Location)
				if err != nil {
					return ErrResult("invalid location: %v", err)
				}
				center = &loc
			}
			if center == nil {
				return ErrResult("no search location available; ask the user to share their location")
			}

			radius := p.Radius
			if radius <= 0 {
				radius = defaultNearbyRadius
			}

			results, err := t.provider.SearchNearby(ctx, maps.NearbyQuery{
				Type:     p.Type,
				Keyword:  p.Keyword,
				Location: *center,
				Radius:   radius,
				City:     tc.City,
			})
			if err != nil {
				return nil, err
			}

			if len(results) == 0 {
				body := placesResponse{
					Results: []domain.PlaceResult{},
					Error:   fmt.Sprintf("no %s results found within %dm; try a larger radius or a different keyword", p.Type, radius),
				}
				content, err := json.Marshal(body)
				if err != nil {
					return nil, fmt.Errorf("marshal places result: %w", err)
				}
				return &domain.ToolResult{Content: string(content)}, nil
			}

			content, err := json.Marshal(placesResponse{Results: results})
			if err != nil {
				return nil, fmt.Errorf("marshal places result: %w", err)
			}
			return &domain.ToolResult{
				Content: string(content),
				Places:  results,
			}, nil
		},
	)
}
