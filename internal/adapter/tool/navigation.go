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

// NavigationTool resolves a destination and plans transit plus walking
// routes from the user's current location.
type NavigationTool struct {
	resolver    *maps.Resolver
	routes      *maps.RouteFetcher
	defaultCity string
	logger      *slog.Logger
}

// NewNavigationTool creates the navigation tool. defaultCity applies
// when the model omits the city argument entirely.
func NewNavigationTool(resolver *maps.Resolver, routes *maps.RouteFetcher, defaultCity string, logger *slog.Logger) *NavigationTool {
	return &NavigationTool{
		resolver:    resolver,
		routes:      routes,
		defaultCity: defaultCity,
		logger:      logger,
	}
}

func (t *NavigationTool) Name() string { return "get_navigation" }
func (t *NavigationTool) Description() string {
	return "Plan public-transit and walking routes from the user's current location to a destination. " +
		"Always pass the destination's localized name when you know it; " +
		"pass city as an empty string only for destinations outside the user's current city."
}

func (t *NavigationTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"destination": {
					"type": "string",
					"description": "Destination name as the user said it"
				},
				"localized_name": {
					"type": "string",
					"description": "Destination name in the local language, if known"
				},
				"city": {
					"type": "string",
					"description": "City to search in; empty string searches nationwide; omit to use the user's current city"
				}
			},
			"required": ["destination"]
		}`),
	}
}

type navigationParams struct {
	Destination   string  `json:"destination"`
	LocalizedName string  `json:"localized_name,omitempty"`
	City          *string `json:"city,omitempty"`
}

func (t *NavigationTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.get_navigation", t.logger, params,
		func(ctx context.Context, span trace.Span, p navigationParams) (any, error) {
			span.SetAttributes(tracer.StringAttr("tool.destination", p.Destination))

			if p.Destination == "" {
				return ErrResult("destination is required")
			}

			tc := domain.TurnFromContext(ctx)
			if tc.Origin == nil {
				return ErrResult("the user's current location is not available; ask them to share it before requesting directions")
			}

			if tc.Nav != nil && tc.Nav.DestinationLocation != "" {
				return t.fromNavContext(ctx, p, tc)
			}

			city := t.searchCity(p, tc)
			place, err := t.resolver.Resolve(ctx, p.Destination, p.LocalizedName, city, tc.Origin)
			if err != nil {
				return nil, err
			}
			if place == nil {
				t.logger.Info("destination not resolved",
					"destination", p.Destination, "localized_name", p.LocalizedName, "city", city)
				return fmt.Sprintf("no location found for %q; suggest the user provide a more specific or well-known place name", p.Destination), nil
			}

			dest := domain.Destination{
				Name:      place.Name,
				InputName: p.Destination,
				Address:   place.Address,
				Location:  place.Location.String(),
			}
			return t.plan(ctx, *tc.Origin, place.Location, city, dest)
		},
	)
}

// fromNavContext plans routes straight to an already-resolved
// destination. Re-resolving a name that matched a specific place card
// can silently land on a different place when names collide.
func (t *NavigationTool) fromNavContext(ctx context.Context, p navigationParams, tc domain.TurnContext) (any, error) {
	loc, err := domain.ParseLngLat(tc.Nav.DestinationLocation)
	if err != nil {
		return nil, fmt.Errorf("nav context location: %w", err)
	}

	name := tc.Nav.DestinationName
	if name == "" {
		name = p.Destination
	}
	dest := domain.Destination{
		Name:      name,
		InputName: p.Destination,
		Address:   tc.Nav.DestinationAddress,
		Location:  loc.String(),
	}
	return t.plan(ctx, *tc.Origin, loc, t.searchCity(p, tc), dest)
}

func (t *NavigationTool) plan(ctx context.Context, origin, destLoc domain.LngLat, city string, dest domain.Destination) (any, error) {
	transit, walking := t.routes.Fetch(ctx, origin, destLoc, city)

	nav := &domain.NavigationResult{
		Destination: dest,
		Transit:     transit,
		Walking:     walking,
	}
	content, err := json.Marshal(nav)
	if err != nil {
		return nil, fmt.Errorf("marshal navigation result: %w", err)
	}
	return &domain.ToolResult{
		Content:    string(content),
		Navigation: nav,
	}, nil
}

// searchCity decides the locality constraint: an explicit city wins, an
// explicit empty string means nationwide, an omitted city falls back to
// the turn's city and then the configured default.
func (t *NavigationTool) searchCity(p navigationParams, tc domain.TurnContext) string {
	if p.City != nil {
		return *p.City
	}
	if tc.City != "" {
		return tc.City
	}
	return t.defaultCity
}
