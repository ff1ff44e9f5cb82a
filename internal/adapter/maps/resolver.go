package maps

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/tracer"
)

// Resolver turns free-text place names into coordinates. It tries the
// localized name before the English one and a POI search before a
// geocode, because POI search handles colloquial names ("the Bund")
// far better than a strict geocoder.
type Resolver struct {
	provider Provider
	logger   *slog.Logger
}

// NewResolver creates a place resolver over the given provider.
func NewResolver(provider Provider, logger *slog.Logger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Resolve finds coordinates for a place, trying in order: localized
// POI search, localized geocode, English POI search, English geocode.
// When city is non-empty the candidate must lie within the local
// radius of ref (or of the city's canonical center when ref is nil);
// city == "" means a national search and the first hit wins.
//
// A miss after all four strategies returns (nil, nil), not an error.
func (r *Resolver) Resolve(ctx context.Context, englishName, localizedName, city string, ref *domain.LngLat) (*Place, error) {
	ctx, span := tracer.StartSpan(ctx, "maps.resolve",
		trace.WithAttributes(
			tracer.StringAttr("place.name", englishName),
			tracer.StringAttr("place.city", city),
		),
	)
	defer span.End()

	type strategy struct {
		kind string
		name string
	}
	var strategies []strategy
	if localizedName != "" {
		strategies = append(strategies,
			strategy{"search", localizedName},
			strategy{"geocode", localizedName},
		)
	}
	if englishName != "" {
		strategies = append(strategies,
			strategy{"search", englishName},
			strategy{"geocode", englishName},
		)
	}

	for _, s := range strategies {
		var place *Place
		var err error
		switch s.kind {
		case "search":
			place, err = r.provider.SearchPlace(ctx, s.name, city)
		case "geocode":
			place, err = r.provider.Geocode(ctx, s.name, city)
		}
		if err != nil {
			// Provider faults don't abort the fallback chain; a later
			// strategy may still hit a cached or healthier path.
			r.logger.Warn("resolve strategy failed",
				"strategy", s.kind, "name", s.name, "error", err)
			continue
		}
		if place == nil {
			continue
		}
		if !r.validCandidate(place, city, ref) {
			r.logger.Debug("resolve candidate rejected as non-local",
				"strategy", s.kind, "name", s.name,
				"candidate", place.Location.String(), "city", city)
			continue
		}
		span.SetAttributes(tracer.StringAttr("place.strategy", s.kind+":"+s.name))
		tracer.SetOK(span)
		return place, nil
	}

	return nil, nil
}

// validCandidate rejects candidates that a national geocoder returned
// from a distant city despite a local-city constraint.
func (r *Resolver) validCandidate(place *Place, city string, ref *domain.LngLat) bool {
	if city == "" {
		return true
	}

	anchor := ref
	if anchor == nil {
		if center, ok := CityCenter(city); ok {
			anchor = &center
		}
	}
	if anchor == nil {
		// Unknown city, nothing to measure against.
		return true
	}

	return HaversineDistance(place.Location, *anchor) <= maxLocalRadiusMeters
}
