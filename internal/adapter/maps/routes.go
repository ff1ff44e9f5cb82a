package maps

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/tracer"
)

// RouteFetcher plans transit and walking routes between two points.
// The two lookups have no ordering dependency and run concurrently.
type RouteFetcher struct {
	provider Provider
	logger   *slog.Logger
}

// NewRouteFetcher creates a route fetcher over the given provider.
func NewRouteFetcher(provider Provider, logger *slog.Logger) *RouteFetcher {
	return &RouteFetcher{provider: provider, logger: logger}
}

// Fetch returns the transit itinerary and direct walking route between
// origin and dest. Either result may be nil: "no route" is a normal
// outcome, and a fault in one lookup does not suppress the other.
func (f *RouteFetcher) Fetch(ctx context.Context, origin, dest domain.LngLat, city string) (*domain.TransitItinerary, *domain.WalkingLeg) {
	ctx, span := tracer.StartSpan(ctx, "maps.fetch_routes")
	defer span.End()

	var transit *domain.TransitItinerary
	var walking *domain.WalkingLeg

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := f.provider.TransitRoute(gctx, origin, dest, city)
		if err != nil {
			f.logger.Warn("transit route lookup failed", "error", err)
			return nil
		}
		transit = t
		return nil
	})
	g.Go(func() error {
		w, err := f.provider.WalkingRoute(gctx, origin, dest)
		if err != nil {
			f.logger.Warn("walking route lookup failed", "error", err)
			return nil
		}
		walking = w
		return nil
	})
	// Lookup errors are logged in the goroutines; nothing propagates.
	_ = g.Wait()

	tracer.SetOK(span)
	return transit, walking
}
