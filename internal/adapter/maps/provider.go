// Package maps adapts external mapping backends behind a single
// Provider interface. Two variants exist (Amap and Tencent); both
// speak the canonical "lng,lat" coordinate convention at the boundary
// regardless of the wire format the backend uses.
package maps

import (
	"context"

	"tripmate-ai/internal/domain"
)

// Place is a single resolved or searched location.
type Place struct {
	Name     string
	Address  string
	Location domain.LngLat
	Distance int // meters from the search origin, when known
}

// NearbyQuery describes a nearby-places search.
type NearbyQuery struct {
	Type     string // "restaurant", "attraction" or "general"
	Keyword  string
	Location domain.LngLat
	Radius   int // meters
	City     string
}

// Provider is a mapping backend. All lookups are best effort: a miss
// is reported as (nil, nil) or (zero, nil), never as an error. Errors
// are reserved for transport and provider faults.
type Provider interface {
	// Geocode resolves a free-text address to a place. City narrows
	// the search when non-empty.
	Geocode(ctx context.Context, address, city string) (*Place, error)
	// SearchPlace runs a keyword/POI search and returns the best match.
	SearchPlace(ctx context.Context, keyword, city string) (*Place, error)
	// SearchNearby returns points of interest around a location.
	SearchNearby(ctx context.Context, q NearbyQuery) ([]domain.PlaceResult, error)
	// TransitRoute plans a public-transport itinerary.
	TransitRoute(ctx context.Context, origin, dest domain.LngLat, city string) (*domain.TransitItinerary, error)
	// WalkingRoute plans a direct walking route.
	WalkingRoute(ctx context.Context, origin, dest domain.LngLat) (*domain.WalkingLeg, error)
	// ReverseGeocode names the location, best effort ("" on miss).
	ReverseGeocode(ctx context.Context, loc domain.LngLat) (string, error)
	Name() string
}
