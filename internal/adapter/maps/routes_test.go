package maps

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmate-ai/internal/domain"
)

// routeProvider scripts TransitRoute/WalkingRoute for RouteFetcher tests.
type routeProvider struct {
	fakeProvider
	transit    *domain.TransitItinerary
	transitErr error
	walking    *domain.WalkingLeg
	walkingErr error
}

func (r *routeProvider) TransitRoute(context.Context, domain.LngLat, domain.LngLat, string) (*domain.TransitItinerary, error) {
	return r.transit, r.transitErr
}

func (r *routeProvider) WalkingRoute(context.Context, domain.LngLat, domain.LngLat) (*domain.WalkingLeg, error) {
	return r.walking, r.walkingErr
}

func TestRouteFetcherReturnsBoth(t *testing.T) {
	p := &routeProvider{
		transit: &domain.TransitItinerary{Duration: 25, TransferCount: 1},
		walking: &domain.WalkingLeg{Duration: 40, Distance: 3200},
	}
	f := NewRouteFetcher(p, testLogger())

	transit, walking := f.Fetch(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.24}, domain.LngLat{Lng: 121.45, Lat: 31.21}, "上海")
	require.NotNil(t, transit)
	require.NotNil(t, walking)
	assert.Equal(t, 25, transit.Duration)
	assert.Equal(t, 3200, walking.Distance)
}

func TestRouteFetcherNoRouteIsNotAFault(t *testing.T) {
	f := NewRouteFetcher(&routeProvider{}, testLogger())

	transit, walking := f.Fetch(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.24}, domain.LngLat{Lng: 121.45, Lat: 31.21}, "上海")
	assert.Nil(t, transit)
	assert.Nil(t, walking)
}

func TestRouteFetcherOneFailureDoesNotSuppressTheOther(t *testing.T) {
	p := &routeProvider{
		transitErr: fmt.Errorf("upstream 502"),
		walking:    &domain.WalkingLeg{Duration: 12, Distance: 900},
	}
	f := NewRouteFetcher(p, testLogger())

	transit, walking := f.Fetch(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.24}, domain.LngLat{Lng: 121.45, Lat: 31.21}, "")
	assert.Nil(t, transit)
	require.NotNil(t, walking)
	assert.Equal(t, 900, walking.Distance)
}
