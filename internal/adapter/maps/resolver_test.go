package maps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmate-ai/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider scripts Geocode/SearchPlace responses and records the
// order of lookups.
type fakeProvider struct {
	searchResults  map[string]*Place
	geocodeResults map[string]*Place
	searchErr      error
	calls          []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SearchPlace(_ context.Context, keyword, _ string) (*Place, error) {
	f.calls = append(f.calls, "search:"+keyword)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults[keyword], nil
}

func (f *fakeProvider) Geocode(_ context.Context, address, _ string) (*Place, error) {
	f.calls = append(f.calls, "geocode:"+address)
	return f.geocodeResults[address], nil
}

func (f *fakeProvider) SearchNearby(context.Context, NearbyQuery) ([]domain.PlaceResult, error) {
	return nil, nil
}

func (f *fakeProvider) TransitRoute(context.Context, domain.LngLat, domain.LngLat, string) (*domain.TransitItinerary, error) {
	return nil, nil
}

func (f *fakeProvider) WalkingRoute(context.Context, domain.LngLat, domain.LngLat) (*domain.WalkingLeg, error) {
	return nil, nil
}

func (f *fakeProvider) ReverseGeocode(context.Context, domain.LngLat) (string, error) {
	return "", nil
}

var bundLocation = domain.LngLat{Lng: 121.490317, Lat: 31.236342}

func TestResolveLocalizedSearchWinsFirst(t *testing.T) {
	fake := &fakeProvider{
		searchResults: map[string]*Place{
			"外滩": {Name: "外滩", Location: bundLocation},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "The Bund", "外滩", "上海", nil)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "外滩", place.Name)
	assert.Equal(t, []string{"search:外滩"}, fake.calls)
}

func TestResolveFallbackOrder(t *testing.T) {
	// Only the final strategy (English geocode) produces a hit.
	fake := &fakeProvider{
		geocodeResults: map[string]*Place{
			"The Bund": {Name: "The Bund", Location: bundLocation},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "The Bund", "外滩", "上海", nil)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, []string{
		"search:外滩", "geocode:外滩", "search:The Bund", "geocode:The Bund",
	}, fake.calls)
}

func TestResolveAllStrategiesMissReturnsNotFound(t *testing.T) {
	fake := &fakeProvider{}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "Some Obscure Place", "", "上海", nil)
	require.NoError(t, err)
	assert.Nil(t, place)
	assert.Len(t, fake.calls, 2) // no localized name, so only two strategies
}

func TestResolveRejectsDistantCandidateWithCityConstraint(t *testing.T) {
	// Candidate ~1000 km from Shanghai even though the provider
	// reported success.
	beijing := domain.LngLat{Lng: 116.407526, Lat: 39.904030}
	fake := &fakeProvider{
		searchResults: map[string]*Place{
			"鼓楼": {Name: "鼓楼", Location: beijing},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "Drum Tower", "鼓楼", "上海", nil)
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestResolveAcceptsDistantCandidateWithoutCityConstraint(t *testing.T) {
	beijing := domain.LngLat{Lng: 116.407526, Lat: 39.904030}
	fake := &fakeProvider{
		searchResults: map[string]*Place{
			"鼓楼": {Name: "鼓楼", Location: beijing},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "Drum Tower", "鼓楼", "", nil)
	require.NoError(t, err)
	require.NotNil(t, place)
}

func TestResolveUsesReferenceLocationOverCityCenter(t *testing.T) {
	// The candidate is near the reference point but far from the
	// Shanghai center lookup table entry; the reference wins.
	ref := domain.LngLat{Lng: 116.40, Lat: 39.90}
	candidate := domain.LngLat{Lng: 116.41, Lat: 39.91}
	fake := &fakeProvider{
		searchResults: map[string]*Place{
			"某地": {Name: "某地", Location: candidate},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "somewhere", "某地", "上海", &ref)
	require.NoError(t, err)
	require.NotNil(t, place)
}

func TestResolveSkipsFailingStrategy(t *testing.T) {
	fake := &fakeProvider{
		searchErr: fmt.Errorf("upstream down"),
		geocodeResults: map[string]*Place{
			"外滩": {Name: "外滩", Location: bundLocation},
		},
	}
	r := NewResolver(fake, testLogger())

	place, err := r.Resolve(context.Background(), "The Bund", "外滩", "上海", nil)
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "外滩", place.Name)
}

func TestHaversineDistance(t *testing.T) {
	shanghai := domain.LngLat{Lng: 121.473701, Lat: 31.230416}
	beijing := domain.LngLat{Lng: 116.407526, Lat: 39.904030}

	d := HaversineDistance(shanghai, beijing)
	// ~1070 km as the crow flies.
	assert.InDelta(t, 1_070_000, d, 20_000)

	assert.Zero(t, HaversineDistance(shanghai, shanghai))
}
