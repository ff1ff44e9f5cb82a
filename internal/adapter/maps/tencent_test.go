package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/config"
)

func newTencentTest(t *testing.T, handler http.HandlerFunc) *TencentProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.MapsConfig{
		Provider:   "tencent",
		APIKey:     "test-key",
		BaseURL:    server.URL,
		RatePerSec: 1000,
		RateBurst:  100,
		CacheSize:  16,
		CacheTTL:   time.Minute,
	}
	return NewTencentProvider(cfg, NewClient(cfg, testLogger()), testLogger())
}

func TestTencentGeocodeReordersCoordinates(t *testing.T) {
	p := newTencentTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/geocoder/v1/", r.URL.Path)
		fmt.Fprint(w, `{"status":0,"result":{"title":"外滩","address":"上海市黄浦区中山东一路","location":{"lat":31.236342,"lng":121.490317}}}`)
	})

	place, err := p.Geocode(context.Background(), "外滩", "上海")
	require.NoError(t, err)
	require.NotNil(t, place)
	// Canonical order is lng,lat regardless of the wire format.
	assert.Equal(t, "121.490317,31.236342", place.Location.String())
}

func TestTencentTransitRequestUsesLatLngOrder(t *testing.T) {
	p := newTencentTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "31.240000,121.490000", r.URL.Query().Get("from"))
		fmt.Fprint(w, `{"status":0,"result":{"routes":[]}}`)
	})

	itin, err := p.TransitRoute(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.24}, domain.LngLat{Lng: 121.45, Lat: 31.21}, "上海")
	require.NoError(t, err)
	assert.Nil(t, itin)
}

func TestTencentTransitParsingPreservesProviderFare(t *testing.T) {
	p := newTencentTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0,"result":{"routes":[{
			"duration":42,
			"steps":[
				{"mode":"WALKING","distance":400},
				{"mode":"TRANSIT","lines":[{"title":"地铁10号线","price":"3元起","station_count":4,"geton":{"title":"豫园"},"getoff":{"title":"虹桥路"}}]},
				{"mode":"WALKING","distance":0},
				{"mode":"TRANSIT","lines":[{"title":"地铁3号线","station_count":2,"geton":{"title":"虹桥路"},"getoff":{"title":"中山公园"}}]}
			]}]}}`)
	})

	itin, err := p.TransitRoute(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.22}, domain.LngLat{Lng: 121.42, Lat: 31.22}, "上海")
	require.NoError(t, err)
	require.NotNil(t, itin)

	// Tencent durations are already minutes; no conversion applied.
	assert.Equal(t, 42, itin.Duration)
	// Provider-supplied fare text is preserved verbatim.
	assert.Equal(t, "3元起", itin.Cost)
	assert.Equal(t, 400, itin.WalkingDistance)
	assert.Equal(t, 1, itin.TransferCount)
	require.Len(t, itin.Segments, 3) // zero-distance walk dropped
	assert.Equal(t, "地铁10号线", itin.Segments[1].Name)
}

func TestTencentTransitFarePlaceholderWhenAbsent(t *testing.T) {
	p := newTencentTest(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":0,"result":{"routes":[{
			"duration":10,
			"steps":[{"mode":"TRANSIT","lines":[{"title":"公交71路","station_count":3,"geton":{"title":"a"},"getoff":{"title":"b"}}]}]
		}]}}`)
	})

	itin, err := p.TransitRoute(context.Background(),
		domain.LngLat{Lng: 121.49, Lat: 31.22}, domain.LngLat{Lng: 121.42, Lat: 31.22}, "")
	require.NoError(t, err)
	require.NotNil(t, itin)
	assert.Equal(t, "未提供", itin.Cost)
}

func TestTencentSearchNearbyFallsBackToCategoryKeyword(t *testing.T) {
	p := newTencentTest(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "美食", r.URL.Query().Get("keyword"))
		fmt.Fprint(w, `{"status":0,"data":[{"title":"老吉士","address":"天平路41号","category":"美食:本帮菜","_distance":220.5,"location":{"lat":31.208,"lng":121.435}}]}`)
	})

	results, err := p.SearchNearby(context.Background(), NearbyQuery{
		Type:     "restaurant",
		Location: domain.LngLat{Lng: 121.44, Lat: 31.21},
		Radius:   1000,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "老吉士", results[0].Name)
	assert.Equal(t, 220, results[0].Distance)
	assert.Equal(t, "121.435000,31.208000", results[0].Location)
}
