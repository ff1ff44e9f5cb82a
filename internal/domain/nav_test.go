package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLngLat(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLng float64
		wantLat float64
		wantErr bool
	}{
		{name: "shanghai bund", in: "121.490317,31.236342", wantLng: 121.490317, wantLat: 31.236342},
		{name: "whitespace tolerated", in: " 116.397428, 39.90923 ", wantLng: 116.397428, wantLat: 39.90923},
		{name: "negative lng", in: "-122.4194,37.7749", wantLng: -122.4194, wantLat: 37.7749},
		{name: "missing half", in: "121.49", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "non numeric", in: "lng,lat", wantErr: true},
		{name: "lat out of range", in: "121.49,95.0", wantErr: true},
		{name: "lng out of range", in: "181.0,31.2", wantErr: true},
		{name: "three parts", in: "1,2,3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLngLat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantLng, got.Lng, 1e-9)
			assert.InDelta(t, tt.wantLat, got.Lat, 1e-9)
		})
	}
}

func TestLngLatStringRoundTrip(t *testing.T) {
	loc := LngLat{Lng: 121.473701, Lat: 31.230416}
	parsed, err := ParseLngLat(loc.String())
	require.NoError(t, err)
	assert.InDelta(t, loc.Lng, parsed.Lng, 1e-6)
	assert.InDelta(t, loc.Lat, parsed.Lat, 1e-6)
}

func TestTurnRequestValidate(t *testing.T) {
	valid := TurnRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}}
	require.NoError(t, valid.Validate())

	empty := TurnRequest{}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidInput)

	badRole := TurnRequest{Messages: []Message{{Role: RoleSystem, Content: "x"}}}
	assert.ErrorIs(t, badRole.Validate(), ErrInvalidInput)

	badOrigin := TurnRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Origin:   "31.23,121.47,0",
	}
	assert.Error(t, badOrigin.Validate())

	badNav := TurnRequest{
		Messages:   []Message{{Role: RoleUser, Content: "hi"}},
		NavContext: &NavContext{DestinationLocation: "not-a-coord"},
	}
	assert.Error(t, badNav.Validate())
}

func TestJSONEventOmitsAbsentPayloadKeys(t *testing.T) {
	ev, err := JSONEvent(EventToolData, ToolDataPayload{
		NavigationData: &NavigationResult{
			Destination: Destination{Name: "外滩", Location: "121.490317,31.236342"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, EventToolData, ev.Kind)
	assert.Contains(t, ev.Data, "navigationData")
	assert.NotContains(t, ev.Data, "placesData")
}
