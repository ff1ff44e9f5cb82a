package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/config"
)

const defaultAmapBaseURL = "https://restapi.amap.com"

// POI type codes used by the Amap place search.
var amapTypeCodes = map[string]string{
	"restaurant": "050000",
	"attraction": "110000",
}

// AmapProvider implements Provider for the Amap (Gaode) REST API.
// Amap already speaks "lng,lat" on the wire, so coordinates pass
// through without reordering. All numeric fields arrive as strings.
type AmapProvider struct {
	key     string
	baseURL string
	client  *Client
	logger  *slog.Logger
}

// NewAmapProvider creates an Amap-backed map provider.
func NewAmapProvider(cfg config.MapsConfig, client *Client, logger *slog.Logger) *AmapProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAmapBaseURL
	}
	return &AmapProvider{
		key:     cfg.APIKey,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

func (p *AmapProvider) Name() string { return "amap" }

// --- wire types ---

type amapGeocodeResponse struct {
	Status   string `json:"status"` // "1" = success
	Info     string `json:"info"`
	Geocodes []struct {
		FormattedAddress string `json:"formatted_address"`
		Location         string `json:"location"` // "lng,lat"
	} `json:"geocodes"`
}

type amapPOI struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Location string `json:"location"`
	Distance string `json:"distance"`
	Type     string `json:"type"`
	BizExt   struct {
		Rating   string `json:"rating"`
		Cost     string `json:"cost"`
		OpenTime string `json:"open_time"`
	} `json:"biz_ext"`
}

type amapPlaceResponse struct {
	Status string    `json:"status"`
	Info   string    `json:"info"`
	POIs   []amapPOI `json:"pois"`
}

type amapTransitResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	Route  struct {
		Transits []amapTransit `json:"transits"`
	} `json:"route"`
}

type amapTransit struct {
	Cost            string            `json:"cost"`
	Duration        string            `json:"duration"` // seconds
	WalkingDistance string            `json:"walking_distance"`
	Segments        []amapTransitStep `json:"segments"`
}

type amapTransitStep struct {
	Walking struct {
		Distance string `json:"distance"`
		Duration string `json:"duration"`
	} `json:"walking"`
	Bus struct {
		Buslines []struct {
			Name          string `json:"name"`
			DepartureStop struct {
				Name string `json:"name"`
			} `json:"departure_stop"`
			ArrivalStop struct {
				Name string `json:"name"`
			} `json:"arrival_stop"`
			ViaNum string `json:"via_num"`
		} `json:"buslines"`
	} `json:"bus"`
}

type amapWalkingResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	Route  struct {
		Paths []struct {
			Distance string `json:"distance"`
			Duration string `json:"duration"` // seconds
		} `json:"paths"`
	} `json:"route"`
}

type amapRegeoResponse struct {
	Status    string `json:"status"`
	Regeocode struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"regeocode"`
}

// --- Provider implementation ---

func (p *AmapProvider) Geocode(ctx context.Context, address, city string) (*Place, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("address", address)
	if city != "" {
		q.Set("city", city)
	}

	var resp amapGeocodeResponse
	if err := p.get(ctx, "/v3/geocode/geo", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" || len(resp.Geocodes) == 0 {
		return nil, nil
	}

	g := resp.Geocodes[0]
	loc, err := domain.ParseLngLat(g.Location)
	if err != nil {
		return nil, fmt.Errorf("amap geocode location: %w", err)
	}
	return &Place{
		Name:     address,
		Address:  g.FormattedAddress,
		Location: loc,
	}, nil
}

func (p *AmapProvider) SearchPlace(ctx context.Context, keyword, city string) (*Place, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("keywords", keyword)
	q.Set("offset", "1")
	if city != "" {
		q.Set("city", city)
		q.Set("citylimit", "true")
	}

	var resp amapPlaceResponse
	if err := p.get(ctx, "/v3/place/text", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" || len(resp.POIs) == 0 {
		return nil, nil
	}

	poi := resp.POIs[0]
	loc, err := domain.ParseLngLat(poi.Location)
	if err != nil {
		return nil, fmt.Errorf("amap poi location: %w", err)
	}
	return &Place{
		Name:     poi.Name,
		Address:  poi.Address,
		Location: loc,
	}, nil
}

func (p *AmapProvider) SearchNearby(ctx context.Context, query NearbyQuery) ([]domain.PlaceResult, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("location", query.Location.String())
	q.Set("radius", strconv.Itoa(query.Radius))
	q.Set("offset", "10")
	q.Set("sortrule", "distance")
	if code, ok := amapTypeCodes[query.Type]; ok {
		q.Set("types", code)
	}
	if query.Keyword != "" {
		q.Set("keywords", query.Keyword)
	}

	var resp amapPlaceResponse
	if err := p.get(ctx, "/v3/place/around", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" {
		return nil, nil
	}

	results := make([]domain.PlaceResult, 0, len(resp.POIs))
	for _, poi := range resp.POIs {
		loc, err := domain.ParseLngLat(poi.Location)
		if err != nil {
			continue
		}
		results = append(results, domain.PlaceResult{
			Name:         poi.Name,
			Address:      poi.Address,
			Location:     loc.String(),
			Distance:     atoi(poi.Distance),
			Type:         lastTypeSegment(poi.Type),
			Rating:       poi.BizExt.Rating,
			OpeningHours: poi.BizExt.OpenTime,
			Cost:         formatAmapCost(poi.BizExt.Cost),
		})
	}
	return results, nil
}

func (p *AmapProvider) TransitRoute(ctx context.Context, origin, dest domain.LngLat, city string) (*domain.TransitItinerary, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("origin", origin.String())
	q.Set("destination", dest.String())
	if city != "" {
		q.Set("city", city)
	}

	var resp amapTransitResponse
	if err := p.get(ctx, "/v3/direction/transit/integrated", q, false, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" || len(resp.Route.Transits) == 0 {
		return nil, nil
	}
	return parseAmapTransit(resp.Route.Transits[0]), nil
}

// parseAmapTransit flattens the best Amap transit plan into segments.
// Walk legs are kept only when they cover positive distance; a
// transfer is counted for each transit leg after the first.
func parseAmapTransit(t amapTransit) *domain.TransitItinerary {
	itin := &domain.TransitItinerary{
		Duration:        secondsToMinutes(atoi(t.Duration)),
		Cost:            formatAmapCost(t.Cost),
		WalkingDistance: atoi(t.WalkingDistance),
	}

	transitLegs := 0
	for _, seg := range t.Segments {
		if d := atoi(seg.Walking.Distance); d > 0 {
			itin.Segments = append(itin.Segments, domain.TransitSegment{
				Mode:     "walk",
				Distance: d,
			})
		}
		for _, line := range seg.Bus.Buslines {
			transitLegs++
			if transitLegs > 1 {
				itin.TransferCount++
			}
			itin.Segments = append(itin.Segments, domain.TransitSegment{
				Mode:  "transit",
				Name:  line.Name,
				Stops: atoi(line.ViaNum),
				From:  line.DepartureStop.Name,
				To:    line.ArrivalStop.Name,
			})
		}
	}
	return itin
}

func (p *AmapProvider) WalkingRoute(ctx context.Context, origin, dest domain.LngLat) (*domain.WalkingLeg, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("origin", origin.String())
	q.Set("destination", dest.String())

	var resp amapWalkingResponse
	if err := p.get(ctx, "/v3/direction/walking", q, false, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "1" || len(resp.Route.Paths) == 0 {
		return nil, nil
	}

	path := resp.Route.Paths[0]
	return &domain.WalkingLeg{
		Duration: secondsToMinutes(atoi(path.Duration)),
		Distance: atoi(path.Distance),
	}, nil
}

func (p *AmapProvider) ReverseGeocode(ctx context.Context, loc domain.LngLat) (string, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("location", loc.String())

	var resp amapRegeoResponse
	if err := p.get(ctx, "/v3/geocode/regeo", q, true, &resp); err != nil {
		return "", err
	}
	if resp.Status != "1" {
		return "", nil
	}
	return resp.Regeocode.FormattedAddress, nil
}

func (p *AmapProvider) get(ctx context.Context, path string, q url.Values, cacheable bool, out any) error {
	body, err := p.client.Get(ctx, p.baseURL+path+"?"+q.Encode(), cacheable)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("amap response: %w", err)
	}
	return nil
}

// --- parsing helpers ---

// atoi parses a numeric field that Amap serializes as a string.
// Empty, "[]" and malformed values collapse to 0.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// secondsToMinutes converts a provider duration to whole minutes.
func secondsToMinutes(sec int) int {
	return int(math.Round(float64(sec) / 60.0))
}

// formatAmapCost renders an Amap fare or average cost. Amap supplies
// a bare number with no currency, so the yuan sign is a fixed guess.
func formatAmapCost(cost string) string {
	cost = strings.TrimSpace(cost)
	if cost == "" || cost == "[]" {
		return "未知"
	}
	return "¥" + strings.TrimSuffix(cost, ".0")
}

// lastTypeSegment reduces Amap's "大类;中类;小类" POI type chain to its
// most specific segment.
func lastTypeSegment(t string) string {
	parts := strings.Split(t, ";")
	if len(parts) == 0 {
		return t
	}
	return strings.TrimSpace(parts[len(parts)-1])
}
