package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/config"
)

const defaultTencentBaseURL = "https://apis.map.qq.com"

// Category filters for the Tencent place search.
var tencentCategories = map[string]string{
	"restaurant": "美食",
	"attraction": "旅游景点",
}

// TencentProvider implements Provider for the Tencent (QQ) LBS API.
// Tencent puts latitude first both in location objects and in "lat,lng"
// request strings, so every coordinate is reordered at this boundary;
// the rest of the system only ever sees "lng,lat".
type TencentProvider struct {
	key     string
	baseURL string
	client  *Client
	logger  *slog.Logger
}

// NewTencentProvider creates a Tencent-backed map provider.
func NewTencentProvider(cfg config.MapsConfig, client *Client, logger *slog.Logger) *TencentProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTencentBaseURL
	}
	return &TencentProvider{
		key:     cfg.APIKey,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

func (p *TencentProvider) Name() string { return "tencent" }

// --- wire types ---

type tencentLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l tencentLocation) lngLat() domain.LngLat {
	return domain.LngLat{Lng: l.Lng, Lat: l.Lat}
}

// latLngParam renders a coordinate in Tencent's "lat,lng" request order.
func latLngParam(l domain.LngLat) string {
	return strconv.FormatFloat(l.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(l.Lng, 'f', 6, 64)
}

type tencentGeocodeResponse struct {
	Status int `json:"status"` // 0 = success
	Result struct {
		Title    string          `json:"title"`
		Address  string          `json:"address"`
		Location tencentLocation `json:"location"`
	} `json:"result"`
}

type tencentSearchResponse struct {
	Status int `json:"status"`
	Data   []struct {
		Title    string          `json:"title"`
		Address  string          `json:"address"`
		Category string          `json:"category"`
		Distance float64         `json:"_distance"`
		Location tencentLocation `json:"location"`
	} `json:"data"`
}

type tencentTransitResponse struct {
	Status int `json:"status"`
	Result struct {
		Routes []tencentTransitRoute `json:"routes"`
	} `json:"result"`
}

type tencentTransitRoute struct {
	Duration int `json:"duration"` // minutes, unlike Amap
	Steps    []struct {
		Mode     string `json:"mode"` // "WALKING" or "TRANSIT"
		Distance int    `json:"distance"`
		Lines    []struct {
			Title        string          `json:"title"`
			Price        json.RawMessage `json:"price"` // provider-formatted, shape varies
			StationCount int             `json:"station_count"`
			GetOn        struct {
				Title string `json:"title"`
			} `json:"geton"`
			GetOff struct {
				Title string `json:"title"`
			} `json:"getoff"`
		} `json:"lines"`
	} `json:"steps"`
}

type tencentWalkingResponse struct {
	Status int `json:"status"`
	Result struct {
		Routes []struct {
			Distance int `json:"distance"`
			Duration int `json:"duration"` // minutes
		} `json:"routes"`
	} `json:"result"`
}

type tencentRegeoResponse struct {
	Status int `json:"status"`
	Result struct {
		Address string `json:"address"`
	} `json:"result"`
}

// --- Provider implementation ---

func (p *TencentProvider) Geocode(ctx context.Context, address, city string) (*Place, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("address", address)
	if city != "" {
		q.Set("region", city)
	}

	var resp tencentGeocodeResponse
	if err := p.get(ctx, "/ws/geocoder/v1/", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 {
		return nil, nil
	}

	name := resp.Result.Title
	if name == "" {
		name = address
	}
	return &Place{
		Name:     name,
		Address:  resp.Result.Address,
		Location: resp.Result.Location.lngLat(),
	}, nil
}

func (p *TencentProvider) SearchPlace(ctx context.Context, keyword, city string) (*Place, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("keyword", keyword)
	q.Set("page_size", "1")
	if city != "" {
		q.Set("boundary", fmt.Sprintf("region(%s,0)", city))
	} else {
		q.Set("boundary", "region(全国,0)")
	}

	var resp tencentSearchResponse
	if err := p.get(ctx, "/ws/place/v1/search", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 || len(resp.Data) == 0 {
		return nil, nil
	}

	d := resp.Data[0]
	return &Place{
		Name:     d.Title,
		Address:  d.Address,
		Location: d.Location.lngLat(),
		Distance: int(d.Distance),
	}, nil
}

func (p *TencentProvider) SearchNearby(ctx context.Context, query NearbyQuery) ([]domain.PlaceResult, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("boundary", fmt.Sprintf("nearby(%s,%d)", latLngParam(query.Location), query.Radius))
	q.Set("page_size", "10")
	q.Set("orderby", "_distance")
	keyword := query.Keyword
	if keyword == "" {
		keyword = tencentCategories[query.Type]
	}
	if keyword != "" {
		q.Set("keyword", keyword)
	}

	var resp tencentSearchResponse
	if err := p.get(ctx, "/ws/place/v1/search", q, true, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 {
		return nil, nil
	}

	results := make([]domain.PlaceResult, 0, len(resp.Data))
	for _, d := range resp.Data {
		results = append(results, domain.PlaceResult{
			Name:     d.Title,
			Address:  d.Address,
			Location: d.Location.lngLat().String(),
			Distance: int(d.Distance),
			Type:     d.Category,
		})
	}
	return results, nil
}

func (p *TencentProvider) TransitRoute(ctx context.Context, origin, dest domain.LngLat, city string) (*domain.TransitItinerary, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("from", latLngParam(origin))
	q.Set("to", latLngParam(dest))

	var resp tencentTransitResponse
	if err := p.get(ctx, "/ws/direction/v1/transit/", q, false, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 || len(resp.Result.Routes) == 0 {
		return nil, nil
	}
	return parseTencentTransit(resp.Result.Routes[0]), nil
}

// parseTencentTransit flattens a Tencent transit route. Durations are
// already minutes; fare text is passed through as the provider
// formatted it, with a placeholder when missing (no unit guessing).
func parseTencentTransit(r tencentTransitRoute) *domain.TransitItinerary {
	itin := &domain.TransitItinerary{
		Duration: r.Duration,
		Cost:     "未提供",
	}

	transitLegs := 0
	for _, step := range r.Steps {
		switch step.Mode {
		case "WALKING":
			if step.Distance > 0 {
				itin.WalkingDistance += step.Distance
				itin.Segments = append(itin.Segments, domain.TransitSegment{
					Mode:     "walk",
					Distance: step.Distance,
				})
			}
		case "TRANSIT":
			for _, line := range step.Lines {
				transitLegs++
				if transitLegs > 1 {
					itin.TransferCount++
				}
				if fare := tencentFareText(line.Price); fare != "" && itin.Cost == "未提供" {
					itin.Cost = fare
				}
				itin.Segments = append(itin.Segments, domain.TransitSegment{
					Mode:  "transit",
					Name:  line.Title,
					Stops: line.StationCount,
					From:  line.GetOn.Title,
					To:    line.GetOff.Title,
				})
			}
		}
	}
	return itin
}

// tencentFareText extracts the provider-supplied fare, which arrives
// either as a quoted string or a bare number depending on line type.
func tencentFareText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f > 0 {
		return strconv.FormatFloat(f, 'f', -1, 64) + "元"
	}
	return ""
}

func (p *TencentProvider) WalkingRoute(ctx context.Context, origin, dest domain.LngLat) (*domain.WalkingLeg, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("from", latLngParam(origin))
	q.Set("to", latLngParam(dest))

	var resp tencentWalkingResponse
	if err := p.get(ctx, "/ws/direction/v1/walking/", q, false, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 0 || len(resp.Result.Routes) == 0 {
		return nil, nil
	}

	route := resp.Result.Routes[0]
	return &domain.WalkingLeg{
		Duration: route.Duration,
		Distance: route.Distance,
	}, nil
}

func (p *TencentProvider) ReverseGeocode(ctx context.Context, loc domain.LngLat) (string, error) {
	q := url.Values{}
	q.Set("key", p.key)
	q.Set("location", latLngParam(loc))

	var resp tencentRegeoResponse
	if err := p.get(ctx, "/ws/geocoder/v1/", q, true, &resp); err != nil {
		return "", err
	}
	if resp.Status != 0 {
		return "", nil
	}
	return resp.Result.Address, nil
}

func (p *TencentProvider) get(ctx context.Context, path string, q url.Values, cacheable bool, out any) error {
	body, err := p.client.Get(ctx, p.baseURL+path+"?"+q.Encode(), cacheable)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tencent response: %w", err)
	}
	return nil
}
