package maps

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"tripmate-ai/internal/domain"
	"tripmate-ai/internal/infra/config"
)

const (
	clientUserAgent = "tripmate-ai/1.0"
	maxMapBody      = 2 * 1024 * 1024 // 2 MB
)

// Client is the shared rate-limited HTTP client for map providers.
// Geocode and search responses are cached; routing responses are not
// (route results depend on time of day).
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	cache   *expirable.LRU[string, []byte]
	logger  *slog.Logger
}

// NewClient builds a map API client from config.
func NewClient(cfg config.MapsConfig, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RateBurst),
		cache:   expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:  logger,
	}
}

// Get performs a rate-limited GET and returns the response body.
// When cacheable is true, responses are served from and stored into
// the LRU keyed by the full URL.
func (c *Client) Get(ctx context.Context, url string, cacheable bool) ([]byte, error) {
	if cacheable {
		if body, ok := c.cache.Get(url); ok {
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", clientUserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMapBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: map API status %d", domain.ErrProviderError, resp.StatusCode)
	}

	if cacheable {
		c.cache.Add(url, body)
	}
	return body, nil
}
