// Package mapbox resolves places with the Mapbox forward geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/couchcryptid/travel-score/internal/observability"
)

const (
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	providerName   = "mapbox"
)

// Client implements domain.Resolver using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. A zero timeout disables the
// request deadline.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

// Resolve converts "{city}, {country}" to the best matching place coordinate.
func (c *Client) Resolve(ctx context.Context, key domain.Key) (domain.Coordinate, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(key.Query()))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality"},
	}

	start := domain.Now()
	coord, outcome, err := c.doRequest(ctx, u+"?"+params.Encode())
	elapsed := domain.Since(start)

	c.metrics.ResolverRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ResolverDuration.WithLabelValues(providerName).Observe(elapsed.Seconds())
	c.logger.Debug("mapbox forward geocode", "query", key.Query(), "outcome", outcome, "duration", elapsed)

	return coord, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinate, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Coordinate{}, "error", fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.Coordinate{}, "no_match", domain.ErrNoMatch
	}

	f := mapboxResp.Features[0]
	if len(f.Center) != 2 {
		return domain.Coordinate{}, "error", fmt.Errorf("feature %q has no center", f.PlaceName)
	}
	// Mapbox uses lon,lat order.
	return domain.Coordinate{Lat: f.Center[1], Lon: f.Center[0]}, "success", nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
