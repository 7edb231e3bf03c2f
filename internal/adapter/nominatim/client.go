// Package nominatim resolves places with the OpenStreetMap Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/travel-score/internal/domain"
	"github.com/couchcryptid/travel-score/internal/observability"
)

const (
	// DefaultBaseURL is the public OpenStreetMap instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifies the application when GEOLOCATOR_USER_AGENT is unset.
	DefaultUserAgent = "travel_score_app"

	providerName = "nominatim"
)

// Client implements domain.Resolver using the Nominatim /search endpoint.
type Client struct {
	userAgent  string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. A zero timeout disables the request
// deadline. The usage policy of the public instance requires a meaningful
// User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Name identifies the provider.
func (c *Client) Name() string {
	return providerName
}

// Resolve searches for "{city}, {country}" and returns the best match.
func (c *Client) Resolve(ctx context.Context, key domain.Key) (domain.Coordinate, error) {
	params := url.Values{
		"q":      {key.Query()},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	start := domain.Now()
	coord, outcome, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
	elapsed := domain.Since(start)

	c.metrics.ResolverRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ResolverDuration.WithLabelValues(providerName).Observe(elapsed.Seconds())
	c.logger.Debug("nominatim search", "query", key.Query(), "outcome", outcome, "duration", elapsed)

	return coord, err
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinate, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Coordinate{}, "error", fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.Coordinate{}, "error", fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		return domain.Coordinate{}, "no_match", domain.ErrNoMatch
	}

	coord, err := places[0].coordinate()
	if err != nil {
		return domain.Coordinate{}, "error", err
	}
	return coord, "success", nil
}

// Nominatim API response types. Coordinates are encoded as strings.

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p place) coordinate() (domain.Coordinate, error) {
	lat, err := parseDegrees(p.Lat)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse latitude %q: %w", p.Lat, err)
	}
	lon, err := parseDegrees(p.Lon)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse longitude %q: %w", p.Lon, err)
	}
	return domain.Coordinate{Lat: lat, Lon: lon}, nil
}

func parseDegrees(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
