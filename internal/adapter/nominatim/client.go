// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim API.
//
// Nominatim's usage policy requires an identifying User-Agent and at most one
// request per second; the client enforces both.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

const (
	// DefaultBaseURL is the public Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	minRequestInterval = time.Second
)

// Client implements domain.Geocoder using Nominatim.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client limited to one request per second.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(minRequestInterval), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a free-text place name to its best match.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"limit":           {"1"},
		"accept-language": {"en"},
	}

	var places []place
	if err := c.doRequest(ctx, "/search", params, "forward", &places); err != nil {
		return domain.GeocodingResult{}, err
	}
	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("forward", "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("forward", "success").Inc()
	return places[0].toResult()
}

// ReverseGeocode resolves coordinates to the nearest address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	params := url.Values{
		"lat":             {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":             {strconv.FormatFloat(lon, 'f', 6, 64)},
		"format":          {"jsonv2"},
		"accept-language": {"en"},
	}

	var p place
	if err := c.doRequest(ctx, "/reverse", params, "reverse", &p); err != nil {
		return domain.GeocodingResult{}, err
	}
	// Nominatim answers 200 with an error field when nothing is nearby.
	if p.Error != "" || p.DisplayName == "" {
		c.metrics.GeocodeRequests.WithLabelValues("reverse", "empty").Inc()
		return domain.GeocodingResult{}, nil
	}
	c.metrics.GeocodeRequests.WithLabelValues("reverse", "success").Inc()
	return p.toResult()
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, method string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s geocode rate limit: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		c.logger.Warn("nominatim request failed", "method", method, "status", resp.StatusCode)
		return fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Nominatim API response types.

type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Importance  float64 `json:"importance"`
	Error       string  `json:"error"`
}

func (p place) toResult() (domain.GeocodingResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.GeocodingResult{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: p.DisplayName,
		PlaceName:        p.Name,
		Confidence:       p.Importance,
	}, nil
}
