// Package geocoding validates location lookups and classifies provider
// failures for the HTTP layer.
package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang/geo/s2"

	"github.com/couchcryptid/issue-report-service/internal/domain"
)

// Place is a forward-geocoded location. Name echoes the caller's query.
type Place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Gateway runs lookups against a provider with a per-request timeout.
type Gateway struct {
	geocoder domain.Geocoder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGateway returns a gateway over geocoder. A nil geocoder makes every
// lookup fail with ErrUpstream.
func NewGateway(geocoder domain.Geocoder, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{geocoder: geocoder, timeout: timeout, logger: logger}
}

// Reverse returns the address nearest to the given WGS-84 coordinates.
func (g *Gateway) Reverse(ctx context.Context, lat, lon *float64) (string, error) {
	if lat == nil || lon == nil {
		return "", fmt.Errorf("%w: latitude and longitude are required", domain.ErrValidation)
	}
	if !s2.LatLngFromDegrees(*lat, *lon).IsValid() {
		return "", fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}
	if g.geocoder == nil {
		return "", fmt.Errorf("%w: geocoding is disabled", domain.ErrUpstream)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.geocoder.ReverseGeocode(ctx, *lat, *lon)
	if err != nil {
		g.logger.WarnContext(ctx, "reverse geocode failed", "lat", *lat, "lon", *lon, "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	if result.Empty() {
		return "", fmt.Errorf("%w: unable to get address", domain.ErrResolutionFailed)
	}
	return result.FormattedAddress, nil
}

// Forward resolves a place name to coordinates.
func (g *Gateway) Forward(ctx context.Context, name string) (Place, error) {
	if strings.TrimSpace(name) == "" {
		return Place{}, fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	if g.geocoder == nil {
		return Place{}, fmt.Errorf("%w: geocoding is disabled", domain.ErrUpstream)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.geocoder.ForwardGeocode(ctx, name)
	if err != nil {
		g.logger.WarnContext(ctx, "forward geocode failed", "query", name, "error", err)
		return Place{}, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	if result.Empty() {
		return Place{}, fmt.Errorf("%w: invalid location", domain.ErrResolutionFailed)
	}
	return Place{Name: name, Latitude: result.Lat, Longitude: result.Lon}, nil
}
