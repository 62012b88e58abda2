package geocache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.forwardCalls++
	return m.result, m.err
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

func TestCachedGeocoder_ForwardCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{Lat: 48.8566, Lon: 2.3522, FormattedAddress: "Paris, France"},
	}
	metrics := observability.NewMetricsForTesting()
	cached := New(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), "Paris")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "  paris ")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.forwardCalls, "normalized queries share an entry")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("forward", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("forward", "miss")), 0)
}

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "City Hall"}}
	cached := New(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls)
}

func TestCachedGeocoder_EmptyResultsAreNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := New(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "nowhere")
	_, _ = cached.ForwardGeocode(context.Background(), "nowhere")

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedGeocoder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := New(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.ReverseGeocode(context.Background(), 1, 2)
	require.Error(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 1, 2)
	require.Error(t, err)

	assert.Equal(t, 2, inner.reverseCalls)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	c.get("a")
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A1"})
	c.put("a", domain.GeocodingResult{PlaceName: "A2"})

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", result.PlaceName)
	assert.Equal(t, 1, c.size())
}
