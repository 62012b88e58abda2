package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/issue-report-service/internal/observability"
)

const (
	testUserAgent     = "issue-report-service-test"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  testUserAgent,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Central Park, New York", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"lat":"40.7827","lon":"-73.9654","display_name":"Central Park, Manhattan, New York","name":"Central Park","importance":0.8}]`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Central Park, New York")
	require.NoError(t, err)

	assert.Equal(t, 40.7827, result.Lat)
	assert.Equal(t, -73.9654, result.Lon)
	assert.Equal(t, "Central Park, Manhattan, New York", result.FormattedAddress)
	assert.Equal(t, "Central Park", result.PlaceName)
	assert.Equal(t, 0.8, result.Confidence)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Nowhere at all")
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "40.712800", r.URL.Query().Get("lat"))
		assert.Equal(t, "-74.006000", r.URL.Query().Get("lon"))
		assert.Equal(t, "en", r.URL.Query().Get("accept-language"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"lat":"40.7128","lon":"-74.0060","display_name":"City Hall, New York, United States","name":"City Hall"}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ReverseGeocode(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)
	assert.Equal(t, "City Hall, New York, United States", result.FormattedAddress)
	assert.Equal(t, "City Hall", result.PlaceName)
}

func TestClient_ReverseGeocode_UnableToGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	result, err := testClient(srv.URL).ReverseGeocode(context.Background(), 0, -140)
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`Access blocked`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "Paris")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestClient_MalformedCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"1","display_name":"x"}]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).ForwardGeocode(context.Background(), "x")
	require.Error(t, err)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.ReverseGeocode(context.Background(), 1, 1)
	require.Error(t, err)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	c := testClient("http://127.0.0.1:0")
	c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, c.limiter.Allow(), "drain the single token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.ForwardGeocode(ctx, "Berlin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", testUserAgent, time.Second, observability.NewMetricsForTesting(), slog.Default())
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, rate.Every(time.Second), c.limiter.Limit())
}
