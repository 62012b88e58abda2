package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/geocoding"
	"github.com/couchcryptid/issue-report-service/internal/observability"
	"github.com/couchcryptid/issue-report-service/internal/reports"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReportService is the report store as seen by the HTTP layer.
type ReportService interface {
	ReadinessChecker
	Create(ctx context.Context, sub reports.Submission, upload *reports.Upload) (domain.Report, error)
	List(ctx context.Context, status string) ([]domain.Report, error)
	Get(ctx context.Context, id string) (domain.Report, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Report, error)
	Delete(ctx context.Context, id string) error
	Image(ctx context.Context, filename string) (io.ReadCloser, error)
}

// LocationService resolves coordinates and place names.
type LocationService interface {
	Reverse(ctx context.Context, lat, lon *float64) (string, error)
	Forward(ctx context.Context, name string) (geocoding.Place, error)
}

// Server exposes the report API, the geocoding endpoints and the health,
// readiness and metrics routes.
type Server struct {
	httpServer *http.Server
	reports    ReportService
	locations  LocationService
	maxBody    int64
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates an HTTP server. maxBody caps request bodies, uploads
// included.
func NewServer(addr string, svc ReportService, locations LocationService, maxBody int64, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		reports:   svc,
		locations: locations,
		maxBody:   maxBody,
		logger:    logger,
		metrics:   metrics,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.instrument(allowCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("GET /{$}", handleGreeting)

	mux.HandleFunc("POST /api/reports", s.handleCreateReport)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("PUT /api/reports/{id}", s.handleUpdateStatus)
	mux.HandleFunc("DELETE /api/reports/{id}", s.handleDeleteReport)
	mux.HandleFunc("GET /api/images/{filename}", s.handleImage)

	mux.HandleFunc("POST /reverse-geocode", s.handleReverseGeocode)
	mux.HandleFunc("POST /save-location", s.handleSaveLocation)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func handleGreeting(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "Hello, World!") //nolint:errcheck // nothing to do on a failed write
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers are already sent
}
