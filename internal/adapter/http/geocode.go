package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/geocoding"
)

type geocodeError struct {
	Error string `json:"error"`
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, geocodeError{Error: "Invalid request body"})
		return
	}
	if body.Latitude == nil || body.Longitude == nil {
		writeJSON(w, http.StatusBadRequest, geocodeError{Error: "Latitude and longitude are required"})
		return
	}

	address, err := s.locations.Reverse(r.Context(), body.Latitude, body.Longitude)
	if err != nil {
		s.writeGeocodeError(r.Context(), w, "Unable to get address", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (s *Server) handleSaveLocation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Location string `json:"location"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, geocodeError{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(body.Location) == "" {
		writeJSON(w, http.StatusBadRequest, geocodeError{Error: "Location is required"})
		return
	}

	place, err := s.locations.Forward(r.Context(), body.Location)
	if err != nil {
		s.writeGeocodeError(r.Context(), w, "Invalid location", err)
		return
	}
	s.logger.InfoContext(r.Context(), "location resolved",
		"name", place.Name,
		"latitude", place.Latitude,
		"longitude", place.Longitude,
	)
	writeJSON(w, http.StatusOK, struct {
		Message string          `json:"message"`
		Data    geocoding.Place `json:"data"`
	}{Message: "Location saved successfully", Data: place})
}

// writeGeocodeError maps gateway errors onto the {error} envelope.
// unresolved is the message for a lookup that found nothing.
func (s *Server) writeGeocodeError(ctx context.Context, w http.ResponseWriter, unresolved string, err error) {
	var msg string
	switch {
	case errors.Is(err, domain.ErrResolutionFailed):
		msg = unresolved
	case errors.Is(err, domain.ErrValidation):
		msg = err.Error()
	case errors.Is(err, domain.ErrUpstream):
		msg = "Geocoding service unavailable"
	default:
		s.logger.ErrorContext(ctx, "unclassified geocoding error", "error", err)
		msg = "Internal error"
	}
	writeJSON(w, statusFor(err), geocodeError{Error: msg})
}
