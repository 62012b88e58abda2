package domain

import (
	"context"
	"io"
)

// Repository persists the report collection. All must return reports in
// insertion order. Get, Update and Delete return ErrReportNotFound when no
// report has the given id.
type Repository interface {
	All(ctx context.Context) ([]Report, error)
	Get(ctx context.Context, id string) (Report, error)
	Insert(ctx context.Context, report Report) error
	Update(ctx context.Context, report Report) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// BlobSink stores uploaded image bytes under generated names.
type BlobSink interface {
	// Store writes r under a freshly generated name derived from the
	// extension of declaredName and returns that name. Disallowed extensions
	// fail with ErrUnsupportedImage.
	Store(ctx context.Context, r io.Reader, declaredName string) (string, error)

	// Remove deletes the named blob. Removing a missing blob is not an error.
	Remove(ctx context.Context, name string) error

	// Retrieve opens the named blob. Missing blobs fail with ErrImageNotFound.
	Retrieve(ctx context.Context, name string) (io.ReadCloser, error)
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Empty reports whether the provider found nothing.
func (r GeocodingResult) Empty() bool {
	return r.FormattedAddress == ""
}

// Geocoder resolves between coordinates and place names. A lookup with no
// match returns a zero GeocodingResult and a nil error.
type Geocoder interface {
	// ForwardGeocode converts a free-text place name to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}
