package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/issue-report-service/internal/adapter/blob"
	"github.com/couchcryptid/issue-report-service/internal/adapter/filestore"
	"github.com/couchcryptid/issue-report-service/internal/adapter/geocache"
	kafkaadapter "github.com/couchcryptid/issue-report-service/internal/adapter/kafka"
	"github.com/couchcryptid/issue-report-service/internal/adapter/mapbox"
	"github.com/couchcryptid/issue-report-service/internal/adapter/nominatim"
	"github.com/couchcryptid/issue-report-service/internal/adapter/redisstream"
	"github.com/couchcryptid/issue-report-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/issue-report-service/internal/config"
	"github.com/couchcryptid/issue-report-service/internal/domain"
	"github.com/couchcryptid/issue-report-service/internal/events"
	"github.com/couchcryptid/issue-report-service/internal/observability"
)

// blobStore is a blob sink that can also answer existence checks.
type blobStore interface {
	domain.BlobSink
	Exists(ctx context.Context, name string) (bool, error)
}

// openRepository returns the configured report repository and a function
// releasing its resources.
func openRepository(ctx context.Context, cfg *config.Config) (domain.Repository, func() error, error) {
	switch cfg.StorageBackend {
	case config.StorageMySQL, config.StoragePostgres:
		repo, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.StorageBackend), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close() //nolint:errcheck // already failing
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		repo, err := filestore.New(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() error { return nil }, nil
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobStore, error) {
	if cfg.BlobBackend == config.BlobS3 {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return blob.NewS3Sink(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix, cfg.MaxUploadBytes), nil
	}
	return blob.NewLocalSink(cfg.UploadDir, cfg.MaxUploadBytes)
}

// newGeocoder returns the configured provider behind an LRU cache, or nil
// when geocoding is disabled.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	var provider domain.Geocoder
	switch cfg.Geocoder {
	case config.GeocoderNominatim:
		provider = nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.GeocodeTimeout, metrics, logger)
	case config.GeocoderMapbox:
		provider = mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout, metrics, logger)
	default:
		metrics.GeocodeEnabled.Set(0)
		logger.Info("geocoding disabled")
		return nil
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("geocoding enabled", "provider", cfg.Geocoder, "cache_size", cfg.GeocodeCacheSize, "timeout", cfg.GeocodeTimeout)
	return geocache.New(provider, cfg.GeocodeCacheSize, metrics)
}

// publisher is an event backend with a connection to release.
type publisher interface {
	events.BatchPublisher
	io.Closer
}

// newPublisher connects the configured event backend. It returns nil when
// events are disabled.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsKafka:
		return kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger), nil
	case config.EventsRedis:
		p, err := redisstream.NewPublisher(ctx, cfg.RedisAddr, cfg.RedisStream, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}
