package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends.
const (
	StorageFile     = "file"
	StorageMySQL    = "mysql"
	StoragePostgres = "postgres"
)

// Blob backends.
const (
	BlobLocal = "local"
	BlobS3    = "s3"
)

// Geocoding providers.
const (
	GeocoderNominatim = "nominatim"
	GeocoderMapbox    = "mapbox"
	GeocoderNone      = "none"
)

// Event backends.
const (
	EventsNone  = "none"
	EventsKafka = "kafka"
	EventsRedis = "redis"
)

const maxBatchSize = 1000

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Report persistence.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"file"`
	DataFile       string `envconfig:"DATA_FILE" default:"data/reports.json"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`

	// Image blobs.
	BlobBackend    string `envconfig:"BLOB_BACKEND" default:"local"`
	UploadDir      string `envconfig:"UPLOAD_DIR" default:"uploads/images"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Prefix       string `envconfig:"S3_PREFIX"`
	MaxUploadBytes int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`

	// Geocoding.
	Geocoder           string        `envconfig:"GEOCODER" default:"nominatim"`
	NominatimURL       string        `envconfig:"NOMINATIM_URL" default:"https://nominatim.openstreetmap.org"`
	NominatimUserAgent string        `envconfig:"NOMINATIM_USER_AGENT" default:"issue-report-service"`
	MapboxToken        string        `envconfig:"MAPBOX_TOKEN"`
	GeocodeTimeout     time.Duration `envconfig:"GEOCODE_TIMEOUT" default:"5s"`
	GeocodeCacheSize   int           `envconfig:"GEOCODE_CACHE_SIZE" default:"1000"`

	// Report lifecycle events.
	EventsBackend      string        `envconfig:"EVENTS_BACKEND" default:"none"`
	KafkaBrokers       []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic         string        `envconfig:"KAFKA_TOPIC" default:"report-events"`
	RedisAddr          string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisStream        string        `envconfig:"REDIS_STREAM" default:"report-events"`
	EventsBuffer       int           `envconfig:"EVENTS_BUFFER" default:"256"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"50"`
	BatchFlushInterval time.Duration `envconfig:"BATCH_FLUSH_INTERVAL" default:"500ms"`
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ShutdownTimeout <= 0 {
		return errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	switch c.StorageBackend {
	case StorageFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE is required for the file storage backend")
		}
	case StorageMySQL, StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s storage backend", c.StorageBackend)
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.BlobBackend {
	case BlobLocal:
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the local blob backend")
		}
	case BlobS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("invalid BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("invalid MAX_UPLOAD_BYTES")
	}

	switch c.Geocoder {
	case GeocoderNominatim:
		if c.NominatimUserAgent == "" {
			return errors.New("NOMINATIM_USER_AGENT is required for the nominatim geocoder")
		}
	case GeocoderMapbox:
		if c.MapboxToken == "" {
			return errors.New("GEOCODER is mapbox but MAPBOX_TOKEN is not set")
		}
	case GeocoderNone:
	default:
		return fmt.Errorf("invalid GEOCODER %q", c.Geocoder)
	}
	if c.GeocodeTimeout <= 0 {
		return errors.New("invalid GEOCODE_TIMEOUT")
	}
	if c.GeocodeCacheSize <= 0 {
		return errors.New("invalid GEOCODE_CACHE_SIZE")
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required for the kafka events backend")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required for the kafka events backend")
		}
	case EventsRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis events backend")
		}
		if c.RedisStream == "" {
			return errors.New("REDIS_STREAM is required for the redis events backend")
		}
	default:
		return fmt.Errorf("invalid EVENTS_BACKEND %q", c.EventsBackend)
	}
	if c.EventsBuffer <= 0 {
		return errors.New("invalid EVENTS_BUFFER")
	}
	if c.BatchSize <= 0 || c.BatchSize > maxBatchSize {
		return fmt.Errorf("invalid BATCH_SIZE: must be between 1 and %d", maxBatchSize)
	}
	if c.BatchFlushInterval <= 0 {
		return errors.New("invalid BATCH_FLUSH_INTERVAL")
	}

	return nil
}
