// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Vision backends
const (
	VisionCloud = "cloud"
	VisionLocal = "local"
)

// Vision client modes
const (
	ClientShared  = "shared"
	ClientPerCall = "per_call"
)

// Image sources for the local analyzer
const (
	SourceFilesystem = "filesystem"
	SourceGCS        = "gcs"
	SourceMinio      = "minio"
)

// Record stores
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

type (
	Config struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

		HTTP    HTTPConfig    `envPrefix:"HTTP_"`
		Vision  VisionConfig  `envPrefix:"VISION_"`
		Source  SourceConfig  `envPrefix:"SOURCE_"`
		Store   StoreConfig   `envPrefix:"STORE_"`
		DBOS    DBOSConfig    `envPrefix:"DBOS_"`
		Dedupe  DedupeConfig  `envPrefix:"DEDUPE_"`
		Metrics MetricsConfig `envPrefix:"METRICS_"`
	}

	HTTPConfig struct {
		Addr            string        `env:"ADDR"`
		ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	}

	VisionConfig struct {
		Backend    string        `env:"BACKEND"`
		ClientMode string        `env:"CLIENT_MODE" envDefault:"shared"`
		Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
		AssumeSafe bool          `env:"ASSUME_SAFE"`
	}

	SourceConfig struct {
		Kind           string `env:"KIND" envDefault:"filesystem"`
		Dir            string `env:"DIR" envDefault:"./dev-data"`
		MinioEndpoint  string `env:"MINIO_ENDPOINT"`
		MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
		MinioSecretKey string `env:"MINIO_SECRET_KEY"`
		MinioUseSSL    bool   `env:"MINIO_USE_SSL"`
	}

	StoreConfig struct {
		Backend     string        `env:"BACKEND"`
		ProjectID   string        `env:"PROJECT_ID"`
		DatabaseURL string        `env:"DATABASE_URL"`
		Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	}

	DBOSConfig struct {
		SystemDatabaseURL  string `env:"SYSTEM_DATABASE_URL"`
		QueueName          string `env:"QUEUE_NAME"`
		Concurrency        int    `env:"CONCURRENCY" envDefault:"4"`
		ApplicationVersion string `env:"APPLICATION_VERSION"`

		// Required is set by processes that cannot start without DBOS
		Required bool
	}

	DedupeConfig struct {
		Enabled bool `env:"ENABLED" envDefault:"true"`
	}

	MetricsConfig struct {
		Enabled bool   `env:"ENABLED" envDefault:"true"`
		Path    string `env:"PATH" envDefault:"/metrics"`
	}
)

// WorkerDefaults are the production defaults: Cloud Vision, Firestore and a DBOS queue
func WorkerDefaults() Config {
	return Config{
		HTTP:   HTTPConfig{Addr: ":8081"},
		Vision: VisionConfig{Backend: VisionCloud},
		Store:  StoreConfig{Backend: StoreFirestore},
		DBOS:   DBOSConfig{Required: true},
	}
}

// StandaloneDefaults run without cloud services: local analyzer and in-memory store
func StandaloneDefaults() Config {
	return Config{
		HTTP:   HTTPConfig{Addr: ":8080"},
		Vision: VisionConfig{Backend: VisionLocal},
		Store:  StoreConfig{Backend: StoreMemory},
	}
}

// Load reads .env if present, then the environment, on top of base
func Load(base Config) (*Config, error) {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg := base
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enum fields and the settings each backend needs
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("HTTP_ADDR is required"))
	}

	switch c.Vision.Backend {
	case VisionCloud:
	case VisionLocal:
		switch c.Source.Kind {
		case SourceFilesystem:
			if c.Source.Dir == "" {
				errs = append(errs, errors.New("SOURCE_DIR is required for the filesystem source"))
			}
		case SourceGCS:
		case SourceMinio:
			if c.Source.MinioEndpoint == "" {
				errs = append(errs, errors.New("SOURCE_MINIO_ENDPOINT is required for the minio source"))
			}
		default:
			errs = append(errs, fmt.Errorf("SOURCE_KIND must be one of %s, %s, %s: got %q", SourceFilesystem, SourceGCS, SourceMinio, c.Source.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("VISION_BACKEND must be %s or %s: got %q", VisionCloud, VisionLocal, c.Vision.Backend))
	}

	switch c.Vision.ClientMode {
	case ClientShared, ClientPerCall:
	default:
		errs = append(errs, fmt.Errorf("VISION_CLIENT_MODE must be %s or %s: got %q", ClientShared, ClientPerCall, c.Vision.ClientMode))
	}

	switch c.Store.Backend {
	case StoreFirestore, StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("STORE_DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be one of %s, %s, %s: got %q", StoreFirestore, StorePostgres, StoreMemory, c.Store.Backend))
	}

	if c.DBOS.Required && c.DBOS.SystemDatabaseURL == "" {
		errs = append(errs, errors.New("DBOS_SYSTEM_DATABASE_URL is required"))
	}

	if c.Vision.Timeout < 0 || c.Store.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}

	return errors.Join(errs...)
}
