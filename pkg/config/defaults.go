package config

import (
	"time"

	"github.com/hyp3rd/countd/internal/constants"
)

const (
	defaultMaxElapsedTime = 32 * time.Minute
	defaultInterval       = 500 * time.Millisecond
	defaultMaxInterval    = 5 * time.Second
)

// DefaultStatePath matches the volume mount the service is deployed with.
const DefaultStatePath = "/data/counter.json"

// DefaultConfig returns a Config populated with production-safe defaults.
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{
			Name:        "countd",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			HTTPAddr:          ":8080",
			ReadHeaderTimeout: constants.DefaultTimeout,
			ShutdownTimeout:   constants.DefaultShutdownTimeout,
		},
		Storage: StorageConfig{
			Backend:       "file",
			StatePath:     DefaultStatePath,
			SQLiteDSN:     "/data/counter.db",
			LockTimeout:   constants.DefaultLockTimeout,
			ProbeInterval: constants.DefaultProbeInterval,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			Adapter: "slog",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Protocol:       "grpc",
			Endpoint:       "localhost:4317",
			Timeout:        2 * constants.DefaultTimeout,
			Compression:    "gzip",
			RuntimeMetrics: true,
			TLS: TLSConfig{
				Insecure: true,
			},
			Retry: RetryConfig{
				Enabled:         true,
				MaxElapsedTime:  defaultMaxElapsedTime,
				InitialInterval: defaultInterval,
				MaxInterval:     defaultMaxInterval,
			},
		},
	}
}
