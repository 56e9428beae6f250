// Package config defines the configuration structures for the countd service.
package config

import (
	"time"
)

// Config is the canonical configuration consumed by the countd service.
type Config struct {
	Service   ServiceConfig   `yaml:"service"   json:"service"`
	Server    ServerConfig    `yaml:"server"    json:"server"`
	Storage   StorageConfig   `yaml:"storage"   json:"storage"`
	Logging   LoggingConfig   `yaml:"logging"   json:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// ServiceConfig captures service identity surfaced on /version and in telemetry.
type ServiceConfig struct {
	Name        string `yaml:"name"        json:"name"`
	Version     string `yaml:"version"     json:"version"`
	Environment string `yaml:"environment" json:"environment"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr"           json:"http_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    json:"shutdown_timeout"`
}

// StorageConfig selects and tunes the counter persistence backend.
type StorageConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// StatePath is the location of the persisted counter for the file backend.
	StatePath string `yaml:"state_path" json:"state_path"`
	// SQLiteDSN is the data source for the sqlite backend.
	SQLiteDSN string `yaml:"sqlite_dsn" json:"sqlite_dsn"`
	// LockTimeout bounds how long an increment waits for the exclusive section.
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
	// ProbeInterval is the period of the writability health probe.
	ProbeInterval time.Duration `yaml:"probe_interval" json:"probe_interval"`
	// AbortWriteOnCancel aborts a write whose request context expired after
	// the lock was already held, instead of letting it run to completion.
	AbortWriteOnCancel bool `yaml:"abort_write_on_cancel" json:"abort_write_on_cancel"`
}

// LoggingConfig controls structured log behavior.
type LoggingConfig struct {
	Level   string `yaml:"level"   json:"level"`
	Format  string `yaml:"format"  json:"format"`
	Adapter string `yaml:"adapter" json:"adapter"`
}

// TelemetryConfig toggles OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"         json:"enabled"`
	Protocol       string        `yaml:"protocol"        json:"protocol"`
	Endpoint       string        `yaml:"endpoint"        json:"endpoint"`
	Timeout        time.Duration `yaml:"timeout"         json:"timeout"`
	Compression    string        `yaml:"compression"     json:"compression"`
	RuntimeMetrics bool          `yaml:"runtime_metrics" json:"runtime_metrics"`
	TLS            TLSConfig     `yaml:"tls"             json:"tls"`
	Retry          RetryConfig   `yaml:"retry"           json:"retry"`
}

// TLSConfig encapsulates TLS dial settings for the OTLP exporters.
type TLSConfig struct {
	CAFile   string `yaml:"ca_file"   json:"ca_file"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file"  json:"key_file"`
	Insecure bool   `yaml:"insecure"  json:"insecure"`
}

// RetryConfig specifies retry settings for the OTLP exporters.
type RetryConfig struct {
	Enabled         bool          `yaml:"enabled"          json:"enabled"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time" json:"max_elapsed_time"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"     json:"max_interval"`
}
