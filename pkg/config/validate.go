package config

import "github.com/hyp3rd/ewrap"

// Validate asserts that the config meets baseline expectations.
func Validate(cfg Config) error {
	if cfg.Service.Name == "" {
		return invalidConfigError("service.name is required")
	}

	if cfg.Server.HTTPAddr == "" {
		return invalidConfigError("server.http_addr is required")
	}

	switch cfg.Storage.Backend {
	case "file":
		if cfg.Storage.StatePath == "" {
			return invalidConfigError("storage.state_path is required")
		}
	case "sqlite":
		if cfg.Storage.SQLiteDSN == "" {
			return invalidConfigError("storage.sqlite_dsn is required")
		}
	default:
		return invalidConfigError("unsupported storage.backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.LockTimeout <= 0 {
		return invalidConfigError("storage.lock_timeout must be greater than zero")
	}

	if cfg.Storage.ProbeInterval <= 0 {
		return invalidConfigError("storage.probe_interval must be greater than zero")
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Endpoint == "" {
			return invalidConfigError("telemetry.endpoint is required")
		}

		switch cfg.Telemetry.Protocol {
		case "grpc", "http", "https":
		default:
			return invalidConfigError("unsupported telemetry.protocol %q", cfg.Telemetry.Protocol)
		}
	}

	return nil
}

func invalidConfigError(format string, args ...any) error {
	return ewrap.Newf("invalid configuration: "+format, args...)
}
