package config_test

import (
	"testing"

	"github.com/hyp3rd/countd/pkg/config"
)

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	err := config.Validate(config.DefaultConfig())
	if err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty service name", func(c *config.Config) { c.Service.Name = "" }},
		{"empty http addr", func(c *config.Config) { c.Server.HTTPAddr = "" }},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "etcd" }},
		{"empty state path", func(c *config.Config) { c.Storage.StatePath = "" }},
		{"zero lock timeout", func(c *config.Config) { c.Storage.LockTimeout = 0 }},
		{"zero probe interval", func(c *config.Config) { c.Storage.ProbeInterval = 0 }},
		{"empty sqlite dsn", func(c *config.Config) {
			c.Storage.Backend = "sqlite"
			c.Storage.SQLiteDSN = ""
		}},
		{"telemetry without endpoint", func(c *config.Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}},
		{"telemetry bad protocol", func(c *config.Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Protocol = "udp"
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tc.mutate(&cfg)

			if err := config.Validate(cfg); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
