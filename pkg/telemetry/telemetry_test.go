package telemetry_test

import (
	"context"
	"testing"

	"github.com/hyp3rd/countd/pkg/config"
	"github.com/hyp3rd/countd/pkg/telemetry"
)

func TestDisabledTelemetryIsInert(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Telemetry.Enabled = false

	rt, err := telemetry.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New with telemetry disabled: %v", err)
	}

	if rt != nil {
		t.Fatalf("expected nil runtime when disabled, got %v", rt)
	}

	// A nil runtime must still hand out working no-op providers and shut
	// down cleanly, so callers never branch on the enabled flag.
	if rt.TracerProvider() == nil {
		t.Fatal("nil runtime should return a no-op tracer provider")
	}

	if rt.MeterProvider() == nil {
		t.Fatal("nil runtime should return a no-op meter provider")
	}

	err = rt.Shutdown(context.Background())
	if err != nil {
		t.Fatalf("nil runtime Shutdown: %v", err)
	}
}

func TestValidateTelemetryProtocols(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Telemetry.Enabled = true

	for _, protocol := range []string{"grpc", "http", "https"} {
		cfg.Telemetry.Protocol = protocol

		if err := config.Validate(cfg); err != nil {
			t.Fatalf("protocol %q should validate: %v", protocol, err)
		}
	}
}
