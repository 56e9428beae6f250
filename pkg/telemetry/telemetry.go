// Package telemetry manages the optional OpenTelemetry runtime for the
// service. When disabled the service runs on no-op providers and needs no
// collector.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/hyp3rd/ewrap"
	contribruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/hyp3rd/countd/pkg/config"
)

// Runtime encapsulates the active telemetry providers and lifecycle hooks.
type Runtime struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	traceExporter  sdktrace.SpanExporter
	metricReader   *sdkmetric.PeriodicReader
}

// New builds tracer and meter providers per config and installs them as the
// process globals. With cfg.Enabled false it returns a nil Runtime, which is
// safe to Shutdown.
func New(ctx context.Context, cfg config.Config) (*Runtime, error) {
	if !cfg.Telemetry.Enabled {
		return nil, nil
	}

	traceExp, err := newTraceExporter(ctx, cfg.Telemetry)
	if err != nil {
		return nil, ewrap.Wrap(err, "build trace exporter")
	}

	metricExp, err := newMetricExporter(ctx, cfg.Telemetry)
	if err != nil {
		return nil, ewrap.Wrap(err, "build metric exporter")
	}

	res, err := buildResource(ctx, cfg.Service)
	if err != nil {
		return nil, ewrap.Wrap(err, "build resource")
	}

	reader := sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(time.Minute))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExp),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	if cfg.Telemetry.RuntimeMetrics {
		err = contribruntime.Start(contribruntime.WithMeterProvider(mp))
		if err != nil {
			return nil, ewrap.Wrap(err, "start runtime metrics")
		}
	}

	return &Runtime{
		tracerProvider: tp,
		meterProvider:  mp,
		traceExporter:  traceExp,
		metricReader:   reader,
	}, nil
}

// TracerProvider returns the active tracer provider, or a no-op one when
// telemetry is disabled.
func (r *Runtime) TracerProvider() trace.TracerProvider {
	if r == nil {
		return tracenoop.NewTracerProvider()
	}

	return r.tracerProvider
}

// MeterProvider returns the active meter provider, or a no-op one when
// telemetry is disabled.
func (r *Runtime) MeterProvider() metric.MeterProvider {
	if r == nil {
		return noop.NewMeterProvider()
	}

	return r.meterProvider
}

// Shutdown flushes and stops the providers.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	var errs []error

	if r.tracerProvider != nil {
		err := r.tracerProvider.Shutdown(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if r.meterProvider != nil {
		err := r.meterProvider.Shutdown(ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	joined := errors.Join(errs...)
	if joined != nil {
		return ewrap.Wrap(joined, "shutdown telemetry")
	}

	return nil
}

func buildResource(ctx context.Context, svc config.ServiceConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(svc.Name),
		semconv.ServiceVersionKey.String(svc.Version),
	}

	if svc.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", svc.Environment))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithProcessPID(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, ewrap.Wrap(err, "assemble resource attributes")
	}

	return res, nil
}
