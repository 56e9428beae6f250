package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"strings"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"

	"github.com/hyp3rd/countd/pkg/config"
)

// ErrTLSNotEnabled is returned when TLS configuration is incomplete.
var ErrTLSNotEnabled = ewrap.New("tls is not enabled")

func newTraceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "http", "https":
		opts, err := otlpTraceHTTPOptions(cfg)
		if err != nil {
			return nil, err
		}

		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, ewrap.Wrap(err, "create otlp http trace exporter")
		}

		return exp, nil
	default:
		opts, err := otlpTraceGRPCOptions(cfg)
		if err != nil {
			return nil, err
		}

		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, ewrap.Wrap(err, "create otlp grpc trace exporter")
		}

		return exp, nil
	}
}

func newMetricExporter(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	switch strings.ToLower(cfg.Protocol) {
	case "http", "https":
		opts, err := otlpMetricHTTPOptions(cfg)
		if err != nil {
			return nil, err
		}

		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, ewrap.Wrap(err, "create otlp http metric exporter")
		}

		return exp, nil
	default:
		opts, err := otlpMetricGRPCOptions(cfg)
		if err != nil {
			return nil, err
		}

		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, ewrap.Wrap(err, "create otlp grpc metric exporter")
		}

		return exp, nil
	}
}

func otlpTraceGRPCOptions(cfg config.TelemetryConfig) ([]otlptracegrpc.Option, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.TLS.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		tlsCfg, err := tlsConfigFrom(cfg.TLS)
		if err != nil && !ErrTLSNotEnabled.Is(err) {
			return nil, err
		}

		if tlsCfg != nil {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
		}
	}

	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	if cfg.Compression != "" {
		opts = append(opts, otlptracegrpc.WithCompressor(cfg.Compression))
	}

	if cfg.Retry.Enabled {
		opts = append(opts, otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}))
	}

	return opts, nil
}

func otlpMetricGRPCOptions(cfg config.TelemetryConfig) ([]otlpmetricgrpc.Option, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.TLS.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	} else {
		tlsCfg, err := tlsConfigFrom(cfg.TLS)
		if err != nil && !ErrTLSNotEnabled.Is(err) {
			return nil, err
		}

		if tlsCfg != nil {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
		}
	}

	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetricgrpc.WithTimeout(cfg.Timeout))
	}

	if cmp := strings.ToLower(cfg.Compression); cmp != "" {
		opts = append(opts, otlpmetricgrpc.WithCompressor(cmp))
	}

	if cfg.Retry.Enabled {
		opts = append(opts, otlpmetricgrpc.WithRetry(otlpmetricgrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}))
	}

	return opts, nil
}

func otlpTraceHTTPOptions(cfg config.TelemetryConfig) ([]otlptracehttp.Option, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
	}

	if cfg.TLS.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else {
		tlsCfg, err := tlsConfigFrom(cfg.TLS)
		if err != nil && !ErrTLSNotEnabled.Is(err) {
			return nil, err
		}

		if tlsCfg != nil {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
		}
	}

	if cfg.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
	}

	if strings.ToLower(cfg.Compression) == "gzip" {
		opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
	}

	if cfg.Retry.Enabled {
		opts = append(opts, otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}))
	}

	return opts, nil
}

func otlpMetricHTTPOptions(cfg config.TelemetryConfig) ([]otlpmetrichttp.Option, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}

	if cfg.TLS.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	} else {
		tlsCfg, err := tlsConfigFrom(cfg.TLS)
		if err != nil && !ErrTLSNotEnabled.Is(err) {
			return nil, err
		}

		if tlsCfg != nil {
			opts = append(opts, otlpmetrichttp.WithTLSClientConfig(tlsCfg))
		}
	}

	if cfg.Timeout > 0 {
		opts = append(opts, otlpmetrichttp.WithTimeout(cfg.Timeout))
	}

	if strings.ToLower(cfg.Compression) == "gzip" {
		opts = append(opts, otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression))
	}

	if cfg.Retry.Enabled {
		opts = append(opts, otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		}))
	}

	return opts, nil
}

// tlsConfigFrom builds a tls.Config from the provided TLSConfig.
func tlsConfigFrom(cfg config.TLSConfig) (*tls.Config, error) {
	if cfg.CAFile == "" && cfg.CertFile == "" && cfg.KeyFile == "" && !cfg.Insecure {
		return nil, ErrTLSNotEnabled
	}

	tlsCfg := &tls.Config{
		//nolint:gosec // allow insecure skip verify via config.
		InsecureSkipVerify: cfg.Insecure,
	}

	if cfg.CAFile != "" {
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, ewrap.Wrapf(err, "read ca file %s", cfg.CAFile)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(data) {
			return nil, ewrap.Newf("failed to parse ca file %s", cfg.CAFile)
		}

		tlsCfg.RootCAs = pool
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		if cfg.CertFile == "" || cfg.KeyFile == "" {
			return nil, ewrap.New("tls cert_file and key_file must both be set")
		}

		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, ewrap.Wrap(err, "load tls client certificate")
		}

		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}
