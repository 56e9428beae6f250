package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hyp3rd/countd/pkg/config"
)

// FromConfig builds an Adapter from logging configuration.
func FromConfig(cfg config.LoggingConfig) Adapter {
	return applyLevelFilter(buildBaseAdapter(cfg), cfg.Level)
}

func buildBaseAdapter(cfg config.LoggingConfig) Adapter {
	switch strings.ToLower(cfg.Adapter) {
	case "std":
		return NewStdAdapter(nil)
	case "zap":
		logger, err := newZapLogger(cfg)
		if err == nil {
			return NewZapAdapter(logger)
		}
	case "zerolog":
		return NewZerologAdapter(newZerologLogger(cfg))
	default:
		return newSlogFromConfig(cfg)
	}

	return newSlogFromConfig(cfg)
}

func newSlogFromConfig(cfg config.LoggingConfig) Adapter {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slogLevel(cfg.Level),
	}

	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return NewSlogAdapter(slog.New(handler))
}

func newZerologLogger(cfg config.LoggingConfig) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	return logger.Level(zerologLevel(cfg.Level))
}

func newZapLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	configZap := zap.NewProductionConfig()
	configZap.Level = zap.NewAtomicLevelAt(zapLevel(cfg.Level))

	switch strings.ToLower(cfg.Format) {
	case "text":
		configZap.Encoding = "console"
	default:
		configZap.Encoding = "json"
	}

	return configZap.Build()
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func zapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func applyLevelFilter(adapter Adapter, level string) Adapter {
	if adapter == nil {
		return NewNoopAdapter()
	}

	switch strings.ToLower(level) {
	case "error":
		return infoDisabledAdapter{inner: adapter}
	default:
		return adapter
	}
}

type infoDisabledAdapter struct {
	inner Adapter
}

func (infoDisabledAdapter) Info(_ context.Context, _ string, _ ...attribute.KeyValue) {
	// drop info level
}

func (infoDisabledAdapter) Debug(_ context.Context, _ string, _ ...attribute.KeyValue) {
	// drop debug level
}

func (a infoDisabledAdapter) Error(ctx context.Context, err error, msg string, attrs ...attribute.KeyValue) {
	a.inner.Error(ctx, err, msg, attrs...)
}
