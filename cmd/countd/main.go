// Command countd serves a durable counter over HTTP.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/countd/pkg/config"
	"github.com/hyp3rd/countd/pkg/health"
	"github.com/hyp3rd/countd/pkg/logging"
	"github.com/hyp3rd/countd/pkg/server"
	"github.com/hyp3rd/countd/pkg/store"
	"github.com/hyp3rd/countd/pkg/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx,
		config.FileLoader{Path: os.Getenv("COUNTD_CONFIG")},
		config.EnvLoader{},
		config.CompatEnvLoader{},
	)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.FromConfig(cfg.Logging)

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, err, "countd failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger logging.Adapter) error {
	rt, err := telemetry.New(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := rt.Shutdown(shutdownCtx)
		if err != nil {
			logger.Error(shutdownCtx, err, "shutdown telemetry")
		}
	}()

	counter, watchDir, err := openStore(cfg, logger)
	if err != nil {
		return err
	}

	defer func() {
		err := counter.Close()
		if err != nil {
			logger.Error(ctx, err, "close counter store")
		}
	}()

	prober, err := health.NewProber(counter, cfg.Storage.ProbeInterval, watchDir, logger)
	if err != nil {
		return err
	}

	err = prober.Start(ctx)
	if err != nil {
		return err
	}

	defer prober.Stop()

	srv := server.New(cfg, counter, prober, logger)

	middleware, err := buildMiddleware(rt, cfg)
	if err != nil {
		return err
	}

	err = srv.Start(ctx, middleware...)
	if err != nil {
		return err
	}

	logger.Info(ctx, "countd started",
		attribute.String("addr", cfg.Server.HTTPAddr),
		attribute.String("backend", cfg.Storage.Backend),
		attribute.String("version", cfg.Service.Version),
	)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info(shutdownCtx, "countd stopping")

	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured backend. The returned watchDir points the
// health prober at the directory whose writability matters, when there is
// one.
func openStore(cfg config.Config, logger logging.Adapter) (store.Store, string, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Telemetry.Enabled {
			counter, err := store.NewTracedSQLiteStore(cfg.Storage.SQLiteDSN)

			return counter, "", err
		}

		counter, err := store.NewSQLiteStore(cfg.Storage.SQLiteDSN)

		return counter, "", err
	default:
		counter, err := store.NewFileStore(cfg.Storage, logger)

		return counter, filepath.Dir(cfg.Storage.StatePath), err
	}
}

func buildMiddleware(rt *telemetry.Runtime, cfg config.Config) ([]server.Middleware, error) {
	if !cfg.Telemetry.Enabled {
		return nil, nil
	}

	instr, err := server.NewInstrumentation(rt.TracerProvider(), rt.MeterProvider(), "/healthz")
	if err != nil {
		return nil, err
	}

	return []server.Middleware{instr.Middleware()}, nil
}
