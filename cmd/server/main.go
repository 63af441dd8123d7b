package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"semaforo/internal/app"
	"semaforo/internal/platform/config"
	"semaforo/internal/platform/httpserver"
	"semaforo/internal/platform/logger"
	"semaforo/internal/platform/metrics"
)

// main wires dependencies, optionally reconciles every cached semaforo, and
// serves the ops endpoints until interrupted. Document mutations reach the
// engine in-process through internal/documents.
func main() {
	reconcile := flag.Bool("reconcile", false, "refresh every active organization's cached semaforo on start")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.New(config.Default().Log).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log, *reconcile); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("semaforo stopped")
}

func run(cfg config.Config, log *slog.Logger, reconcile bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close dependencies", "error", err)
		}
	}()

	if reconcile {
		report, err := a.Semaforo.RefreshAll(ctx)
		if err != nil {
			log.Error("reconcile failed", "error", err)
		} else {
			log.Info("reconcile finished",
				"total", report.Total,
				"refreshed", report.Refreshed,
				"failed", len(report.Failed),
				"duration", report.Duration,
			)
		}
	}

	srv := httpserver.New(cfg.Server.Addr, httpserver.NewOpsRouter(reg, a.ReadinessChecks()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting semaforo", "addr", cfg.Server.Addr, "cache_backend", cfg.Semaforo.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
