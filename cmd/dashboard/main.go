// Command dashboard serves the scenario results summary as chart specs over
// HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/oslomod/teotil3-scenarios/internal/adapter/http"
	"github.com/oslomod/teotil3-scenarios/internal/config"
	"github.com/oslomod/teotil3-scenarios/internal/dashboard"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
)

func main() {
	_ = godotenv.Load(".env.local")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store := dashboard.NewStore(cfg.DashboardSummaryCSV, cfg.DashboardInfoMD)
	if err := store.Reload(); err != nil {
		logger.Error("failed to load results summary", "error", err)
		os.Exit(1)
	}
	metrics.SummaryRows.Set(float64(len(store.Records())))
	logger.Info("results summary loaded", "path", cfg.DashboardSummaryCSV, "rows", len(store.Records()))

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, logger,
		httpadapter.DashboardRoutes(store, metrics, cfg.DashboardRateLimit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP reloads the summary without a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := store.Reload(); err != nil {
				logger.Error("reload results summary", "error", err)
				continue
			}
			metrics.SummaryRows.Set(float64(len(store.Records())))
			logger.Info("results summary reloaded", "rows", len(store.Records()))
		}
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	signal.Stop(hup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}
