package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/config"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/job"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/logging"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/platform/database"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/provider/exchangerateapi"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/rate"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/refresh"
	"github.com/ahmethakanbesel/exchange-rate-api/internal/server"
)

func main() {
	cfg := config.Load()
	logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// Root context: cancelled on SIGINT/SIGTERM so an in-flight refresh and
	// in-flight requests stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	store, err := database.Open(rootCtx, cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	slog.Info("database opened", "backend", store.Backend)

	// Services
	rateSvc := rate.NewService(store.Rates)
	jobSvc := job.NewService(store.Runs)

	// Close out runs a previous process left running.
	if err := jobSvc.RecoverStaleRuns(rootCtx); err != nil {
		slog.Error("failed to recover stale runs", "error", err)
	}

	if cfg.APIKey == "" {
		slog.Warn("EXCHANGE_RATE_API_KEY is not set, requests are sent without a key")
	}
	client := exchangerateapi.New(
		exchangerateapi.WithEndpoint(cfg.APIURL),
		exchangerateapi.WithAPIKey(cfg.APIKey),
		exchangerateapi.WithTimeout(cfg.FetchTimeout),
		exchangerateapi.WithRetries(cfg.FetchRetries, cfg.RetryDelay),
	)
	refreshSvc := refresh.NewService(store.Rates, store.Runs, client,
		refresh.WithWorkers(cfg.Workers),
	)

	// Scheduler: one run now, then every UpdateInterval.
	sched := job.NewScheduler(refreshSvc, cfg.UpdateInterval)
	sched.Start(rootCtx)

	// HTTP server: rootCtx is used as BaseContext so every request context
	// inherits from it and is cancelled on shutdown.
	srv := server.New(rootCtx, server.Config{
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
	}, rateSvc, jobSvc, sched)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("server started", "port", cfg.Port, "update_interval", cfg.UpdateInterval.String())
	<-done

	rootCancel()

	// The scheduler abandons its current run; the next start re-fetches.
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
}
