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

	"github.com/JonMunkholm/rollup/internal/config"
	"github.com/JonMunkholm/rollup/internal/core"
	"github.com/JonMunkholm/rollup/internal/logging"
	"github.com/JonMunkholm/rollup/internal/metrics"
	"github.com/JonMunkholm/rollup/internal/web"
	"github.com/JonMunkholm/rollup/internal/workbook"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sheet", cfg.Pipeline.Sheet,
		"skip_rows", cfg.Pipeline.SkipRows,
		"run_max_concurrent", cfg.Run.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	std, err := core.LoadStandardizer(cfg.Pipeline.RulesFile)
	if err != nil {
		slog.Error("failed to load standardization rules", "file", cfg.Pipeline.RulesFile, "error", err)
		os.Exit(1)
	}
	slog.Info("standardization rules loaded", "rules", std.Len(), "file", cfg.Pipeline.RulesFile)

	adapter := workbook.New(cfg.Pipeline.ExportSheet)
	m := metrics.New()

	service := core.NewService(adapter, adapter, core.ServiceConfig{
		DefaultSheet: cfg.Pipeline.Sheet,
		DefaultSkip:  cfg.Pipeline.SkipRows,
		PreviewRows:  cfg.Pipeline.PreviewRows,
		DatasetTTL:   cfg.Run.DatasetTTL,
		GroupHints:   cfg.Pipeline.GroupHints,
		ValueHints:   cfg.Pipeline.ValueHints,
		Classifier: &core.Classifier{
			Threshold:  cfg.Pipeline.Threshold,
			SampleSize: cfg.Pipeline.SampleSize,
		},
		Standardizer: std,
		Limiter:      core.NewRunLimiter(cfg.Run.MaxConcurrent, cfg.Run.MaxWait),
		Recorder:     m,
	})

	server := web.NewServer(service, cfg, m.Handler())

	// Background jobs stop before the server drains.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartExpiryScheduler(jobCtx, cfg.Run.SweepInterval)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
