package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hospitalmart/internal/config"
	"hospitalmart/internal/ingest"
	"hospitalmart/internal/logging"
	"hospitalmart/internal/output"
	"hospitalmart/internal/pipeline"
	"hospitalmart/internal/warehouse"
	"hospitalmart/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"source_dir", cfg.Source.Dir,
		"output_dir", cfg.Output.Dir,
		"warehouse", cfg.Database.URL != "",
		"server", cfg.Server.Enabled,
	)

	pcfg, err := config.LoadPipeline(cfg.Source.PipelineFile)
	if err != nil {
		slog.Error("failed to load pipeline configuration", "error", err)
		os.Exit(1)
	}

	// Read raw sources
	rows, err := ingest.LoadCSVDir(cfg.Source.Dir)
	if err != nil {
		slog.Error("failed to read csv sources", "error", err)
		os.Exit(1)
	}
	docs, err := ingest.LoadBundleDir(cfg.Source.Dir)
	if err != nil {
		slog.Error("failed to read fhir sources", "error", err)
		os.Exit(1)
	}

	// Run the transformation core
	res, err := pipeline.Run(pipeline.Sources{Rows: rows, Documents: docs}, pcfg)
	if err != nil {
		slog.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	// Persist outputs
	if err := output.WriteAll(cfg.Output.Dir, res, cfg.Output.Parquet); err != nil {
		slog.Error("failed to write outputs", "error", err)
		os.Exit(1)
	}

	// Optional warehouse load
	ctx := context.Background()
	if cfg.Database.URL != "" {
		loader, err := warehouse.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
		if err != nil {
			slog.Error("failed to connect to warehouse", "error", err)
			os.Exit(1)
		}
		if err := loader.LoadResult(ctx, res); err != nil {
			loader.Close()
			slog.Error("warehouse load failed", "error", err)
			os.Exit(1)
		}
		loader.Close()
	}

	if res.Validation.Total > 0 {
		slog.Warn("run completed with validation findings", "violations", res.Validation.Total)
	}

	// Optional report server keeps the process alive serving the run
	if !cfg.Server.Enabled {
		return
	}

	server := web.NewServer(res)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr(), cfg.Server.ReadTimeout); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
