// Shrike - Batch fraud detection with rule-based risk scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/shrike/internal/config"
	"github.com/opensource-finance/shrike/internal/domain"
	"github.com/opensource-finance/shrike/internal/engine"
	"github.com/opensource-finance/shrike/internal/loader"
	"github.com/opensource-finance/shrike/internal/report"
	"github.com/opensource-finance/shrike/internal/store"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputPath := flag.String("input", "", "override data.input_file")
	outputPath := flag.String("output", "", "override data.output_file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("shrike %s (%s, %s)\n", Version, Commit, BuildDate)
		return
	}

	start := time.Now()

	// Configuration errors are fatal before any transaction is scored.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *inputPath != "" {
		cfg.Data.InputFile = *inputPath
	}
	if *outputPath != "" {
		cfg.Data.OutputFile = *outputPath
	}
	if cfg.Data.InputFile == "" {
		fmt.Fprintln(os.Stderr, "configuration error: missing required configuration key: data.input_file")
		os.Exit(1)
	}

	setupLogging(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting shrike",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"input", cfg.Data.InputFile,
		"output", cfg.Data.OutputFile,
		"custom_rules", len(cfg.Custom),
		"storage", cfg.Storage.Enabled,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load and validate the batch; malformed rows are skipped and
	// counted here, never scored.
	batch, err := loader.LoadFile(cfg.Data.InputFile, config.Location(cfg))
	if err != nil {
		slog.Error("dataset loading failed", "error", err)
		os.Exit(1)
	}
	if len(batch.Transactions) == 0 {
		slog.Error("no valid transactions to process")
		os.Exit(1)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	slog.Info("engine initialized",
		"rules", eng.RulesCount(),
		"alert_threshold", cfg.Alert.RiskScoreThreshold,
		"critical_threshold", cfg.Alert.CriticalThreshold,
	)

	result, err := eng.Run(ctx, batch.Transactions)
	if err != nil {
		slog.Error("batch evaluation aborted", "error", err)
		os.Exit(1)
	}

	rpt := report.Build(result.Alerts, result.Summary, batch.Skipped)
	if err := rpt.WriteJSON(cfg.Data.OutputFile); err != nil {
		slog.Error("failed to write report", "error", err)
		os.Exit(1)
	}
	report.PrintConsole(os.Stdout, result.Alerts, result.Summary)

	if cfg.Data.DashboardFile != "" {
		if err := report.WriteDashboard(cfg.Data.DashboardFile, result.Alerts, result.Summary, result.Scores); err != nil {
			slog.Error("failed to write dashboard", "error", err)
		}
	}

	if cfg.Storage.Enabled {
		if err := persist(ctx, cfg, rpt.RunID, result); err != nil {
			slog.Error("failed to persist run", "error", err)
		}
	}

	slog.Info("pipeline completed",
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"processed", result.Summary.Processed,
		"alerts", result.Summary.Alerts,
		"output", cfg.Data.OutputFile,
	)
}

func setupLogging(level, format string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func persist(ctx context.Context, cfg *domain.Config, runID string, result *engine.Result) error {
	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveRun(ctx, runID, result.Summary); err != nil {
		return err
	}
	if err := st.SaveAlerts(ctx, runID, result.Alerts); err != nil {
		return err
	}
	slog.Info("run persisted", "run_id", runID, "driver", cfg.Storage.Driver, "alerts", len(result.Alerts))
	return nil
}
