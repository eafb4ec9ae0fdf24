package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arianrashidi/rootcause-go/internal/display"
	"github.com/arianrashidi/rootcause-go/internal/health"
	"github.com/arianrashidi/rootcause-go/internal/metrics"
	"github.com/arianrashidi/rootcause-go/internal/preparation"
	"github.com/arianrashidi/rootcause-go/internal/template"
	"github.com/arianrashidi/rootcause-go/internal/tracing"
)

var prepareProgress bool

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Normalize, cluster and cache a dataset for search",
	Long: `Prepare runs the four-stage ingestion pipeline against the configured
source CSV: schema normalization and validation, template clustering,
template assignment, and cache cleanup. Each stage is skipped when its
cache file already exists, so prepare is safe to re-run.`,
	RunE: runPrepare,
}

func init() {
	prepareCmd.Flags().BoolVar(&prepareProgress, "progress", false, "show progress output while preparing")
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if logger != nil {
		defer func() { _ = logger.Sync() }()
	}
	if err != nil {
		return err
	}

	shutdownTracing, err := tracing.Init(tracing.Config{
		ServiceName:    "rootcause",
		ServiceVersion: Version,
		Environment:    cfg.LogLevel,
		Enabled:        cfg.EnableTracing,
	})
	if err != nil {
		return fail(logger, "failed to initialize tracing", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	m := metrics.New(logger)

	checker := health.New(cfg.DatasetName, cfg.StorageDir, cfg.DrainConfigFile, logger)
	var healthServer *health.Server
	if cfg.HealthPort > 0 {
		healthServer = health.NewServer(checker, logger, cfg.HealthPort, cfg.HealthBindAddr, cfg.MetricsEndpoint, m.Registry())
		go func() {
			if err := healthServer.Start(); err != nil {
				logger.Warn("health server stopped", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			_ = healthServer.Shutdown(ctx)
		}()
	}

	templateCfg, err := template.LoadConfig(cfg.DrainConfigFile)
	if err != nil {
		return fail(logger, "failed to load template config", err)
	}

	var output display.Output = display.Silent{}
	if prepareProgress {
		output = display.Notebook{}
	}

	ctx, span := tracing.PreparationStageSpan(cmd.Context(), "total")
	defer span.End()

	start := time.Now()
	pipeline := preparation.New(cfg, templateCfg, output)
	table, err := pipeline.Load(ctx)
	m.RecordPreparationStage("total", time.Since(start))
	if err != nil {
		tracing.RecordError(span, err)
		return fail(logger, "preparation failed", err)
	}
	if healthServer != nil {
		healthServer.SetReady(true)
	}

	logger.Info("dataset prepared",
		zap.String("dataset", cfg.DatasetName),
		zap.Int("rows", table.Len()),
		zap.Bool("has_template", table.HasTemplate()),
		zap.Duration("took", time.Since(start)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "prepared %d rows for dataset %q\n", table.Len(), cfg.DatasetName)
	return nil
}
