// Package cmd wires the cobra CLI surface: "prepare" runs the idempotent
// ingestion pipeline, "search" runs the correlation engine against an
// already-prepared dataset. Both share configuration loading, logging, and
// observability setup.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arianrashidi/rootcause-go/internal/config"
)

// Version is set at build time via ldflags, mirroring the teacher's
// manual-build convention.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "rootcause",
	Short:   "Root-cause correlation over structured log streams",
	Version: Version,
}

// Execute runs the CLI. It is the sole entry point main.go calls.
func Execute() error {
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	rootCmd.AddCommand(searchCmd)
}

// loadConfig loads and validates Settings, and builds a logger matching the
// teacher's ENVIRONMENT-gated zap setup.
func loadConfig() (*config.Settings, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, logger, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func fail(logger *zap.Logger, msg string, err error) error {
	logger.Error(msg, zap.Error(err))
	return fmt.Errorf("%s: %w", msg, err)
}
