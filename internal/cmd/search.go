package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arianrashidi/rootcause-go/internal/config"
	"github.com/arianrashidi/rootcause-go/internal/display"
	"github.com/arianrashidi/rootcause-go/internal/messagetable"
	"github.com/arianrashidi/rootcause-go/internal/metrics"
	"github.com/arianrashidi/rootcause-go/internal/preparation"
	"github.com/arianrashidi/rootcause-go/internal/resultcache"
	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
	"github.com/arianrashidi/rootcause-go/internal/search"
	"github.com/arianrashidi/rootcause-go/internal/strategy"
	"github.com/arianrashidi/rootcause-go/internal/template"
	"github.com/arianrashidi/rootcause-go/internal/tracing"
)

var searchQuiet bool

var searchCmd = &cobra.Command{
	Use:   "search <line-id>",
	Short: "Find the root cause set for one error line",
	Long: `Search runs every configured strategy against the prepared dataset,
starting from the given error line id, and prints the resulting
RootCauseSet. The dataset is prepared on demand if it has not been
already.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchQuiet, "quiet", false, "suppress progress output, print only the result")
}

func runSearch(cmd *cobra.Command, args []string) error {
	errorLineID, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid line id %q: %w", args[0], err)
	}

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
	cache := resultcache.New(resultcache.Config{
		MaxSize: 500,
		TTL:     cfg.ResultCacheTTL,
		Enabled: cfg.EnableResultCache,
	})

	requestID := uuid.New().String()
	ctx, span := tracing.SearchSpan(cmd.Context(), requestID, errorLineID)
	defer span.End()
	logger = logger.With(zap.String("request_id", requestID))

	var output display.Output = display.Notebook{}
	if searchQuiet {
		output = display.Silent{}
	}

	templateCfg, err := template.LoadConfig(cfg.DrainConfigFile)
	if err != nil {
		return fail(logger, "failed to load template config", err)
	}
	pipeline := preparation.New(cfg, templateCfg, output)
	table, err := pipeline.Load(ctx)
	if err != nil {
		return fail(logger, "failed to prepare dataset", err)
	}

	strategies, err := buildStrategies(cfg.Strategies)
	if err != nil {
		return fail(logger, "invalid strategy configuration", err)
	}

	settings, err := search.NewSettings(cfg.ServiceFilter, cfg.ContentFilter, cfg.DuplicateFilterCol, output)
	if err != nil {
		return fail(logger, "invalid search settings", err)
	}

	start := time.Now()
	var result search.RootCauseSet
	if cached, ok := cache.Get(cfg.DatasetName, errorLineID); ok {
		result, _ = cached.(search.RootCauseSet)
		m.RecordSidecarCacheHit("root_cause_set")
	} else {
		m.RecordSidecarCacheMiss("root_cause_set")
		engine := search.New(table, settings, strategies)
		result, err = engine.Search(errorLineID)
		if err != nil {
			m.RecordSearch(false, time.Since(start))
			tracing.RecordError(span, err)
			return fail(logger, "search failed", err)
		}
		cache.Set(cfg.DatasetName, errorLineID, result)
	}

	for _, entry := range result {
		for _, s := range entry.Strategies {
			m.RecordCandidate(s.Name())
		}
	}
	m.RecordSearch(true, time.Since(start))
	tracing.SetResultCount(span, len(result))

	if searchQuiet {
		for _, entry := range result {
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", entry.LineID, entry.Message.Content)
		}
	}
	return nil
}

// buildStrategies converts the configured StrategyConfig list into
// validated Strategy values, failing fast with BadStrategy on the first
// invalid column selector.
func buildStrategies(configs []config.StrategyConfig) ([]strategy.Strategy, error) {
	if len(configs) == 0 {
		return nil, rcerrors.New(rcerrors.CodeBadStrategy, rcerrors.ClientError, "no strategies configured")
	}
	strategies := make([]strategy.Strategy, 0, len(configs))
	for _, c := range configs {
		s, err := strategy.New(
			messagetable.Column(c.IntersectionOccurrencesCol),
			messagetable.Column(c.IntersectionCol),
			messagetable.Column(c.HiddenOccurrencesCol),
			messagetable.Column(c.UniquenessCol),
			c.WindowSeconds,
			c.MaxNoise,
		)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, *s)
	}
	return strategies, nil
}
