// Package config provides configuration management for the rootcause
// search session.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings holds all configuration for a rootcause search session,
// corresponding to the specification's SearchSettings record.
type Settings struct {
	// Dataset identity and cache locations.
	DatasetName     string `json:"dataset_name"`
	SourceCSVFile   string `json:"source_csv_file"`
	StorageDir      string `json:"storage_dir"`
	DrainConfigFile string `json:"drain_config_file,omitempty"`

	// Candidate filtering, applied after a strategy match and before a
	// RootCauseEntry is recorded.
	ServiceFilter      []string `json:"service_filter,omitempty"`
	ContentFilter      []string `json:"content_filter,omitempty"`
	DuplicateFilterCol string   `json:"duplicate_filter_col,omitempty"`

	// Strategies configures the search engine's correlation attempts, run
	// in order. Only overridable via ROOTCAUSE_CONFIG_FILE; there is no
	// flat-env-var encoding for a list of structs.
	Strategies []StrategyConfig `json:"strategies,omitempty"`

	// ParallelProcessing enables errgroup-based chunked template
	// assignment during preparation; ChunkSize bounds each chunk.
	ParallelProcessing bool `json:"parallel_processing"`
	ChunkSize          int  `json:"chunk_size"`

	// Health & Metrics HTTP Server
	HealthPort      int           `json:"health_port"`      // 0 disables the server
	HealthBindAddr  string        `json:"health_bind_addr"` // default: 127.0.0.1
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// Observability
	EnableTracing   bool `json:"enable_tracing"`
	MetricsEndpoint bool `json:"metrics_endpoint"`

	// Result caching (internal/resultcache), keyed by (dataset, errorLineID).
	EnableResultCache bool          `json:"enable_result_cache"`
	ResultCacheTTL    time.Duration `json:"result_cache_ttl"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"` // json or console
}

// StrategyConfig is the JSON-configurable shape of one
// internal/strategy.Strategy, before column names are validated.
type StrategyConfig struct {
	IntersectionOccurrencesCol string `json:"intersection_occurrences_col"`
	IntersectionCol            string `json:"intersection_col"`
	HiddenOccurrencesCol       string `json:"hidden_occurrences_col"`
	UniquenessCol              string `json:"uniqueness_col"`
	WindowSeconds              int    `json:"window_seconds"`
	MaxNoise                   int    `json:"max_noise"`
}

// defaultStrategies mirrors the reference SearchStrategy's constructor
// defaults: content occurrences intersected on service_template_id, noise
// measured by content uniqueness, a 2 second window and a noise budget of 1.
func defaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{
			IntersectionOccurrencesCol: "content",
			IntersectionCol:            "service_template_id",
			HiddenOccurrencesCol:       "service_template_id",
			UniquenessCol:              "content",
			WindowSeconds:              2,
			MaxNoise:                   1,
		},
	}
}

// Load builds Settings from a config file (if ROOTCAUSE_CONFIG_FILE is
// set) overridden by environment variables, applying defaults first.
func Load() (*Settings, error) {
	s := &Settings{
		StorageDir:         "./storage",
		ParallelProcessing: true,
		ChunkSize:          2_000_000,
		HealthPort:         8080,
		HealthBindAddr:     "127.0.0.1",
		ShutdownTimeout:    30 * time.Second,
		EnableTracing:      true,
		MetricsEndpoint:    true,
		EnableResultCache:  true,
		ResultCacheTTL:     5 * time.Minute,
		LogLevel:           "info",
		LogFormat:          "json",
		Strategies:         defaultStrategies(),
	}

	if configFile := os.Getenv("ROOTCAUSE_CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(s, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	loadFromEnv(s)

	return s, nil
}

func loadFromFile(s *Settings, path string) error {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return json.Unmarshal(data, s)
}

func loadFromEnv(s *Settings) {
	loadStringEnvs(s)
	loadListEnvs(s)
	loadDurationEnvs(s)
	loadIntEnvs(s)
	loadBoolEnvs(s)
}

func loadStringEnvs(s *Settings) {
	if v := os.Getenv("ROOTCAUSE_DATASET_NAME"); v != "" {
		s.DatasetName = v
	}
	if v := os.Getenv("ROOTCAUSE_SOURCE_CSV_FILE"); v != "" {
		s.SourceCSVFile = v
	}
	if v := os.Getenv("ROOTCAUSE_STORAGE_DIR"); v != "" {
		s.StorageDir = v
	}
	if v := os.Getenv("ROOTCAUSE_DRAIN_CONFIG_FILE"); v != "" {
		s.DrainConfigFile = v
	}
	if v := os.Getenv("ROOTCAUSE_DUPLICATE_FILTER_COL"); v != "" {
		s.DuplicateFilterCol = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		s.LogFormat = v
	}
	if v := os.Getenv("ROOTCAUSE_HEALTH_BIND_ADDR"); v != "" {
		s.HealthBindAddr = v
	}
}

// loadListEnvs parses comma-separated regex lists.
func loadListEnvs(s *Settings) {
	if v := os.Getenv("ROOTCAUSE_SERVICE_FILTER"); v != "" {
		s.ServiceFilter = splitNonEmpty(v)
	}
	if v := os.Getenv("ROOTCAUSE_CONTENT_FILTER"); v != "" {
		s.ContentFilter = splitNonEmpty(v)
	}
}

func splitNonEmpty(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadDurationEnvs(s *Settings) {
	if v := os.Getenv("ROOTCAUSE_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("ROOTCAUSE_RESULT_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.ResultCacheTTL = d
		}
	}
}

func loadIntEnvs(s *Settings) {
	if v := os.Getenv("ROOTCAUSE_CHUNK_SIZE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			s.ChunkSize = n
		}
	}
	if v := os.Getenv("ROOTCAUSE_HEALTH_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			s.HealthPort = port
		}
	}
}

func loadBoolEnvs(s *Settings) {
	if v := os.Getenv("ROOTCAUSE_PARALLEL_PROCESSING"); v != "" {
		s.ParallelProcessing = v == "true" || v == "1"
	}
	if v := os.Getenv("ROOTCAUSE_ENABLE_TRACING"); v != "" {
		s.EnableTracing = v == "true" || v == "1"
	}
	if v := os.Getenv("ROOTCAUSE_METRICS_ENDPOINT"); v != "" {
		s.MetricsEndpoint = v == "true" || v == "1"
	}
	if v := os.Getenv("ROOTCAUSE_ENABLE_RESULT_CACHE"); v != "" {
		s.EnableResultCache = v == "true" || v == "1"
	}
}

// Validate checks that Settings is complete and internally consistent.
// Called eagerly, unlike the reference implementation's lazily cached
// settings object: a malformed dataset_name or storage_dir should fail
// before any CSV is touched, not on first access.
func (s *Settings) Validate() error {
	if s.DatasetName == "" {
		return errors.New("dataset_name is required")
	}
	if s.SourceCSVFile == "" {
		return errors.New("source_csv_file is required")
	}
	if s.StorageDir == "" {
		return errors.New("storage_dir is required")
	}
	if s.ChunkSize <= 0 {
		return errors.New("chunk_size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", s.LogLevel)
	}

	if _, err := os.Stat(s.SourceCSVFile); err != nil {
		return fmt.Errorf("source_csv_file not accessible: %w", err)
	}

	return nil
}

// Redact returns a copy of Settings with no sensitive fields; none of
// the fields here are secret, but the method is kept so a caller logging
// Settings never needs to special-case this type against ones that do
// carry credentials.
func (s *Settings) Redact() *Settings {
	redacted := *s
	return &redacted
}
