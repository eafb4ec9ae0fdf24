// Package template wraps the Drain log-template miner and adapts it to the
// two operations the preparation pipeline and search engine actually
// consume: train on a message, and match a message against clusters learned
// so far. It also persists the learned template set to disk via temp-file
// and atomic rename, so a crash mid-training never leaves a corrupt state
// file behind.
package template

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/faceair/drain"

	"github.com/arianrashidi/rootcause-go/internal/rcerrors"
)

// Config tunes the underlying Drain parse tree. Field names and defaults
// mirror the Go Drain wrapper's own DrainConfig/DefaultDrainConfig.
type Config struct {
	LogClusterDepth     int      `json:"log_cluster_depth"`
	SimilarityThreshold float64  `json:"similarity_threshold"`
	MaxChildren         int      `json:"max_children"`
	MaxClusters         int      `json:"max_clusters"`
	ExtraDelimiters     []string `json:"extra_delimiters"`
	ParamString         string   `json:"param_string"`
}

// DefaultConfig returns the recommended tuning for structured service logs.
func DefaultConfig() Config {
	return Config{
		LogClusterDepth:     4,
		SimilarityThreshold: 0.4,
		MaxChildren:         100,
		MaxClusters:         0,
		ExtraDelimiters:     []string{"_", "="},
		ParamString:         "<*>",
	}
}

// LoadConfig reads a JSON-encoded Config from path. An empty path returns
// DefaultConfig. A missing file fails with MissingCacheInput, matching the
// error taxonomy's treatment of the drain_config_file input.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, rcerrors.NewMissingCacheInput("drain_config_file", path)
		}
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) toDrainConfig() *drain.Config {
	return &drain.Config{
		LogClusterDepth: c.LogClusterDepth,
		SimTh:           c.SimilarityThreshold,
		MaxChildren:     c.MaxChildren,
		MaxClusters:     c.MaxClusters,
		ExtraDelimiters: c.ExtraDelimiters,
		ParamString:     c.ParamString,
	}
}

// Assigner trains and matches log templates. Identical content always yields
// an identical template once the corpus it was trained on is fixed: Train
// and Match both resolve to the same clustering decision for the same
// string. A nil/no-match cluster yields the empty template string, which
// downstream grouping treats as its own equivalence class rather than an
// error - the corpus's rare, un-clusterable outliers are simply lumped
// together.
type Assigner struct {
	mu       sync.Mutex
	miner    *drain.Drain
	cfg      Config
	seen     map[string]bool
	learned  []string
}

// New creates an Assigner with no prior training.
func New(cfg Config) *Assigner {
	return &Assigner{
		miner: drain.New(cfg.toDrainConfig()),
		cfg:   cfg,
		seen:  make(map[string]bool),
	}
}

// Load recreates an Assigner from a persisted state file. A missing file is
// not an error: the Assigner simply starts untrained, matching the
// reference's "start empty on first run" behavior.
func Load(cfg Config, statePath string) (*Assigner, error) {
	a := New(cfg)

	data, err := os.ReadFile(statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return a, nil
		}
		return nil, err
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	for _, tmpl := range st.Templates {
		a.miner.Train(tmpl)
		a.record(tmpl)
	}
	return a, nil
}

// state is the on-disk persistence format: the distinct templates learned
// so far, in first-appearance order. faceair/drain does not expose its
// internal parse tree for serialization, so rather than pickle raw engine
// state (as the reference drain3 wrapper does), the wrapper persists the
// distilled template set and re-trains a fresh tree from it on Load. Since
// Train/Match's only observable contract is "identical content yields
// identical templates", re-seeding from the learned template strings
// reconstructs an equivalent clustering for every template already
// discovered.
type state struct {
	Templates []string `json:"templates"`
}

// Train submits content for clustering, returning the template it was
// assigned (newly created or merged into an existing cluster).
func (a *Assigner) Train(content string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	cluster := a.miner.Train(content)
	tmpl := clusterTemplate(cluster)
	a.record(tmpl)
	return tmpl
}

// Match returns the template of the best matching cluster for content
// without updating the model, or "" if nothing matches closely enough.
func (a *Assigner) Match(content string) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	cluster := a.miner.Match(content)
	return clusterTemplate(cluster)
}

func (a *Assigner) record(tmpl string) {
	if tmpl == "" || a.seen[tmpl] {
		return
	}
	a.seen[tmpl] = true
	a.learned = append(a.learned, tmpl)
}

func clusterTemplate(c *drain.LogCluster) string {
	if c == nil {
		return ""
	}
	return extractPattern(c.String())
}

// extractPattern strips the "id={X} : size={Y} : " metadata prefix that
// (*drain.LogCluster).String() prepends to its pattern, returning just the
// pattern. size grows as a cluster accumulates members, so without this the
// same content would render a different string on every Train call.
func extractPattern(clusterStr string) string {
	lastSep := strings.LastIndex(clusterStr, " : ")
	if lastSep == -1 {
		return clusterStr
	}
	return strings.TrimSpace(clusterStr[lastSep+3:])
}

// Save persists the learned template set to statePath via a temp file in
// the same directory followed by an atomic rename, so a crash mid-write
// never leaves statePath holding a partial file.
func (a *Assigner) Save(statePath string) error {
	a.mu.Lock()
	st := state{Templates: append([]string{}, a.learned...)}
	a.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := statePath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, statePath)
}

// ExtractParameters returns the substrings of content that template's
// wildcard placeholders stand in for, in order. It matches the reference
// TemplateParser's extract_template_parameters, which delegates to drain3's
// get_parameter_list: split the template on its param placeholder, treat
// the surrounding text as literal anchors, and read off what content has in
// the gaps between them.
func (a *Assigner) ExtractParameters(content, tmpl string) []string {
	placeholder := a.cfg.ParamString
	if placeholder == "" {
		placeholder = "<*>"
	}
	if tmpl == "" || !strings.Contains(tmpl, placeholder) {
		return nil
	}

	segments := strings.Split(tmpl, placeholder)
	var pattern strings.Builder
	pattern.WriteString("^")
	for i, seg := range segments {
		if i > 0 {
			pattern.WriteString("(.*?)")
		}
		pattern.WriteString(regexp.QuoteMeta(seg))
	}
	pattern.WriteString("$")

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return nil
	}
	match := re.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	return match[1:]
}
