package template

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestTrainIsDeterministicForIdenticalContent(t *testing.T) {
	a := New(DefaultConfig())
	first := a.Train("user 42 failed login")
	second := a.Train("user 42 failed login")
	if first != second {
		t.Errorf("expected identical content to yield identical templates, got %q vs %q", first, second)
	}
}

func TestTrainGroupsSimilarMessages(t *testing.T) {
	a := New(DefaultConfig())
	t1 := a.Train("user 42 failed login")
	t2 := a.Train("user 57 failed login")
	if t1 != t2 {
		t.Errorf("expected messages differing only in a numeric id to share a template, got %q vs %q", t1, t2)
	}
}

func TestMatchReturnsEmptyStringWhenNothingMatches(t *testing.T) {
	a := New(DefaultConfig())
	if got := a.Match("never trained on anything like this"); got != "" {
		t.Errorf("expected empty template for an untrained miner, got %q", got)
	}
}

func TestMatchAfterTrainFindsClusterWithoutMutating(t *testing.T) {
	a := New(DefaultConfig())
	trained := a.Train("connection refused on port 8080")

	matched := a.Match("connection refused on port 9090")
	if matched == "" {
		t.Fatal("expected Match to find the trained cluster")
	}
	if matched != trained {
		t.Errorf("expected Match to agree with the trained template, got %q vs %q", matched, trained)
	}
}

func TestSaveAndLoadRoundTripsLearnedTemplates(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "dataset.drain.bin")

	a := New(DefaultConfig())
	want := a.Train("disk usage at 42 percent")
	if err := a.Save(statePath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored, err := Load(DefaultConfig(), statePath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := restored.Match("disk usage at 99 percent")
	if got != want {
		t.Errorf("expected restored assigner to match the persisted template, got %q want %q", got, want)
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	a, err := Load(DefaultConfig(), filepath.Join(dir, "absent.drain.bin"))
	if err != nil {
		t.Fatalf("expected missing state file to be tolerated, got %v", err)
	}
	if got := a.Match("anything"); got != "" {
		t.Errorf("expected an empty-state assigner to match nothing, got %q", got)
	}
}

func TestExtractParametersReadsWildcardGaps(t *testing.T) {
	a := New(DefaultConfig())
	tmpl := "user <*> failed login"
	params := a.ExtractParameters("user 42 failed login", tmpl)
	if len(params) != 1 || params[0] != "42" {
		t.Errorf("expected a single extracted parameter \"42\", got %v", params)
	}
}

func TestExtractParametersNoPlaceholderReturnsNil(t *testing.T) {
	a := New(DefaultConfig())
	if got := a.ExtractParameters("boot complete", "boot complete"); got != nil {
		t.Errorf("expected nil when the template has no placeholder, got %v", got)
	}
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	_, err := LoadConfig("/nonexistent/drain-config.json")
	if err == nil {
		t.Error("expected MissingCacheInput error for a missing drain config file")
	}
}

func TestLoadConfigEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("expected defaults for an empty path, got %+v", cfg)
	}
}

// TestTrainTemplateStaysStableAsClusterGrows guards against a cluster's
// String() metadata (its member count) leaking into the returned template:
// training the same content repeatedly grows the cluster's size but must
// never change the template string.
func TestTrainTemplateStaysStableAsClusterGrows(t *testing.T) {
	a := New(DefaultConfig())
	first := a.Train("user 42 failed login")
	for i := 0; i < 10; i++ {
		got := a.Train("user 42 failed login")
		if got != first {
			t.Fatalf("template changed as cluster grew: %q vs %q", got, first)
		}
	}
}

func TestExtractPatternStripsClusterMetadataPrefix(t *testing.T) {
	got := extractPattern("id=3 : size=12 : user <*> failed login")
	if want := "user <*> failed login"; got != want {
		t.Errorf("extractPattern(%q) = %q, want %q", "id=3 : size=12 : user <*> failed login", got, want)
	}
}

func TestExtractPatternWithoutSeparatorReturnsInput(t *testing.T) {
	if got := extractPattern("no separator here"); got != "no separator here" {
		t.Errorf("expected input unchanged, got %q", got)
	}
}
