package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.csv")
	if err := os.WriteFile(path, []byte("line_id,timestamp,content,service\n"), 0o644); err != nil {
		t.Fatalf("failed to write temp csv: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if s.ChunkSize != 2_000_000 {
		t.Errorf("expected default chunk size 2000000, got %d", s.ChunkSize)
	}
	if !s.ParallelProcessing {
		t.Error("expected parallel_processing to default to true")
	}
	if s.StorageDir != "./storage" {
		t.Errorf("expected default storage dir ./storage, got %q", s.StorageDir)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Clearenv()
	csv := writeTempCSV(t)

	os.Setenv("ROOTCAUSE_DATASET_NAME", "incident-42")
	os.Setenv("ROOTCAUSE_SOURCE_CSV_FILE", csv)
	os.Setenv("ROOTCAUSE_STORAGE_DIR", t.TempDir())
	os.Setenv("ROOTCAUSE_SERVICE_FILTER", "db, auth ,")
	os.Setenv("ROOTCAUSE_CHUNK_SIZE", "500")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if s.DatasetName != "incident-42" {
		t.Errorf("expected dataset_name incident-42, got %q", s.DatasetName)
	}
	if s.ChunkSize != 500 {
		t.Errorf("expected chunk_size 500, got %d", s.ChunkSize)
	}
	want := []string{"db", "auth"}
	if len(s.ServiceFilter) != len(want) {
		t.Fatalf("expected %v, got %v", want, s.ServiceFilter)
	}
	for i := range want {
		if s.ServiceFilter[i] != want[i] {
			t.Errorf("expected %v, got %v", want, s.ServiceFilter)
		}
	}
}

func TestValidateRequiresDatasetName(t *testing.T) {
	s := &Settings{SourceCSVFile: "x.csv", StorageDir: "./storage", ChunkSize: 1, LogLevel: "info"}
	if err := s.Validate(); err == nil {
		t.Error("expected error when dataset_name is missing")
	}
}

func TestValidateRejectsMissingSourceFile(t *testing.T) {
	s := &Settings{
		DatasetName:   "d",
		SourceCSVFile: filepath.Join(t.TempDir(), "does-not-exist.csv"),
		StorageDir:    "./storage",
		ChunkSize:     1,
		LogLevel:      "info",
	}
	if err := s.Validate(); err == nil {
		t.Error("expected error when source_csv_file does not exist")
	}
}

func TestValidateAcceptsCompleteSettings(t *testing.T) {
	csv := writeTempCSV(t)
	s := &Settings{
		DatasetName:   "d",
		SourceCSVFile: csv,
		StorageDir:    "./storage",
		ChunkSize:     1,
		LogLevel:      "info",
	}
	if err := s.Validate(); err != nil {
		t.Errorf("expected valid settings to pass, got %v", err)
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	csv := writeTempCSV(t)
	s := &Settings{
		DatasetName:   "d",
		SourceCSVFile: csv,
		StorageDir:    "./storage",
		ChunkSize:     1,
		LogLevel:      "verbose",
	}
	if err := s.Validate(); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestRedactReturnsCopy(t *testing.T) {
	s := &Settings{DatasetName: "d"}
	r := s.Redact()
	if r == s {
		t.Error("expected Redact to return a distinct copy")
	}
	if r.DatasetName != s.DatasetName {
		t.Error("expected redacted copy to preserve fields")
	}
}
