package csvio

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	table := Table{
		Headers: []string{"line_id", "content"},
		Rows: [][]string{
			{"0", "boot"},
			{"1", "idle"},
		},
	}

	if err := Write(path, table); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !Exists(path) {
		t.Fatal("expected file to exist after Write")
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[1][1] != "idle" {
		t.Errorf("unexpected round-tripped rows: %+v", got.Rows)
	}
}

func TestExistsFalseForMissingFile(t *testing.T) {
	if Exists(filepath.Join(t.TempDir(), "nope.csv")) {
		t.Error("expected Exists to report false for a missing file")
	}
}

func TestReadMissingFileFails(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Error("expected an error reading a missing file")
	}
}

func TestReadEmptyFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := Write(path, Table{}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Error("expected an error reading a file with no header row")
	}
}
