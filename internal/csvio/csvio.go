// Package csvio is the narrow boundary between the preparation pipeline and
// the filesystem: read a CSV into headers+rows, write headers+rows back out.
// No third-party CSV library appears anywhere in the retrieval pack, so this
// stays on encoding/csv rather than inventing a dependency the corpus never
// reaches for.
package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
)

// Table is a CSV file's contents: a header row and the data rows beneath it,
// in file order.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Read parses the CSV file at path. The first row is treated as the header.
func Read(path string) (Table, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from validated Settings
	if err != nil {
		return Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("%s has no header row", path)
	}

	return Table{Headers: records[0], Rows: records[1:]}, nil
}

// Write renders t to path via a temp file in the same directory followed by
// an atomic rename, so a crash mid-write never leaves path holding a partial
// CSV.
func Write(path string, t Table) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath) // #nosec G304 -- path comes from validated Settings
	if err != nil {
		return fmt.Errorf("create %s: %w", tmpPath, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Headers); err != nil {
		f.Close()
		return fmt.Errorf("write header to %s: %w", tmpPath, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows to %s: %w", tmpPath, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
