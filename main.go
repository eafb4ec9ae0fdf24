// Command rootcause finds the plausible root-cause lines for an error in a
// structured log dataset: normalize and cluster the raw CSV into comparable
// templates, then correlate candidate lines against an error line using
// time-window intersection and noise-filtered uniqueness checks.
//
// Configuration is provided through environment variables or a JSON file
// referenced by ROOTCAUSE_CONFIG_FILE:
//   - ROOTCAUSE_DATASET_NAME: logical name for the dataset's cache files (required)
//   - ROOTCAUSE_SOURCE_CSV_FILE: path to the raw source CSV (required)
//   - ROOTCAUSE_STORAGE_DIR: directory for cache files (default: ./storage)
//   - ROOTCAUSE_DRAIN_CONFIG_FILE: path to a JSON template-miner config (optional)
//   - ENVIRONMENT: (Optional) Set to "production" for production logging
//
// Example usage:
//
//	export ROOTCAUSE_DATASET_NAME="incident-42"
//	export ROOTCAUSE_SOURCE_CSV_FILE="./incident-42.csv"
//	./rootcause prepare
//	./rootcause search 104213
package main

import (
	"fmt"
	"os"

	"github.com/arianrashidi/rootcause-go/internal/cmd"
)

// version is set at build time via ldflags, e.g. -X main.version={{.Version}}.
var version = "dev"

func main() {
	cmd.Version = version

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
