package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check result
type Check struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Checker performs health checks against the on-disk state a search
// session depends on: the storage directory, the optional drain config
// file, and the post-clustering artifact left by the last successful
// preparation run.
type Checker struct {
	datasetName     string
	storageDir      string
	drainConfigFile string
	logger          *zap.Logger
}

// New creates a new health checker.
func New(datasetName, storageDir, drainConfigFile string, logger *zap.Logger) *Checker {
	return &Checker{
		datasetName:     datasetName,
		storageDir:      storageDir,
		drainConfigFile: drainConfigFile,
		logger:          logger,
	}
}

// CheckAll performs all health checks.
func (c *Checker) CheckAll(ctx context.Context) (Status, []Check) {
	checks := []Check{
		c.checkStorageDir(),
		c.checkDrainConfig(),
		c.checkLastPreparation(),
	}

	overallStatus := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		} else if check.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return overallStatus, checks
}

// checkStorageDir verifies the sidecar storage directory exists and is
// writable.
func (c *Checker) checkStorageDir() Check {
	start := time.Now()
	check := Check{Name: "storage_dir", Timestamp: start}

	info, err := os.Stat(c.storageDir)
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("storage dir unreachable: %v", err)
	case !info.IsDir():
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("%s is not a directory", c.storageDir)
	default:
		probe := filepath.Join(c.storageDir, ".rootcause_health_probe")
		if werr := os.WriteFile(probe, []byte("ok"), 0o644); werr != nil {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("storage dir not writable: %v", werr)
		} else {
			_ = os.Remove(probe)
			check.Status = StatusHealthy
			check.Message = "storage dir accessible and writable"
		}
	}

	check.Duration = time.Since(start)
	return check
}

// checkDrainConfig verifies the configured drain config file, if any,
// exists.
func (c *Checker) checkDrainConfig() Check {
	start := time.Now()
	check := Check{Name: "drain_config", Timestamp: start}

	if c.drainConfigFile == "" {
		check.Status = StatusHealthy
		check.Message = "no drain_config_file configured, using defaults"
		check.Duration = time.Since(start)
		return check
	}

	if _, err := os.Stat(c.drainConfigFile); err != nil {
		check.Status = StatusUnhealthy
		check.Message = fmt.Sprintf("drain config unreachable: %v", err)
	} else {
		check.Status = StatusHealthy
		check.Message = "drain config accessible"
	}

	check.Duration = time.Since(start)
	return check
}

// checkLastPreparation verifies the post-clustering sidecar artifact for
// the configured dataset exists, indicating a prior successful preparation.
func (c *Checker) checkLastPreparation() Check {
	start := time.Now()
	check := Check{Name: "last_preparation", Timestamp: start}

	path := filepath.Join(c.storageDir, c.datasetName+".post_clustering.csv")
	info, err := os.Stat(path)
	if err != nil {
		check.Status = StatusDegraded
		check.Message = "no post-clustering artifact yet; run prepare before search"
	} else {
		check.Status = StatusHealthy
		check.Message = fmt.Sprintf("last prepared %s", info.ModTime().UTC().Format(time.RFC3339))
	}

	check.Duration = time.Since(start)
	c.logger.Debug("health check: last preparation", zap.String("status", string(check.Status)))
	return check
}
