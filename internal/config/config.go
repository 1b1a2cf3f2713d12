package config

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"docforge/internal/common"
)

// Config holds engine configuration, resolved once at startup.
type Config struct {
	Addr            string
	WorkingDir      string
	ArtifactDir     string
	DataDir         string
	DatabasePath    string
	GhostscriptPath string
	ToolTimeout     time.Duration
	ArtifactTTL     time.Duration
	SweepInterval   time.Duration
	MaxUploadBytes  int64
	RiskySizeBytes  int64
	Logger          *slog.Logger
}

// toolCandidates are probed in order; the first hit wins. An empty result
// means fallback mode for the compression engine.
var toolCandidates = []string{"gs", "gswin64c", "gswin32c"}

// New creates a new configuration instance
func New() *Config {
	cfg := &Config{
		Addr:           getEnv("DOCFORGE_ADDR", ":8080"),
		ToolTimeout:    common.ToolTimeout,
		ArtifactTTL:    common.ArtifactTTL,
		SweepInterval:  common.SweepInterval,
		MaxUploadBytes: common.MaxUploadBytes,
		RiskySizeBytes: common.RiskySizeBytes,
		Logger:         slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}

	if v := os.Getenv("DOCFORGE_TOOL_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.ToolTimeout = time.Duration(secs) * time.Second
		}
	}

	cfg.setupDirectories()
	cfg.setupGhostscriptPath()

	return cfg
}

func (c *Config) setupDirectories() {
	// Working directory holds per-request temp files, artifacts live beside it.
	c.WorkingDir = filepath.Join(os.TempDir(), "docforge")
	c.ArtifactDir = filepath.Join(c.WorkingDir, "artifacts")
	os.MkdirAll(c.ArtifactDir, common.DefaultFilePermissions)

	// Data directory holds the preferences/statistics database.
	c.DataDir = getEnv("DOCFORGE_DATA_DIR", c.WorkingDir)
	os.MkdirAll(c.DataDir, common.DefaultFilePermissions)
	c.DatabasePath = filepath.Join(c.DataDir, "docforge.sqlite3")
}

// setupGhostscriptPath probes for a quality-reduction binary once per process.
// Requests never re-probe; they read the cached result.
func (c *Config) setupGhostscriptPath() {
	if p := os.Getenv("DOCFORGE_GS_BIN"); p != "" {
		c.GhostscriptPath = p
		c.Logger.Info("Using configured Ghostscript", "path", p)
		return
	}

	for _, name := range toolCandidates {
		if path, err := exec.LookPath(name); err == nil {
			c.GhostscriptPath = path
			c.Logger.Info("Found Ghostscript", "path", path)
			return
		}
	}

	c.Logger.Warn("No Ghostscript binary found, compression will use structural resave fallback")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
