package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file and directory locations used by a run.
type Paths struct {
	TempDir     string `toml:"temp_dir"`
	SegmentsXML string `toml:"segments_xml"`
	LedgerPath  string `toml:"ledger_path"`
}

// Oracle contains settings for the segmentation-fold binary.
type Oracle struct {
	Binary         string `toml:"binary"`
	Threads        int    `toml:"threads"`
	MinVersion     string `toml:"min_version"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Engine contains settings for the transition search and combination driver.
type Engine struct {
	// Threads is the worker pool size; each worker owns one combination at a time.
	Threads      int     `toml:"threads"`
	Precision    float64 `toml:"precision"`
	PerBaseBound float64 `toml:"per_base_bound"`
	// Randomize is the number of shuffled replicates per combination. Zero
	// searches the original sequence only.
	Randomize int    `toml:"randomize"`
	Seed      uint64 `toml:"seed"`
	Metric    string `toml:"metric"`
	// ParallelProbes lets one search probe both bounds and both halves
	// concurrently. Only enable it for oracles that tolerate concurrent runs.
	ParallelProbes   bool `toml:"parallel_probes"`
	MaxParallelDepth int  `toml:"max_parallel_depth"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for energysplit.
//
// Configuration sections by subsystem:
//   - Paths: temp namespace, segment document and run ledger
//   - Oracle: segmentation-fold binary, per-invocation threads, version floor
//   - Engine: bisection precision, search bounds, worker pool, replicates
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Oracle  Oracle  `toml:"oracle"`
	Engine  Engine  `toml:"engine"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("energysplit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the temp directory and the ledger's parent directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.TempDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.TempDir, err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) != "" {
		dir := filepath.Dir(c.Paths.LedgerPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerEnabled reports whether runs are recorded in the SQLite ledger.
func (c *Config) LedgerEnabled() bool {
	return strings.TrimSpace(c.Paths.LedgerPath) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
