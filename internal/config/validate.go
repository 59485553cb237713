package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	validMetrics    = []string{"pairs", "helices", "segments", "structure"}
	versionFloorPat = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		return errors.New("paths.temp_dir must be set")
	}
	return nil
}

func (c *Config) validateOracle() error {
	if c.Oracle.Threads <= 0 {
		return errors.New("oracle.threads must be positive")
	}
	if c.Oracle.TimeoutSeconds < 0 {
		return errors.New("oracle.timeout_seconds must not be negative (0 disables the timeout)")
	}
	if !versionFloorPat.MatchString(c.Oracle.MinVersion) {
		return fmt.Errorf("oracle.min_version %q must look like MAJOR.MINOR.PATCH", c.Oracle.MinVersion)
	}
	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.Threads <= 0 {
		return errors.New("engine.threads must be positive")
	}
	if c.Engine.Precision <= 0 {
		return errors.New("engine.precision must be positive")
	}
	if c.Engine.PerBaseBound <= 0 {
		return errors.New("engine.per_base_bound must be positive")
	}
	if c.Engine.Randomize < 0 {
		return errors.New("engine.randomize must not be negative")
	}
	if c.Engine.MaxParallelDepth < 0 {
		return errors.New("engine.max_parallel_depth must not be negative")
	}
	if !contains(validMetrics, c.Engine.Metric) {
		return fmt.Errorf("engine.metric %q is not one of %s", c.Engine.Metric, strings.Join(validMetrics, ", "))
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
