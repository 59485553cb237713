package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOracle()
	c.normalizeEngine()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.SegmentsXML, err = expandPath(strings.TrimSpace(c.Paths.SegmentsXML)); err != nil {
		return fmt.Errorf("paths.segments_xml: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeOracle() {
	if value, ok := os.LookupEnv("SEGMENTATION_FOLD"); ok && strings.TrimSpace(value) != "" {
		c.Oracle.Binary = value
	}
	c.Oracle.Binary = strings.TrimSpace(c.Oracle.Binary)
	if c.Oracle.Binary == "" {
		c.Oracle.Binary = defaultOracleBinary
	}
	c.Oracle.MinVersion = strings.TrimSpace(c.Oracle.MinVersion)
	if c.Oracle.MinVersion == "" {
		c.Oracle.MinVersion = defaultOracleMinVersion
	}
}

func (c *Config) normalizeEngine() {
	c.Engine.Metric = strings.ToLower(strings.TrimSpace(c.Engine.Metric))
	if c.Engine.Metric == "" {
		c.Engine.Metric = defaultMetric
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
