// Package testsupport builds throwaway configs, inputs and a scripted oracle
// for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"energysplit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The ledger lives under the same base directory so tests never touch the
// user's home.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.SegmentsXML = filepath.Join(base, "segments.xml")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "state", "ledger.db")
	if err := os.MkdirAll(cfgVal.Paths.TempDir, 0o755); err != nil {
		t.Fatalf("mkdir temp dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutLedger disables the run ledger.
func WithoutLedger() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LedgerPath = ""
	}
}

// WithSegmentsDocument writes content as the segment XML document.
func WithSegmentsDocument(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Paths.SegmentsXML, content)
	}
}

// WithFakeOracle writes a scripted segmentation-fold into the base directory,
// points the config at it and prepends its directory to PATH.
func WithFakeOracle(fake FakeOracle) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		b.cfg.Oracle.Binary = WriteFakeOracle(b.t, binDir, fake)
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SegmentsXML)
}
