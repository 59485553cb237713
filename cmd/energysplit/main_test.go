package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"energysplit/internal/config"
	"energysplit/internal/services"
	"energysplit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	opts = append([]testsupport.ConfigOption{
		testsupport.WithSegmentsDocument(testsupport.SegmentsDocument),
		testsupport.WithFakeOracle(testsupport.FakeOracle{Threshold: 0}),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Logging.Level = "error"
	cfg.Engine.Seed = 5

	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("SEGMENTATION_FOLD", "")

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	payload, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

func TestEstimateWritesOutputFile(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(env.baseDir, "snord.dbn")

	_, stderr, err := runCLI(t, []string{"estimate", output}, env.configPath)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, stderr, "1 unit, 1 transition written to "+output)

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, sequence and one transition, got %q", data)
	}
	if lines[0] != ">SNORD13 x K-turn" || lines[1] != "GCUCUGACCGAAAGGCGUGAUGAGC" {
		t.Fatalf("unexpected output: %q", data)
	}
	if fields := strings.Split(lines[2], "\t"); len(fields) != 3 {
		t.Fatalf("unexpected transition line %q", lines[2])
	}
}

func TestEstimateToStdoutThenLedgerShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"estimate", "--randomize", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, out, ">SNORD13 (shuffle iteration: 1) x K-turn")
	requireContains(t, out, ">SNORD13 (shuffle iteration: 2) x K-turn")

	out, _, err = runCLI(t, []string{"ledger", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("ledger show: %v", err)
	}
	requireContains(t, out, "== Recorded Run ==")
	requireContains(t, out, "finished")
	requireContains(t, out, "2 replicates, seed 5")
	requireContains(t, out, "Done")
	requireContains(t, out, "SNORD13")
}

func TestEstimateReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithFakeOracle(testsupport.FakeOracle{FailSequence: "GCUCUGACCGAAAGGCGUGAUGAGC"}))

	_, stderr, err := runCLI(t, []string{"estimate", filepath.Join(env.baseDir, "out.dbn")}, env.configPath)
	if err == nil || err.Error() != "1 of 1 combinations failed" {
		t.Fatalf("expected failure summary error, got %v", err)
	}
	requireContains(t, stderr, "== Failed Combinations ==")
	requireContains(t, stderr, "K-turn")
	requireContains(t, stderr, "probe failed")
}

func TestEstimateRejectsInvalidFlags(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"estimate", "--precision", "0"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	_, _, err = runCLI(t, []string{"estimate", "--metric", "entropy"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for metric, got %v", err)
	}
}

func TestEstimateFlagOverridesDocument(t *testing.T) {
	env := setupCLITestEnv(t)
	other := filepath.Join(env.baseDir, "other.xml")
	testsupport.WriteText(t, other, strings.ReplaceAll(testsupport.SegmentsDocument, "SNORD13", "renamed"))

	out, _, err := runCLI(t, []string{"estimate", "--xml-file", other, "--ledger", "none"}, env.configPath)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, out, ">renamed x K-turn")
}

func TestFilterCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "results.dbn")
	below := filepath.Join(t.TempDir(), "below.dbn")
	testsupport.WriteText(t, input, ">a x s\nACGU\n(..)\t....\t-2.5\n>b x s\nACGU\n(..)\t....\t3\n>c x s\nACGU\n")

	out, _, err := runCLI(t, []string{"filter", input, "--threshold", "0", "--below", below}, "")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if out != ">b x s\nACGU\n(..)\t....\t3\n" {
		t.Fatalf("unexpected filter output %q", out)
	}
	data, err := os.ReadFile(below)
	if err != nil {
		t.Fatalf("read below: %v", err)
	}
	if string(data) != ">a x s\nACGU\n(..)\t....\t-2.5\n>c x s\nACGU\n" {
		t.Fatalf("unexpected below output %q", data)
	}
}

func TestCheckAndVersion(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "== Environment ==")
	requireContains(t, out, "[OK] 1.7.0 (release)")
	requireContains(t, out, "Temp directory")

	out, _, err = runCLI(t, []string{"version"}, env.configPath)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "energysplit ")
	requireContains(t, out, "segmentation-fold 1.7.0 (release)")
}

func TestCheckFailsWithoutOracle(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Oracle.Binary = filepath.Join(env.baseDir, "missing")
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if !errors.Is(err, services.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}
