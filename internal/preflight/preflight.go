package preflight

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"energysplit/internal/config"
	"energysplit/internal/oracle"
	"energysplit/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// VersionProber reports the oracle's release.
type VersionProber interface {
	Version(ctx context.Context) (oracle.Version, error)
}

// RunAll executes the temp directory and oracle checks for cfg.
func RunAll(ctx context.Context, cfg *config.Config, client VersionProber) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir)}
	results = append(results, CheckOracle(ctx, cfg.Oracle.Binary, client)...)
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed checks into one services.ErrOracleUnavailable error, or
// returns nil when all passed.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrOracleUnavailable, "preflight", "run checks",
		strings.Join(parts, "; "), errors.New("preflight failed"))
}
