package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"energysplit/internal/deps"
)

// CheckOracle resolves the oracle binary, confirms it is executable and asks
// it for its version. Later checks are skipped once one fails.
func CheckOracle(ctx context.Context, binary string, client VersionProber) []Result {
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:        "segmentation-fold",
		Command:     binary,
		Description: "Required to fold every probe",
	}})
	lookup := statuses[0]
	if !lookup.Available {
		return []Result{{Name: "Oracle binary", Detail: lookup.Detail}}
	}
	results := []Result{{Name: "Oracle binary", Passed: true, Detail: lookup.Path}}

	if err := unix.Access(lookup.Path, unix.X_OK); err != nil {
		return append(results, Result{Name: "Oracle executable", Detail: fmt.Sprintf("%s (error: not executable: %v)", lookup.Path, err)})
	}
	results = append(results, Result{Name: "Oracle executable", Passed: true, Detail: "execute ok"})

	if client == nil {
		return results
	}
	version, err := client.Version(ctx)
	if err != nil {
		return append(results, Result{Name: "Oracle version", Detail: err.Error()})
	}
	return append(results, Result{Name: "Oracle version", Passed: true, Detail: version.String()})
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}
