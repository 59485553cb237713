// Package preflight provides readiness checks for the oracle binary and the
// temp directory that an estimate run depends on.
//
// These checks run in two contexts:
//   - estimaterun calls RunAll before enumerating combinations. If any check
//     fails the run aborts with services.ErrOracleUnavailable before a single
//     probe is issued.
//   - The CLI "energysplit check" command prints every Result.
package preflight
