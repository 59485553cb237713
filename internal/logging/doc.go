// Package logging assembles structured slog loggers and formatting helpers used
// across energysplit.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so search and driver code can tag log lines
// with run IDs, combination names and shuffle replicates. Logs always go to
// stderr by default because stdout carries result output.
package logging
