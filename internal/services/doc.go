// Package services defines shared utilities consumed by the oracle client,
// the transition search and the run orchestration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, combination names and shuffle
//     replicates for logging.
//   - Structured error markers plus the Wrap helper that separate failures
//     fatal to a run from failures local to one combination.
//
// Use these helpers when adding new components so error classification stays
// uniform across the tool.
package services
