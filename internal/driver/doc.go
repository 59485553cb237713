// Package driver enumerates (sequence, segment) combinations and runs one
// transition search per combination, or per shuffled replicate, on a bounded
// worker pool. Results are handed back in enumeration order regardless of
// which worker finished first.
package driver
