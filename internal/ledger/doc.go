// Package ledger records estimate runs and their per-combination units in a
// local SQLite database.
//
// A run row stores the effective settings as JSON. Unit rows move from
// pending to running and end as done or failed, carrying the transition
// count, probe count and error text. The schema is embedded and versioned;
// a mismatch is reported as ErrSchemaMismatch rather than migrated. Writes
// retry briefly when SQLite reports the database as busy.
package ledger
