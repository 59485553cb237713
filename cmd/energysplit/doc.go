// Package main hosts the energysplit CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, applies flag overrides
// and hands off to the internal packages: estimaterun for searches, dbn for
// filtering result files, preflight for environment checks and ledger for run
// history. Commands stay thin; new behavior belongs in internal/ first.
package main
