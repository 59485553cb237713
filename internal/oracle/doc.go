// Package oracle drives the segmentation-fold binary.
//
// A Client writes a single-segment document per probe, runs the binary with
// the sequence and the document, and parses the three-line result (header with
// the free energy, echoed sequence, dot-bracket structure). Version checks the
// installed build against a minimum. Metric turns an Outcome into the
// complexity signal the transition search compares.
//
// Command execution goes through the Executor interface so tests can inject
// canned output without a real binary.
package oracle
