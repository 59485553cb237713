package oracle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"energysplit/internal/segments"
)

const dotBracketAlphabet = ".()[]{}<>"

// ParseOutput parses the three-line oracle result:
//
//	>Sequence length: 25bp, dE: -12.3 kcal/mole, segments: 1
//	GCUCUGACCGAAAGGCGUGAUGAGC
//	((((.......))))..........
func ParseOutput(stdout []byte) (Outcome, error) {
	lines := strings.Split(strings.ReplaceAll(string(stdout), "\r\n", "\n"), "\n")
	if len(lines) < 3 {
		return Outcome{}, fmt.Errorf("expected 3 output lines, got %d", len(lines))
	}
	header := lines[0]
	sequence := strings.TrimSpace(lines[1])
	structure := strings.TrimSpace(lines[2])

	energy, err := parseFreeEnergy(header)
	if err != nil {
		return Outcome{}, err
	}
	if sequence == "" {
		return Outcome{}, errors.New("missing sequence line")
	}
	if structure == "" {
		return Outcome{}, errors.New("missing structure line")
	}
	if idx := strings.IndexFunc(structure, func(r rune) bool { return !strings.ContainsRune(dotBracketAlphabet, r) }); idx >= 0 {
		return Outcome{}, fmt.Errorf("structure has invalid character %q at %d", structure[idx], idx)
	}
	if len(structure) != len(sequence) {
		return Outcome{}, fmt.Errorf("structure length %d does not match sequence length %d", len(structure), len(sequence))
	}

	return Outcome{
		FreeEnergy: energy,
		Sequence:   sequence,
		Structure:  structure,
		Segments:   parseSegmentCount(header),
	}, nil
}

func parseFreeEnergy(header string) (float64, error) {
	_, rest, ok := strings.Cut(header, "dE:")
	if !ok {
		return 0, fmt.Errorf("header %q has no dE field", strings.TrimSpace(header))
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, fmt.Errorf("header %q has an empty dE field", strings.TrimSpace(header))
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], ","), 64)
	if err != nil {
		return 0, fmt.Errorf("parse dE %q: %w", fields[0], err)
	}
	return segments.RoundEnergy(value), nil
}

func parseSegmentCount(header string) int {
	_, rest, ok := strings.Cut(header, "segments:")
	if !ok {
		return -1
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSuffix(fields[0], ","))
	if err != nil {
		return -1
	}
	return n
}
