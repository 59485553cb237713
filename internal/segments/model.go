package segments

import (
	"math"
	"strings"
)

// Directions controls which strand orientations the oracle may place a segment in.
type Directions struct {
	FivePrime  bool
	ThreePrime bool
}

// Segment is a candidate motif with a tunable binding energy.
type Segment struct {
	ID         string
	FivePrime  string
	ThreePrime string
	Bonds      string
	Energy     float64
	Directions Directions
}

// WithEnergy returns a copy of the segment carrying the provided energy.
func (s Segment) WithEnergy(energy float64) Segment {
	s.Energy = energy
	return s
}

// Structure is one known structure of a target along with the segments it uses.
type Structure struct {
	Links      []string
	DotBracket string
}

// Target is a named RNA from the segment document.
type Target struct {
	Name       string
	Sequence   string
	Organism   string
	Structures []Structure
}

// AssociatedSegments returns the unique linked segment IDs in order of first appearance.
func (t Target) AssociatedSegments() []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, st := range t.Structures {
		for _, link := range st.Links {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			ids = append(ids, link)
		}
	}
	return ids
}

// Document is the parsed segment definition file.
type Document struct {
	Segments []Segment
	Targets  []Target
	index    map[string]int
}

// Segment looks up a segment by ID.
func (d *Document) Segment(id string) (Segment, bool) {
	if d == nil {
		return Segment{}, false
	}
	idx, ok := d.index[id]
	if !ok {
		return Segment{}, false
	}
	return d.Segments[idx], true
}

var sequenceCleaner = strings.NewReplacer(" ", "", "\t", "", "'", "", `"`, "", "\r", "", "\n", "")

// NormalizeSequence trims, strips whitespace and quotes, uppercases and maps T to U.
func NormalizeSequence(seq string) string {
	seq = sequenceCleaner.Replace(strings.TrimSpace(seq))
	return strings.ReplaceAll(strings.ToUpper(seq), "T", "U")
}

// IsRNA reports whether seq is a non-empty string over ACGU.
func IsRNA(seq string) bool {
	if seq == "" {
		return false
	}
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'U':
		default:
			return false
		}
	}
	return true
}

// RoundEnergy rounds an energy to the four decimals the oracle works with.
func RoundEnergy(e float64) float64 {
	return math.Round(e*1e4) / 1e4
}
