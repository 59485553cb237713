package driver

import (
	"fmt"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"energysplit/internal/fasta"
	"energysplit/internal/segments"
)

// Combination pairs one named sequence with one segment.
type Combination struct {
	Index    int
	Name     string
	Sequence string
	Segment  segments.Segment
}

// Combinations enumerates the work for a run. Without an override every
// document target is paired with its associated segments, or with all
// segments when it links none. With an override every record is paired with
// every segment. A nil override means none was given.
func Combinations(doc *segments.Document, override []fasta.Record) []Combination {
	if doc == nil {
		return nil
	}
	var combos []Combination
	add := func(name, sequence string, seg segments.Segment) {
		combos = append(combos, Combination{Index: len(combos), Name: name, Sequence: sequence, Segment: seg})
	}

	if override != nil {
		for _, rec := range override {
			for _, seg := range doc.Segments {
				add(rec.Name, rec.Sequence, seg)
			}
		}
		return combos
	}

	for _, target := range doc.Targets {
		links := target.AssociatedSegments()
		if len(links) == 0 {
			for _, seg := range doc.Segments {
				add(target.Name, target.Sequence, seg)
			}
			continue
		}
		for _, id := range links {
			if seg, ok := doc.Segment(id); ok {
				add(target.Name, target.Sequence, seg)
			}
		}
	}
	return combos
}

// Header names a search result.
func Header(name, segmentID string, replicate int) string {
	if replicate > 0 {
		return fmt.Sprintf("%s (shuffle iteration: %d) x %s", name, replicate, segmentID)
	}
	return name + " x " + segmentID
}

// FilePrefix is the probe document prefix for one search.
func FilePrefix(name, segmentID string, replicate int) string {
	if replicate > 0 {
		name = fmt.Sprintf("%s (shuffle iteration: %d)", name, replicate)
	}
	return "segments_" + SanitizeName(name) + "_" + SanitizeName(segmentID) + "_"
}

func isNameRune(r rune) bool {
	switch {
	case r == '-', r == '_', r == '.':
		return true
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return true
	}
	return false
}

// SanitizeName makes name safe for file names: spaces and tabs become
// underscores and everything outside [-_.A-Za-z0-9] is dropped.
func SanitizeName(name string) string {
	// transform chains carry buffers, so each call gets its own.
	sanitizer := transform.Chain(
		runes.Map(func(r rune) rune {
			if r == ' ' || r == '\t' {
				return '_'
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool { return !isNameRune(r) })),
	)
	out, _, err := transform.String(sanitizer, name)
	if err != nil {
		return ""
	}
	return out
}
