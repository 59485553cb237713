// Package shuffle builds negative-control sequences that keep segment motifs
// intact while permuting everything around them.
package shuffle

import (
	"math/rand/v2"
	"slices"
	"strings"

	"energysplit/internal/segments"
)

// Motifs returns the motif strings protected during shuffling: each segment's
// 5' side and its reversed 3' side, longest first. Empty motifs are dropped.
func Motifs(segs []segments.Segment) []string {
	motifs := make([]string, 0, 2*len(segs))
	for _, seg := range segs {
		if m := segments.NormalizeSequence(seg.FivePrime); m != "" {
			motifs = append(motifs, m)
		}
		if m := reverse(segments.NormalizeSequence(seg.ThreePrime)); m != "" {
			motifs = append(motifs, m)
		}
	}
	slices.SortStableFunc(motifs, func(a, b string) int {
		return len(b) - len(a)
	})
	return motifs
}

// Tokenize splits sequence into motif tokens and single lowercased bases,
// scanning left to right and preferring the first listed motif.
func Tokenize(sequence string, motifs []string) []string {
	tokens := make([]string, 0, len(sequence))
	for i := 0; i < len(sequence); {
		matched := ""
		for _, m := range motifs {
			if m != "" && strings.HasPrefix(sequence[i:], m) {
				matched = m
				break
			}
		}
		if matched != "" {
			tokens = append(tokens, matched)
			i += len(matched)
			continue
		}
		tokens = append(tokens, strings.ToLower(sequence[i:i+1]))
		i++
	}
	return tokens
}

// Shuffle permutes the tokens of sequence with rng. Motif occurrences stay
// uppercase and contiguous; other bases come back lowercased.
func Shuffle(rng *rand.Rand, sequence string, segs []segments.Segment) string {
	tokens := Tokenize(sequence, Motifs(segs))
	rng.Shuffle(len(tokens), func(i, j int) {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	})
	return strings.Join(tokens, "")
}

// NewRand returns the deterministic generator for one combination.
func NewRand(seed uint64, combination int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(combination)))
}

func reverse(s string) string {
	b := []byte(s)
	slices.Reverse(b)
	return string(b)
}
