package shuffle_test

import (
	"slices"
	"strings"
	"testing"

	"energysplit/internal/segments"
	"energysplit/internal/shuffle"
)

const snord = "GCUCUGACCGAAAGGCGUGAUGAGC"

var kturn = []segments.Segment{{ID: "Kt-7", FivePrime: "CGUGAU", ThreePrime: "UGA", Bonds: "xxx..x"}}

func TestMotifsOrderAndReversal(t *testing.T) {
	segs := []segments.Segment{
		{ID: "a", FivePrime: "gu", ThreePrime: "ACGU"},
		{ID: "b", FivePrime: "CGUGAU", ThreePrime: ""},
	}
	got := shuffle.Motifs(segs)
	want := []string{"CGUGAU", "UGCA", "GU"}
	if !slices.Equal(got, want) {
		t.Fatalf("Motifs = %v, want %v", got, want)
	}
}

func TestTokenize(t *testing.T) {
	tokens := shuffle.Tokenize(snord, shuffle.Motifs(kturn))
	if len(tokens) != 20 {
		t.Fatalf("expected 20 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[15] != "CGUGAU" {
		t.Fatalf("expected motif token at index 15, got %v", tokens)
	}
	if strings.Join(tokens, "") != "gcucugaccgaaaggCGUGAUgagc" {
		t.Fatalf("unexpected token stream %q", strings.Join(tokens, ""))
	}
}

func TestTokenizePrefersLongestMotif(t *testing.T) {
	tokens := shuffle.Tokenize("AAGUGA", []string{"AGUG", "AG"})
	want := []string{"a", "AGUG", "a"}
	if !slices.Equal(tokens, want) {
		t.Fatalf("Tokenize = %v, want %v", tokens, want)
	}
}

func TestShufflePreservesMotifsAndComposition(t *testing.T) {
	rng := shuffle.NewRand(42, 0)
	motifs := shuffle.Motifs(kturn)
	original := shuffle.Tokenize(snord, motifs)
	slices.Sort(original)

	for i := 0; i < 20; i++ {
		shuffled := shuffle.Shuffle(rng, snord, kturn)
		if len(shuffled) != len(snord) {
			t.Fatalf("length changed: %d vs %d", len(shuffled), len(snord))
		}
		if !strings.Contains(shuffled, "CGUGAU") {
			t.Fatalf("motif lost in %q", shuffled)
		}
		if strings.ToUpper(shuffled) == shuffled {
			t.Fatalf("non-motif bases should be lowercased: %q", shuffled)
		}
		tokens := shuffle.Tokenize(shuffled, motifs)
		slices.Sort(tokens)
		if !slices.Equal(tokens, original) {
			t.Fatalf("token multiset changed:\n got %v\nwant %v", tokens, original)
		}
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := shuffle.Shuffle(shuffle.NewRand(7, 3), snord, kturn)
	b := shuffle.Shuffle(shuffle.NewRand(7, 3), snord, kturn)
	if a != b {
		t.Fatalf("same seed produced %q and %q", a, b)
	}
}

func TestShuffleWithoutMotifsKeepsComposition(t *testing.T) {
	out := shuffle.Shuffle(shuffle.NewRand(1, 1), "ACGU", nil)
	if out != strings.ToLower(out) || sortedUpper(out) != "ACGU" {
		t.Fatalf("unexpected shuffle %q", out)
	}
}

func sortedUpper(s string) string {
	b := []byte(strings.ToUpper(s))
	slices.Sort(b)
	return string(b)
}
