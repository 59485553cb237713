package bisect_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"energysplit/internal/bisect"
	"energysplit/internal/oracle"
	"energysplit/internal/segments"
	"energysplit/internal/services"
)

// thresholdProber folds into one more base pair for every threshold at or
// below the probed energy.
type thresholdProber struct {
	mu         sync.Mutex
	thresholds []float64
	failAbove  float64
	calls      int
	energies   []float64
}

func (p *thresholdProber) Probe(ctx context.Context, sequence string, seg segments.Segment) (oracle.Outcome, error) {
	p.mu.Lock()
	p.calls++
	p.energies = append(p.energies, seg.Energy)
	p.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return oracle.Outcome{}, err
	}
	if p.failAbove != 0 && seg.Energy > p.failAbove {
		return oracle.Outcome{}, services.Wrap(services.ErrProbeFailed, "test", "probe", "boom", nil)
	}
	n := 0
	for _, t := range p.thresholds {
		if seg.Energy >= t {
			n++
		}
	}
	return oracle.Outcome{
		Sequence:  sequence,
		Structure: strings.Repeat("(", n) + "." + strings.Repeat(")", n),
		Segments:  -1,
	}, nil
}

var seg = segments.Segment{ID: "Kt-7", FivePrime: "CGUGAU", Bonds: "xxx..x", ThreePrime: "UGA"}

const sequence25 = "GCUCUGACCGAAAGGCGUGAUGAGC"

func newBisector(t *testing.T, prober oracle.Prober, parallel bool) *bisect.Bisector {
	t.Helper()
	b, err := bisect.New(prober, bisect.Options{
		Precision:        0.005,
		PerBaseBound:     1.75,
		Metric:           oracle.MetricPairs,
		Parallel:         parallel,
		MaxParallelDepth: 4,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return b
}

func TestRootIntervalAndMaxDepth(t *testing.T) {
	lo, hi := bisect.RootInterval(25, 1.75)
	if lo != -43.75 || hi != 43.75 {
		t.Fatalf("unexpected root interval [%v, %v]", lo, hi)
	}
	if got := bisect.MaxDepth(hi-lo, 0.005); got != 15 {
		t.Fatalf("MaxDepth = %d, want 15", got)
	}
	if got := bisect.MaxDepth(0.004, 0.005); got != 0 {
		t.Fatalf("MaxDepth below precision = %d, want 0", got)
	}
	if got := bisect.MaxDepth(10, 0.3); got != int(math.Ceil(math.Log2(10/0.3))) {
		t.Fatalf("MaxDepth(10, 0.3) = %d", got)
	}
}

func TestNoTransitionWhenBoundsAgree(t *testing.T) {
	prober := &thresholdProber{}
	b := newBisector(t, prober, false)

	transitions, stats, err := b.Search(context.Background(), sequence25, seg, b.Root(len(sequence25)))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 0 {
		t.Fatalf("expected no transitions, got %+v", transitions)
	}
	if stats.Probes != 2 || prober.calls != 2 {
		t.Fatalf("expected exactly two probes, got stats=%d calls=%d", stats.Probes, prober.calls)
	}
	if prober.energies[0] != -43.75 || prober.energies[1] != 43.75 {
		t.Fatalf("expected root bounds to be probed, got %v", prober.energies)
	}
}

// shiftProber folds into the same number of pairs on either side of zero,
// at different positions.
type shiftProber struct{}

func (shiftProber) Probe(_ context.Context, sequence string, seg segments.Segment) (oracle.Outcome, error) {
	structure := "((..)).."
	if seg.Energy >= 0 {
		structure = "..((..))"
	}
	return oracle.Outcome{Sequence: sequence, Structure: structure, Segments: -1}, nil
}

func TestDifferentStringsWithEqualPairsAreNotTransitions(t *testing.T) {
	const sequence = "GGAACCAA"
	b := newBisector(t, shiftProber{}, false)
	transitions, stats, err := b.Search(context.Background(), sequence, seg, b.Root(len(sequence)))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 0 {
		t.Fatalf("expected no transitions for equal pair counts, got %+v", transitions)
	}
	if stats.Probes != 2 {
		t.Fatalf("expected only the root bounds to be probed, got %d", stats.Probes)
	}

	byString, err := bisect.New(shiftProber{}, bisect.Options{Precision: 0.005, PerBaseBound: 1.75, Metric: oracle.MetricStructure})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	transitions, _, err = byString.Search(context.Background(), sequence, seg, byString.Root(len(sequence)))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 1 || math.Abs(transitions[0].Energy) > 0.005 {
		t.Fatalf("structure metric should find the shift near zero, got %+v", transitions)
	}
}

func TestSingleTransitionIsLocated(t *testing.T) {
	prober := &thresholdProber{thresholds: []float64{10.123}}
	b := newBisector(t, prober, false)

	transitions, stats, err := b.Search(context.Background(), sequence25, seg, b.Root(len(sequence25)))
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 1 {
		t.Fatalf("expected one transition, got %+v", transitions)
	}
	tr := transitions[0]
	if math.Abs(tr.Energy-10.123) > 0.005 {
		t.Fatalf("transition energy %v too far from threshold", tr.Energy)
	}
	if tr.StructureMin != "." || tr.StructureMax != "(.)" {
		t.Fatalf("unexpected structures: min %q max %q", tr.StructureMin, tr.StructureMax)
	}
	if stats.MaxDepth != 15 {
		t.Fatalf("expected leaf depth 15, got %d", stats.MaxDepth)
	}
	if stats.MaxDepth > bisect.MaxDepth(87.5, 0.005) {
		t.Fatalf("depth %d exceeds bound", stats.MaxDepth)
	}
	// Two root probes plus one midpoint probe per half at each of 15 splits.
	if stats.Probes != 32 {
		t.Fatalf("expected 32 probes, got %d", stats.Probes)
	}
}

func TestTransitionsAreOrderedLowToHigh(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		prober := &thresholdProber{thresholds: []float64{5.5, -20.25, 31.1}}
		b := newBisector(t, prober, parallel)

		transitions, err := b.FindTransitions(context.Background(), sequence25, seg)
		if err != nil {
			t.Fatalf("FindTransitions(parallel=%v) returned error: %v", parallel, err)
		}
		if len(transitions) != 3 {
			t.Fatalf("parallel=%v: expected 3 transitions, got %+v", parallel, transitions)
		}
		want := []float64{-20.25, 5.5, 31.1}
		for i, tr := range transitions {
			if math.Abs(tr.Energy-want[i]) > 0.005 {
				t.Fatalf("parallel=%v: transition %d at %v, want near %v", parallel, i, tr.Energy, want[i])
			}
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	thresholds := []float64{-40.1, -3.3, 0.7, 12.9}
	seqProber := &thresholdProber{thresholds: thresholds}
	parProber := &thresholdProber{thresholds: thresholds}

	sequential, seqStats, err := newBisector(t, seqProber, false).Search(context.Background(), sequence25, seg, bisect.SearchInterval{Lo: -43.75, Hi: 43.75})
	if err != nil {
		t.Fatalf("sequential search: %v", err)
	}
	parallel, parStats, err := newBisector(t, parProber, true).Search(context.Background(), sequence25, seg, bisect.SearchInterval{Lo: -43.75, Hi: 43.75})
	if err != nil {
		t.Fatalf("parallel search: %v", err)
	}
	if len(sequential) != len(parallel) {
		t.Fatalf("result count differs: %d vs %d", len(sequential), len(parallel))
	}
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Fatalf("transition %d differs: %+v vs %+v", i, sequential[i], parallel[i])
		}
	}
	if seqStats != parStats {
		t.Fatalf("stats differ: %+v vs %+v", seqStats, parStats)
	}
}

func TestNarrowDivergingIntervalYieldsMidpoint(t *testing.T) {
	prober := &thresholdProber{thresholds: []float64{1.001}}
	b := newBisector(t, prober, false)

	iv, err := bisect.NewInterval(1, 1.00390625, 0)
	if err != nil {
		t.Fatalf("NewInterval: %v", err)
	}
	transitions, stats, err := b.Search(context.Background(), sequence25, seg, iv)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 1 || transitions[0].Energy != 1.001953125 {
		t.Fatalf("expected single transition at the midpoint, got %+v", transitions)
	}
	if stats.Probes != 2 || stats.MaxDepth != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCachedBoundsAreReused(t *testing.T) {
	prober := &thresholdProber{thresholds: []float64{100}}
	b := newBisector(t, prober, false)

	same := oracle.Outcome{Structure: "."}
	iv := bisect.SearchInterval{Lo: -1, Hi: 1, LoOutcome: &same, HiOutcome: &same}
	transitions, stats, err := b.Search(context.Background(), sequence25, seg, iv)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(transitions) != 0 || stats.Probes != 0 || prober.calls != 0 {
		t.Fatalf("expected cached bounds to short-circuit, got %+v %+v calls=%d", transitions, stats, prober.calls)
	}
}

func TestSplitKeepsOuterBounds(t *testing.T) {
	lo := oracle.Outcome{Structure: "lo"}
	hi := oracle.Outcome{Structure: "hi"}
	iv := bisect.SearchInterval{Lo: -8, Hi: 8, Depth: 2, LoOutcome: &lo, HiOutcome: &hi}

	low, high := iv.Split()
	if low.Lo != -8 || low.Hi != 0 || high.Lo != 0 || high.Hi != 8 {
		t.Fatalf("unexpected halves: %+v %+v", low, high)
	}
	if low.Depth != 3 || high.Depth != 3 {
		t.Fatalf("unexpected depths: %d %d", low.Depth, high.Depth)
	}
	if low.LoOutcome != &lo || low.HiOutcome != nil || high.HiOutcome != &hi || high.LoOutcome != nil {
		t.Fatal("halves must keep only their outer cached outcome")
	}
	if iv.Width() != 16 || iv.Midpoint() != 0 {
		t.Fatal("original interval must be unchanged")
	}
}

func TestProbeErrorAbortsSearch(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		prober := &thresholdProber{thresholds: []float64{-10}, failAbove: 30}
		b := newBisector(t, prober, parallel)

		_, _, err := b.Search(context.Background(), sequence25, seg, b.Root(len(sequence25)))
		if !errors.Is(err, services.ErrProbeFailed) {
			t.Fatalf("parallel=%v: expected ErrProbeFailed, got %v", parallel, err)
		}
	}
}

func TestCancelledContextStopsSearch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := newBisector(t, &thresholdProber{thresholds: []float64{0.5}}, false)
	if _, err := b.FindTransitions(ctx, sequence25, seg); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	prober := &thresholdProber{}
	cases := map[string]bisect.Options{
		"zero precision":   {Precision: 0, PerBaseBound: 1.75},
		"negative bound":   {Precision: 0.005, PerBaseBound: -1},
		"negative fan-out": {Precision: 0.005, PerBaseBound: 1.75, MaxParallelDepth: -1},
	}
	for name, opts := range cases {
		if _, err := bisect.New(prober, opts); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("%s: expected ErrConfiguration, got %v", name, err)
		}
	}
	if _, err := bisect.New(nil, bisect.Options{Precision: 1, PerBaseBound: 1}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for nil prober, got %v", err)
	}
	if _, err := bisect.NewInterval(2, 1, 0); err == nil {
		t.Fatal("expected error for inverted interval")
	}
}
