package bisect

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"energysplit/internal/logging"
	"energysplit/internal/oracle"
	"energysplit/internal/segments"
	"energysplit/internal/services"
)

// Options configures a Bisector.
type Options struct {
	Precision    float64
	PerBaseBound float64
	Metric       oracle.Metric
	// Parallel probes missing bounds and searches both halves concurrently.
	Parallel bool
	// MaxParallelDepth stops concurrent fan-out below this depth.
	MaxParallelDepth int
	Logger           *slog.Logger
}

// Stats summarizes one search.
type Stats struct {
	Probes   int
	MaxDepth int
}

// Bisector runs transition searches against a Prober.
type Bisector struct {
	prober oracle.Prober
	opts   Options
	logger *slog.Logger
}

// New validates opts and returns a Bisector.
func New(prober oracle.Prober, opts Options) (*Bisector, error) {
	if prober == nil {
		return nil, services.Wrap(services.ErrConfiguration, "bisect", "new", "prober required", nil)
	}
	if opts.Precision <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "bisect", "new", "precision must be positive", nil)
	}
	if opts.PerBaseBound <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "bisect", "new", "per-base bound must be positive", nil)
	}
	if opts.MaxParallelDepth < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "bisect", "new", "max parallel depth must not be negative", nil)
	}
	return &Bisector{
		prober: prober,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "bisect"),
	}, nil
}

// Root returns the starting interval for a sequence of length bases.
func (b *Bisector) Root(length int) SearchInterval {
	lo, hi := RootInterval(length, b.opts.PerBaseBound)
	return SearchInterval{Lo: lo, Hi: hi}
}

// FindTransitions searches the full root interval for sequence.
func (b *Bisector) FindTransitions(ctx context.Context, sequence string, seg segments.Segment) ([]Transition, error) {
	transitions, _, err := b.Search(ctx, sequence, seg, b.Root(len(segments.NormalizeSequence(sequence))))
	return transitions, err
}

// Search explores iv and returns the transitions inside it, ordered from low
// to high energy. Any probe error aborts the search.
func (b *Bisector) Search(ctx context.Context, sequence string, seg segments.Segment, iv SearchInterval) ([]Transition, Stats, error) {
	if _, err := NewInterval(iv.Lo, iv.Hi, iv.Depth); err != nil {
		return nil, Stats{}, services.Wrap(services.ErrConfiguration, "bisect", "search", "", err)
	}
	st := &searchStats{}
	transitions, err := b.search(ctx, sequence, seg, iv, st)
	stats := st.snapshot()
	if err != nil {
		return nil, stats, err
	}
	logging.WithContext(ctx, b.logger).Debug("search complete",
		logging.String(logging.FieldSegment, seg.ID),
		logging.Int("transitions", len(transitions)),
		logging.Int("probes", stats.Probes),
		logging.Int("max_depth", stats.MaxDepth),
	)
	return transitions, stats, nil
}

func (b *Bisector) search(ctx context.Context, sequence string, seg segments.Segment, iv SearchInterval, st *searchStats) ([]Transition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.observeDepth(iv.Depth)

	iv, err := b.probeBounds(ctx, sequence, seg, iv, st)
	if err != nil {
		return nil, err
	}
	if !b.opts.Metric.Diverged(*iv.LoOutcome, *iv.HiOutcome) {
		return nil, nil
	}

	if iv.Width() < b.opts.Precision {
		t := Transition{
			StructureMin: iv.LoOutcome.Structure,
			StructureMax: iv.HiOutcome.Structure,
			Energy:       iv.Midpoint(),
		}
		logging.WithContext(ctx, b.logger).Debug("transition found",
			logging.String(logging.FieldSegment, seg.ID),
			logging.Float64("energy", t.Energy),
			logging.Int("depth", iv.Depth),
		)
		return []Transition{t}, nil
	}

	low, high := iv.Split()
	if b.opts.Parallel && iv.Depth < b.opts.MaxParallelDepth {
		return b.searchHalvesConcurrently(ctx, sequence, seg, low, high, st)
	}
	lowResults, err := b.search(ctx, sequence, seg, low, st)
	if err != nil {
		return nil, err
	}
	highResults, err := b.search(ctx, sequence, seg, high, st)
	if err != nil {
		return nil, err
	}
	return append(lowResults, highResults...), nil
}

func (b *Bisector) searchHalvesConcurrently(ctx context.Context, sequence string, seg segments.Segment, low, high SearchInterval, st *searchStats) ([]Transition, error) {
	g, gctx := errgroup.WithContext(ctx)
	var results [2][]Transition
	for i, half := range []SearchInterval{low, high} {
		g.Go(func() error {
			found, err := b.search(gctx, sequence, seg, half, st)
			results[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(results[0], results[1]...), nil
}

func (b *Bisector) probeBounds(ctx context.Context, sequence string, seg segments.Segment, iv SearchInterval, st *searchStats) (SearchInterval, error) {
	var lo, hi oracle.Outcome
	if b.opts.Parallel && iv.LoOutcome == nil && iv.HiOutcome == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			lo, err = b.probe(gctx, sequence, seg, iv.Lo, nil, st)
			return err
		})
		g.Go(func() (err error) {
			hi, err = b.probe(gctx, sequence, seg, iv.Hi, nil, st)
			return err
		})
		if err := g.Wait(); err != nil {
			return iv, err
		}
		return iv.withOutcomes(lo, hi), nil
	}

	lo, err := b.probe(ctx, sequence, seg, iv.Lo, iv.LoOutcome, st)
	if err != nil {
		return iv, err
	}
	hi, err = b.probe(ctx, sequence, seg, iv.Hi, iv.HiOutcome, st)
	if err != nil {
		return iv, err
	}
	return iv.withOutcomes(lo, hi), nil
}

func (b *Bisector) probe(ctx context.Context, sequence string, seg segments.Segment, energy float64, cached *oracle.Outcome, st *searchStats) (oracle.Outcome, error) {
	if cached != nil {
		return *cached, nil
	}
	st.probes.Add(1)
	return b.prober.Probe(ctx, sequence, seg.WithEnergy(energy))
}

type searchStats struct {
	probes   atomic.Int64
	mu       sync.Mutex
	maxDepth int
}

func (s *searchStats) observeDepth(depth int) {
	s.mu.Lock()
	if depth > s.maxDepth {
		s.maxDepth = depth
	}
	s.mu.Unlock()
}

func (s *searchStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Probes: int(s.probes.Load()), MaxDepth: s.maxDepth}
}
