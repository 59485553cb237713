package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"energysplit/internal/bisect"
	"energysplit/internal/logging"
	"energysplit/internal/segments"
	"energysplit/internal/services"
	"energysplit/internal/shuffle"
)

// Searcher runs one transition search. prefix names the probe documents the
// search writes.
type Searcher interface {
	Search(ctx context.Context, prefix, sequence string, seg segments.Segment) ([]bisect.Transition, bisect.Stats, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, prefix, sequence string, seg segments.Segment) ([]bisect.Transition, bisect.Stats, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, prefix, sequence string, seg segments.Segment) ([]bisect.Transition, bisect.Stats, error) {
	return f(ctx, prefix, sequence, seg)
}

// Options configures a Driver.
type Options struct {
	// Threads is the number of concurrent searches (>=1).
	Threads int
	// Randomize is the number of shuffled replicates per combination; zero
	// searches the original sequence.
	Randomize int
	Seed      uint64
	// OnStart, when set, is called from the worker as each unit begins.
	OnStart func(Result)
	Logger  *slog.Logger
}

// Result is the outcome of one unit of work: a combination, or one shuffled
// replicate of it. Err is set when the search failed.
type Result struct {
	Combination
	Replicate   int
	Header      string
	Sequence    string
	Transitions []bisect.Transition
	Stats       bisect.Stats
	Elapsed     time.Duration
	Err         error
}

// Driver runs searches for many combinations.
type Driver struct {
	searcher Searcher
	opts     Options
	logger   *slog.Logger
}

// New returns a Driver.
func New(searcher Searcher, opts Options) (*Driver, error) {
	if searcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "driver", "new", "searcher required", nil)
	}
	if opts.Randomize < 0 {
		return nil, services.Wrap(services.ErrConfiguration, "driver", "new", "randomize must not be negative", nil)
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	return &Driver{searcher: searcher, opts: opts, logger: logging.NewComponentLogger(opts.Logger, "driver")}, nil
}

// UnitCount returns how many searches Run performs for combos.
func UnitCount(combos []Combination, randomize int) int {
	if randomize > 0 {
		return len(combos) * randomize
	}
	return len(combos)
}

type job struct {
	seq    int
	result Result
}

// Run searches every combination and calls emit with each Result in
// (combination, replicate) order. Failed units are delivered with Err set and
// do not stop the run. Run returns an error only when ctx is cancelled or
// emit fails.
func (d *Driver) Run(ctx context.Context, combos []Combination, emit func(Result) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	threads := d.opts.Threads
	results := make(chan job, threads*2)

	var (
		emitErr error
		cwg     sync.WaitGroup
	)
	cwg.Add(1)
	go func() {
		defer cwg.Done()
		pending := make(map[int]Result)
		next := 0
		for j := range results {
			if emitErr != nil {
				continue
			}
			pending[j.seq] = j.result
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := emit(r); err != nil {
					emitErr = err
					cancel()
					break
				}
			}
		}
	}()

	// Unit failures travel in Result.Err, so the group only sees cancellation.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	seq := 0
feed:
	for _, combo := range combos {
		for _, unit := range d.units(combo) {
			if gctx.Err() != nil {
				break feed
			}
			j := job{seq: seq, result: unit}
			seq++
			g.Go(func() error {
				j.result = d.runUnit(gctx, j.result)
				select {
				case results <- j:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
	}

	groupErr := g.Wait()
	close(results)
	cwg.Wait()

	if emitErr != nil {
		return emitErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return groupErr
}

// units expands a combination into its searches. Shuffled sequences are drawn
// here, in enumeration order, so they depend only on the seed.
func (d *Driver) units(combo Combination) []Result {
	if d.opts.Randomize <= 0 {
		return []Result{{
			Combination: combo,
			Header:      Header(combo.Name, combo.Segment.ID, 0),
			Sequence:    combo.Sequence,
		}}
	}
	rng := shuffle.NewRand(d.opts.Seed, combo.Index)
	segs := []segments.Segment{combo.Segment}
	units := make([]Result, 0, d.opts.Randomize)
	for i := 1; i <= d.opts.Randomize; i++ {
		units = append(units, Result{
			Combination: combo,
			Replicate:   i,
			Header:      Header(combo.Name, combo.Segment.ID, i),
			Sequence:    shuffle.Shuffle(rng, combo.Sequence, segs),
		})
	}
	return units
}

func (d *Driver) runUnit(ctx context.Context, r Result) Result {
	ctx = services.WithCombination(ctx, r.Header)
	ctx = services.WithReplicate(ctx, r.Replicate)
	logger := logging.WithContext(ctx, d.logger)

	if d.opts.OnStart != nil {
		d.opts.OnStart(r)
	}
	started := time.Now()
	prefix := FilePrefix(r.Name, r.Segment.ID, r.Replicate)
	r.Transitions, r.Stats, r.Err = d.searcher.Search(ctx, prefix, r.Sequence, r.Segment)
	r.Elapsed = time.Since(started)

	if r.Err != nil {
		if !errors.Is(r.Err, context.Canceled) {
			logger.Warn("search failed",
				logging.String(logging.FieldSegment, r.Segment.ID),
				logging.String(logging.FieldEventType, "search_failed"),
				logging.String(logging.FieldErrorHint, services.Hint(r.Err)),
				logging.Error(r.Err),
			)
		}
		return r
	}
	logger.Info("search complete",
		logging.String(logging.FieldSegment, r.Segment.ID),
		logging.Int("transitions", len(r.Transitions)),
		logging.Int("probes", r.Stats.Probes),
		logging.Duration("elapsed", r.Elapsed),
	)
	return r
}
