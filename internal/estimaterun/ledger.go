package estimaterun

import (
	"context"
	"log/slog"

	"energysplit/internal/config"
	"energysplit/internal/driver"
	"energysplit/internal/ledger"
	"energysplit/internal/logging"
)

// book mirrors unit progress into the run ledger. Ledger failures are logged
// and never fail the run; a nil store turns every method into a no-op.
type book struct {
	store  *ledger.Store
	runID  string
	logger *slog.Logger
}

func openBook(ctx context.Context, cfg *config.Config, runID string, opts Options, combos []driver.Combination, logger *slog.Logger) *book {
	b := &book{runID: runID, logger: logger}
	if !cfg.LedgerEnabled() {
		return b
	}

	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		b.warn("open run ledger", err)
		return b
	}
	settings := ledger.Settings{
		Binary:      cfg.Oracle.Binary,
		SegmentsXML: cfg.Paths.SegmentsXML,
		FastaPath:   opts.FastaPath,
		Precision:   cfg.Engine.Precision,
		PerBase:     cfg.Engine.PerBaseBound,
		Metric:      cfg.Engine.Metric,
		Threads:     cfg.Engine.Threads,
		Randomize:   cfg.Engine.Randomize,
		Seed:        cfg.Engine.Seed,
		Parallel:    cfg.Engine.ParallelProbes,
	}
	if _, err := store.CreateRun(ctx, runID, opts.OutputPath, settings); err != nil {
		b.warn("record run", err)
		b.closeStore(store)
		return b
	}
	if err := store.AddUnits(ctx, runID, unitsFor(combos, cfg.Engine.Randomize)); err != nil {
		b.warn("record units", err)
		b.closeStore(store)
		return b
	}
	b.store = store
	return b
}

func unitsFor(combos []driver.Combination, randomize int) []ledger.Unit {
	units := make([]ledger.Unit, 0, driver.UnitCount(combos, randomize))
	for _, c := range combos {
		if randomize <= 0 {
			units = append(units, ledger.Unit{Combination: c.Index, Name: c.Name, Segment: c.Segment.ID})
			continue
		}
		for i := 1; i <= randomize; i++ {
			units = append(units, ledger.Unit{Combination: c.Index, Replicate: i, Name: c.Name, Segment: c.Segment.ID})
		}
	}
	return units
}

func keyOf(r driver.Result) ledger.UnitKey {
	return ledger.UnitKey{Combination: r.Index, Replicate: r.Replicate}
}

func (b *book) running(ctx context.Context, r driver.Result) {
	if b.store == nil {
		return
	}
	if err := b.store.MarkRunning(context.WithoutCancel(ctx), b.runID, keyOf(r)); err != nil {
		b.warn("mark unit running", err)
	}
}

func (b *book) finished(ctx context.Context, r driver.Result) {
	if b.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if r.Err != nil {
		err = b.store.MarkFailed(ctx, b.runID, keyOf(r), r.Stats.Probes, r.Err.Error())
	} else {
		err = b.store.MarkDone(ctx, b.runID, keyOf(r), len(r.Transitions), r.Stats.Probes)
	}
	if err != nil {
		b.warn("record unit result", err)
	}
}

func (b *book) finish(s *Summary) {
	if b.store == nil {
		return
	}
	if err := b.store.FinishRun(context.Background(), b.runID, s.Units, len(s.Failed)); err != nil {
		b.warn("finish run", err)
	}
}

func (b *book) close() {
	if b.store == nil {
		return
	}
	b.closeStore(b.store)
	b.store = nil
}

func (b *book) closeStore(store *ledger.Store) {
	if err := store.Close(); err != nil {
		b.warn("close ledger", err)
	}
}

func (b *book) warn(op string, err error) {
	logging.WarnWithContext(b.logger, "run ledger write failed", "ledger_error",
		logging.String("operation", op),
		logging.String(logging.FieldErrorHint, "check ledger_path permissions or delete the ledger"),
		logging.Error(err),
	)
}
