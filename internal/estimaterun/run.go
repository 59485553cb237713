// Package estimaterun wires configuration, preflight, the run ledger, the
// combination driver and the result writer into one estimate run.
package estimaterun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"energysplit/internal/bisect"
	"energysplit/internal/config"
	"energysplit/internal/dbn"
	"energysplit/internal/driver"
	"energysplit/internal/fasta"
	"energysplit/internal/logging"
	"energysplit/internal/oracle"
	"energysplit/internal/preflight"
	"energysplit/internal/segments"
	"energysplit/internal/services"
)

// ErrUnitsFailed marks a run where at least one combination or replicate
// failed while the rest completed.
var ErrUnitsFailed = errors.New("combinations failed")

// Options configures a single estimate run.
type Options struct {
	// OutputPath receives the results. Empty or "-" writes to Stdout.
	OutputPath string
	// FastaPath overrides the document's targets when set.
	FastaPath string
	Stdout    io.Writer
	Logger    *slog.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	OutputPath  string
	Units       int
	Seed        uint64
	Transitions int
	Probes      int
	Failed      []driver.Result
	Elapsed     time.Duration
}

// Err reports "N of M combinations failed", or nil when every unit succeeded.
func (s *Summary) Err() error {
	if s == nil || len(s.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d %w", len(s.Failed), s.Units, ErrUnitsFailed)
}

// Run executes one estimate. Failed units do not stop the run; they are
// reported through the returned Summary and an ErrUnitsFailed error after all
// successful results are written.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (*Summary, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	runCfg := *cfg
	cfg = &runCfg
	if cfg.Engine.Seed == 0 {
		cfg.Engine.Seed = uint64(time.Now().UnixNano())
	}

	ctx, stop := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseLogger := opts.Logger
	if baseLogger == nil {
		var err error
		baseLogger, err = logging.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(baseLogger, "estimaterun"))
	started := time.Now()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "estimaterun", "prepare directories", "", err)
	}
	runTemp := filepath.Join(cfg.Paths.TempDir, "energysplit-"+runID)
	if err := os.MkdirAll(runTemp, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "estimaterun", "create temp namespace", runTemp, err)
	}
	defer func() {
		if err := os.RemoveAll(runTemp); err != nil {
			logger.Warn("remove temp namespace", logging.String("path", runTemp), logging.Error(err))
		}
	}()

	client, err := newClient(cfg, runTemp, baseLogger)
	if err != nil {
		return nil, err
	}
	checks := preflight.RunAll(ctx, cfg, client)
	if err := preflight.Err(checks); err != nil {
		logging.ErrorWithContext(logger, "preflight failed", "preflight_failed",
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.Error(err),
		)
		return nil, err
	}

	searcher, bisectOpts, err := newSearcher(cfg, client, baseLogger)
	if err != nil {
		return nil, err
	}

	combos, err := loadCombinations(cfg, opts.FastaPath, baseLogger)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		RunID:      runID,
		OutputPath: opts.OutputPath,
		Units:      driver.UnitCount(combos, cfg.Engine.Randomize),
		Seed:       cfg.Engine.Seed,
	}
	logger.Info("estimate starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("oracle_binary", client.Binary()),
		logging.String("segments_xml", cfg.Paths.SegmentsXML),
		logging.String("fasta", opts.FastaPath),
		logging.Int("combinations", len(combos)),
		logging.Int("units", summary.Units),
		logging.Float64("precision", bisectOpts.Precision),
		logging.String("metric", bisectOpts.Metric.String()),
		logging.Int("threads", cfg.Engine.Threads),
		logging.Bool("parallel_probes", bisectOpts.Parallel),
		logging.Int("randomize", cfg.Engine.Randomize),
		logging.Any("seed", cfg.Engine.Seed),
	)

	out, release, err := openOutput(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	book := openBook(ctx, cfg, runID, opts, combos, logger)
	defer book.close()

	d, err := driver.New(searcher, driver.Options{
		Threads:   cfg.Engine.Threads,
		Randomize: cfg.Engine.Randomize,
		Seed:      cfg.Engine.Seed,
		OnStart:   func(r driver.Result) { book.running(ctx, r) },
		Logger:    baseLogger,
	})
	if err != nil {
		return nil, err
	}

	writer := dbn.NewWriter(out)
	runErr := d.Run(ctx, combos, func(r driver.Result) error {
		summary.Probes += r.Stats.Probes
		if r.Err != nil {
			summary.Failed = append(summary.Failed, r)
			book.finished(ctx, r)
			return nil
		}
		summary.Transitions += len(r.Transitions)
		if err := writer.WriteEntry(dbn.Entry{Header: r.Header, Sequence: r.Sequence, Transitions: r.Transitions}); err != nil {
			return fmt.Errorf("write result %q: %w", r.Header, err)
		}
		book.finished(ctx, r)
		return nil
	})
	if err := writer.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("flush results: %w", err)
	}
	if err := release(); err != nil && runErr == nil {
		runErr = err
	}
	summary.Elapsed = time.Since(started)
	book.finish(summary)

	if runErr != nil {
		logging.ErrorWithContext(logger, "estimate aborted", "run_aborted", logging.Error(runErr))
		return summary, runErr
	}

	for _, r := range summary.Failed {
		logging.ErrorWithContext(logger, "combination failed", "unit_failed",
			logging.String(logging.FieldCombination, r.Header),
			logging.String(logging.FieldSegment, r.Segment.ID),
			logging.String(logging.FieldErrorHint, services.Hint(r.Err)),
			logging.Error(r.Err),
		)
	}
	logger.Info("estimate complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("units", summary.Units),
		logging.Int("failed", len(summary.Failed)),
		logging.Int("transitions", summary.Transitions),
		logging.Int("probes", summary.Probes),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return summary, summary.Err()
}

func newClient(cfg *config.Config, tempDir string, logger *slog.Logger) (*oracle.Client, error) {
	floor, err := oracle.ParseVersionFloor(cfg.Oracle.MinVersion)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "estimaterun", "parse min_version", cfg.Oracle.MinVersion, err)
	}
	return oracle.New(cfg.Oracle.Binary,
		oracle.WithTempDir(tempDir),
		oracle.WithThreads(cfg.Oracle.Threads),
		oracle.WithTimeout(time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second),
		oracle.WithMinVersion(floor),
		oracle.WithLogger(logger),
	)
}

// newSearcher validates the bisection options once and returns a searcher
// that gives each unit its own file prefix.
func newSearcher(cfg *config.Config, client *oracle.Client, logger *slog.Logger) (driver.Searcher, bisect.Options, error) {
	metric, err := oracle.ParseMetric(cfg.Engine.Metric)
	if err != nil {
		return nil, bisect.Options{}, services.Wrap(services.ErrConfiguration, "estimaterun", "parse metric", "", err)
	}
	opts := bisect.Options{
		Precision:        cfg.Engine.Precision,
		PerBaseBound:     cfg.Engine.PerBaseBound,
		Metric:           metric,
		Parallel:         cfg.Engine.ParallelProbes,
		MaxParallelDepth: cfg.Engine.MaxParallelDepth,
		Logger:           logger,
	}
	if _, err := bisect.New(client, opts); err != nil {
		return nil, opts, err
	}
	searcher := driver.SearcherFunc(func(ctx context.Context, prefix, sequence string, seg segments.Segment) ([]bisect.Transition, bisect.Stats, error) {
		b, err := bisect.New(client.ForCombination(prefix), opts)
		if err != nil {
			return nil, bisect.Stats{}, err
		}
		return b.Search(ctx, sequence, seg, b.Root(len(segments.NormalizeSequence(sequence))))
	})
	return searcher, opts, nil
}

func loadCombinations(cfg *config.Config, fastaPath string, logger *slog.Logger) ([]driver.Combination, error) {
	doc, err := segments.Load(cfg.Paths.SegmentsXML)
	if err != nil {
		return nil, err
	}
	var override []fasta.Record
	if strings.TrimSpace(fastaPath) != "" {
		override, err = fasta.Read(fastaPath, logging.NewComponentLogger(logger, "fasta"))
		if err != nil {
			return nil, err
		}
		if override == nil {
			override = []fasta.Record{}
		}
	}
	return driver.Combinations(doc, override), nil
}

// openOutput opens the result destination. File outputs are guarded by an
// exclusive lock on "<output>.lock".
// The returned release closes and unlocks once; later calls return nil.
func openOutput(opts Options) (io.Writer, func() error, error) {
	path := strings.TrimSpace(opts.OutputPath)
	if path == "" || path == "-" {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}
		return stdout, func() error { return nil }, nil
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("another energysplit run is writing %s", path)
	}

	file, err := os.Create(path)
	if err != nil {
		_ = lock.Unlock()
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	var once sync.Once
	release := func() error {
		var err error
		once.Do(func() {
			if closeErr := file.Close(); closeErr != nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
			if unlockErr := lock.Unlock(); unlockErr != nil && err == nil {
				err = fmt.Errorf("release output lock: %w", unlockErr)
			}
		})
		return err
	}
	return file, release, nil
}
