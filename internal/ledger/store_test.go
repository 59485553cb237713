package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"energysplit/internal/ledger"
)

func openStore(t *testing.T) (*ledger.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	store, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestRunLifecycle(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	settings := ledger.Settings{Binary: "segmentation-fold", Precision: 0.005, PerBase: 1.75, Metric: "pairs", Threads: 2, Seed: 7}
	run, err := store.CreateRun(ctx, "run-1", "out.dbn", settings)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Finished() {
		t.Fatal("new run should not be finished")
	}

	units := []ledger.Unit{
		{Combination: 1, Replicate: 0, Name: "SNORD", Segment: "K-turn"},
		{Combination: 0, Replicate: 0, Name: "SNORD", Segment: "C/D-box"},
	}
	if err := store.AddUnits(ctx, run.ID, units); err != nil {
		t.Fatalf("AddUnits: %v", err)
	}

	first := ledger.UnitKey{Combination: 0}
	second := ledger.UnitKey{Combination: 1}
	if err := store.MarkRunning(ctx, run.ID, first); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if err := store.MarkDone(ctx, run.ID, first, 2, 64); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := store.MarkFailed(ctx, run.ID, second, 3, "probe failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := store.FinishRun(ctx, run.ID, 2, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err := store.ListUnits(ctx, run.ID)
	if err != nil {
		t.Fatalf("ListUnits: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 units, got %d", len(got))
	}
	if got[0].Segment != "C/D-box" || got[0].Status != ledger.StatusDone || got[0].Transitions != 2 || got[0].Probes != 64 {
		t.Fatalf("unexpected first unit: %+v", got[0])
	}
	if got[1].Status != ledger.StatusFailed || got[1].Error != "probe failed" || got[1].Probes != 3 {
		t.Fatalf("unexpected second unit: %+v", got[1])
	}
	if got[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}

	counts, err := store.CountByStatus(ctx, run.ID)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[ledger.StatusDone] != 1 || counts[ledger.StatusFailed] != 1 || counts[ledger.StatusPending] != 0 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	loaded, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !loaded.Finished() || loaded.TotalUnits != 2 || loaded.FailedUnits != 1 {
		t.Fatalf("unexpected run: %+v", loaded)
	}
	if loaded.Settings != settings {
		t.Fatalf("settings round trip mismatch: %+v", loaded.Settings)
	}
	if loaded.OutputPath != "out.dbn" {
		t.Fatalf("unexpected output path %q", loaded.OutputPath)
	}
}

func TestLatestRun(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	if _, err := store.LatestRun(ctx); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty ledger, got %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := store.CreateRun(ctx, id, "", ledger.Settings{}); err != nil {
			t.Fatalf("CreateRun %s: %v", id, err)
		}
	}
	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.ID != "b" {
		t.Fatalf("expected latest run b, got %s", latest.ID)
	}
}

func TestMissingRecords(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	if _, err := store.GetRun(ctx, "nope"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.FinishRun(ctx, "nope", 0, 0); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from FinishRun, got %v", err)
	}
	if _, err := store.CreateRun(ctx, "r", "", ledger.Settings{}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.MarkRunning(ctx, "r", ledger.UnitKey{Combination: 9}); err == nil {
		t.Fatal("expected error for unknown unit")
	}
	if _, err := store.CreateRun(ctx, " ", "", ledger.Settings{}); err == nil {
		t.Fatal("expected error for blank run id")
	}
}

func TestReopenKeepsData(t *testing.T) {
	store, path := openStore(t)
	ctx := context.Background()
	if _, err := store.CreateRun(ctx, "persist", "", ledger.Settings{Metric: "helices"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.GetRun(ctx, "persist")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Settings.Metric != "helices" {
		t.Fatalf("unexpected settings after reopen: %+v", run.Settings)
	}
}

func TestSchemaMismatch(t *testing.T) {
	store, path := openStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.Open(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestConcurrentUnitUpdates(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	if _, err := store.CreateRun(ctx, "run-c", "-", ledger.Settings{Threads: 16}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	const combos, replicates = 4, 16
	units := make([]ledger.Unit, 0, combos*replicates)
	for c := 0; c < combos; c++ {
		for r := 1; r <= replicates; r++ {
			units = append(units, ledger.Unit{Combination: c, Replicate: r, Name: "SNORD13", Segment: "K-turn"})
		}
	}
	if err := store.AddUnits(ctx, "run-c", units); err != nil {
		t.Fatalf("AddUnits: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*len(units))
	for _, u := range units {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.MarkRunning(ctx, "run-c", u.Key()); err != nil {
				errs <- err
				return
			}
			if err := store.MarkDone(ctx, "run-c", u.Key(), 1, 32); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent update failed: %v", err)
	}

	counts, err := store.CountByStatus(ctx, "run-c")
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[ledger.StatusDone] != len(units) {
		t.Fatalf("expected %d done units, got %v", len(units), counts)
	}
}

func TestForeignKeysApplyToEveryConnection(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.AddUnits(ctx, "missing-run", []ledger.Unit{{Combination: i, Name: "SNORD13", Segment: "K-turn"}})
			if err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := accepted.Load(); n != 0 {
		t.Fatalf("expected units for an unknown run to be rejected, %d were stored", n)
	}
}
