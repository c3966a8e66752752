package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"replaylistener/internal/history"
	"replaylistener/internal/summary"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycleAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.StartRun(ctx, history.Run{ID: "run-1", Sandbox: true, FromDate: "2025-01-01", ToDate: "2025-01-04"}); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	rec := store.Recorder("run-1")
	if err := rec.RecordSummary(ctx, summary.Metadata(1, 10, 9, 1500*time.Millisecond)); err != nil {
		t.Fatalf("RecordSummary: %v", err)
	}
	if err := rec.RecordSummary(ctx, summary.Download(1, 7, 2, 0, 3*time.Second)); err != nil {
		t.Fatalf("RecordSummary: %v", err)
	}
	if err := store.FinishRun(ctx, "run-1", "max_empty_pages"); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	batches, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	latest := batches[0]
	if latest.Label != summary.LabelDownload || latest.OK != 9 || latest.Exists != 2 || latest.Total != 9 {
		t.Fatalf("unexpected latest batch %+v", latest)
	}
	if latest.Elapsed != 3*time.Second || latest.RunID != "run-1" || latest.CreatedAt.IsZero() {
		t.Fatalf("unexpected batch metadata %+v", latest)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !run.Sandbox || run.StopReason != "max_empty_pages" || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.StartRun(ctx, history.Run{ID: "r", FromDate: "a", ToDate: "b"}); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 5; i++ {
		if err := store.RecordBatch(ctx, "r", summary.Metadata(i, 1, 1, time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	batches, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 3 || batches[0].Page != 5 {
		t.Fatalf("unexpected batches %+v", batches)
	}
}

func TestBatchRequiresKnownRun(t *testing.T) {
	store := openStore(t)
	if err := store.RecordBatch(context.Background(), "missing", summary.Metadata(1, 1, 1, 0)); err == nil {
		t.Fatal("expected foreign key violation for unknown run")
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openStore(t)
	if _, err := store.GetRun(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.StartRun(context.Background(), history.Run{ID: "keep", FromDate: "a", ToDate: "b"}); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRun(context.Background(), "keep"); err != nil {
		t.Fatalf("expected run after reopen: %v", err)
	}
}
