package listenrun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"replaylistener/internal/listener"
	"replaylistener/internal/listenrun"
	"replaylistener/internal/replay"
	"replaylistener/internal/testsupport"
)

func noWait(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestRunDownloadsNewReplaysAndRecordsHistory(t *testing.T) {
	api := testsupport.NewReplayAPI(t, "2025-01-02", map[int][]replay.ID{
		1: {"a1", "a2", "a3"},
	})
	api.MissingMetadata("a3")
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPI(api.URL(), api.DownloadURL()),
		testsupport.WithMaxEmptyPages(2),
	)

	result, err := listenrun.Run(context.Background(), cfg, listenrun.Options{Quiet: true, Backoff: noWait})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.StopReason != listener.StopMaxEmptyPages {
		t.Fatalf("stop reason = %q", result.StopReason)
	}
	if result.Downloaded != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	folder := filepath.Join(cfg.DownloadRoot(), "L2025-01-02Replays")
	for _, name := range []string{"a1.sdfz", "a2.sdfz"} {
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			t.Fatalf("expected %s downloaded: %v", name, err)
		}
	}
	lines := testsupport.ReadLines(t, afero.NewOsFs(), filepath.Join(folder, "downloaded.jsonl"))
	if len(lines) != 2 {
		t.Fatalf("ledger lines = %v", lines)
	}
	if _, err := os.Stat(filepath.Join(cfg.MetasRoot(), "a1.json")); err != nil {
		t.Fatalf("expected metadata persisted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.MetasRoot(), "a3.json")); !os.IsNotExist(err) {
		t.Fatal("failed fetch must not persist metadata")
	}
	if _, err := os.Lstat(filepath.Join(cfg.Paths.LogDir, "replaylistener.log")); err != nil {
		t.Fatalf("expected current log pointer: %v", err)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	batches, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected metadata and download batches, got %d", len(batches))
	}
	run, err := store.GetRun(context.Background(), batches[0].RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.StopReason != listener.StopMaxEmptyPages || run.FinishedAt.IsZero() {
		t.Fatalf("unexpected run row %+v", run)
	}
}

func TestSecondRunSkipsLedgerEntries(t *testing.T) {
	api := testsupport.NewReplayAPI(t, "2025-01-02", map[int][]replay.ID{1: {"b1", "b2"}})
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPI(api.URL(), api.DownloadURL()),
		testsupport.WithMaxEmptyPages(1),
	)

	for i := 0; i < 2; i++ {
		if _, err := listenrun.Run(context.Background(), cfg, listenrun.Options{Quiet: true, Backoff: noWait}); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}
	if api.Files() != 2 {
		t.Fatalf("expected files served once each, got %d", api.Files())
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = listenrun.Run(context.Background(), cfg, listenrun.Options{Quiet: true, Backoff: noWait})
	if !errors.Is(err, listenrun.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunInterruptedBeforeFirstPage(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEndless())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := listenrun.Run(ctx, cfg, listenrun.Options{Quiet: true, Backoff: noWait})
	if err != nil {
		t.Fatalf("interrupt must not be an error: %v", err)
	}
	if result.StopReason != listener.StopInterrupted {
		t.Fatalf("stop reason = %q", result.StopReason)
	}
}
