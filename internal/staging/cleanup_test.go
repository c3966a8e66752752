package staging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"replaylistener/internal/config"
	"replaylistener/internal/logging"
)

func TestCleanRefusesProductionRoot(t *testing.T) {
	dir := t.TempDir()
	_, err := Clean(context.Background(), dir, 0, logging.NewNop())
	if !errors.Is(err, ErrNotStaging) {
		t.Fatalf("expected ErrNotStaging, got %v", err)
	}
}

func TestCleanMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Replays"+config.SandboxSuffix)
	result, err := Clean(context.Background(), root, 0, logging.NewNop())
	if err != nil || len(result.Removed) != 0 {
		t.Fatalf("unexpected result %+v err=%v", result, err)
	}
}

func TestCleanRemovesOldEntries(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Replays"+config.SandboxSuffix)
	oldDir := filepath.Join(root, "L2025-01-01Replays")
	recentDir := filepath.Join(root, "L2025-01-03Replays")
	for _, dir := range []string{oldDir, recentDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	result, err := Clean(context.Background(), root, time.Hour, logging.NewNop())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("unexpected removals %v", result.Removed)
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Fatalf("recent dir removed: %v", err)
	}
}

func TestCleanZeroAgeRemovesEverything(t *testing.T) {
	root := filepath.Join(t.TempDir(), "metas"+config.SandboxSuffix)
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	result, err := Clean(context.Background(), root, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removals, got %v", result.Removed)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root itself must be kept: %v", err)
	}
}

func TestRootsAndMeasure(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "Replays")
	cfg.Paths.MetasDir = filepath.Join(base, "metas")

	roots := Roots(&cfg)
	if len(roots) != 2 || roots[0].Path != filepath.Join(base, "Replays_staging") {
		t.Fatalf("unexpected roots %+v", roots)
	}

	usage, err := Measure(roots[1])
	if err != nil || usage.Exists {
		t.Fatalf("expected missing root, got %+v err=%v", usage, err)
	}

	if err := os.MkdirAll(roots[1].Path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(roots[1].Path, "x.json"), make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	usage, err = Measure(roots[1])
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if !usage.Exists || usage.Entries != 1 || usage.Bytes != 10 {
		t.Fatalf("unexpected usage %+v", usage)
	}
}
