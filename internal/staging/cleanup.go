package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"replaylistener/internal/config"
	"replaylistener/internal/logging"
)

// ErrNotStaging is returned when a cleanup target is not a sandbox root.
var ErrNotStaging = errors.New("not a sandbox staging root")

// Root names one sandbox output root.
type Root struct {
	Name string
	Path string
}

// Roots returns the sandbox download and metadata roots for cfg, regardless
// of whether sandbox mode is currently enabled.
func Roots(cfg *config.Config) []Root {
	return []Root{
		{Name: "downloads", Path: config.SandboxDir(cfg.Paths.DownloadDir)},
		{Name: "metadata", Path: config.SandboxDir(cfg.Paths.MetasDir)},
	}
}

// CleanResult contains the outcome of a cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Clean removes entries of a staging root last modified more than maxAge ago.
// A zero maxAge removes every entry. Dotfiles such as the listener lock and
// the root directory itself are kept.
func Clean(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) (CleanResult, error) {
	result := CleanResult{}

	root = strings.TrimSpace(root)
	if !strings.HasSuffix(filepath.Clean(root), config.SandboxSuffix) {
		return result, fmt.Errorf("%w: %s", ErrNotStaging, root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove staging entry",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check sandbox root permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed staging entry",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result, nil
}

// Usage summarizes a staging root.
type Usage struct {
	Root    Root
	Exists  bool
	Entries int
	Bytes   int64
	Newest  time.Time
}

// Measure walks root and totals its entries and file sizes.
func Measure(root Root) (Usage, error) {
	usage := Usage{Root: root}
	entries, err := os.ReadDir(root.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return usage, nil
		}
		return usage, err
	}
	usage.Exists = true
	usage.Entries = len(entries)

	err = filepath.WalkDir(root.Path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(usage.Newest) {
			usage.Newest = info.ModTime()
		}
		if !d.IsDir() {
			usage.Bytes += info.Size()
		}
		return nil
	})
	return usage, err
}
