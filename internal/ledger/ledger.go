package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"replaylistener/internal/logging"
	"replaylistener/internal/replay"
)

// FileName is the per-folder ledger file.
const FileName = "downloaded.jsonl"

var folderPattern = regexp.MustCompile(`^L\d{4}-\d{2}-\d{2}Replays$`)

// FolderName returns the date folder name for a YYYY-MM-DD date.
func FolderName(date string) string {
	return "L" + date + "Replays"
}

// IsListenerFolder reports whether name follows the date folder convention.
func IsListenerFolder(name string) bool {
	return folderPattern.MatchString(name)
}

type entry struct {
	GameID replay.ID `json:"gameId"`
}

// Ledger reads and appends the per-folder ledger files under one download root.
type Ledger struct {
	fs     afero.Fs
	root   string
	logger *slog.Logger
}

// New creates a ledger rooted at the download directory.
func New(fs afero.Fs, root string, logger *slog.Logger) *Ledger {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Ledger{
		fs:     fs,
		root:   root,
		logger: logging.NewComponentLogger(logger, "ledger"),
	}
}

// Root returns the download root this ledger scans.
func (l *Ledger) Root() string { return l.root }

// FolderPath returns the absolute date folder path for date.
func (l *Ledger) FolderPath(date string) string {
	return filepath.Join(l.root, FolderName(date))
}

// Load scans every date folder and returns the union of recorded ids.
// A missing root yields an empty set.
func (l *Ledger) Load() SeenSet {
	seen := make(SeenSet)
	folders, err := l.folders()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(l.logger, "download root unreadable; starting with empty ledger", "ledger_scan_failed",
				logging.String("root", l.root),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the download folder"),
				logging.String(logging.FieldImpact, "previously downloaded replays may be fetched again"),
			)
		}
		return seen
	}

	var lines, malformed int
	for _, folder := range folders {
		path := filepath.Join(l.root, folder, FileName)
		stats, err := l.readFile(path, func(id replay.ID) { seen.Add(id) })
		lines += stats.entries
		malformed += stats.malformed
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				l.logger.Debug("date folder has no ledger file", logging.String("folder", folder))
				continue
			}
			logging.WarnWithContext(l.logger, "ledger file unreadable; skipping", "ledger_read_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions"),
				logging.String(logging.FieldImpact, "replays recorded in this folder may be fetched again"),
			)
		}
	}

	l.logger.Info("ledger loaded",
		logging.String(logging.FieldEventType, "ledger_loaded"),
		logging.Int("folders", len(folders)),
		logging.Int("entries", lines),
		logging.Int("unique_ids", seen.Len()),
		logging.Int("malformed_lines", malformed),
	)
	return seen
}

// Append records id in folder's ledger file. Failures are logged and not
// returned.
func (l *Ledger) Append(id replay.ID, folder string) {
	if id.Empty() {
		return
	}
	line, err := json.Marshal(entry{GameID: id})
	if err != nil {
		l.logAppendFailure(id, folder, err)
		return
	}
	line = append(line, '\n')

	path := filepath.Join(folder, FileName)
	f, err := l.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.logAppendFailure(id, folder, err)
		return
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		l.logAppendFailure(id, folder, err)
		return
	}
	if err := f.Close(); err != nil {
		l.logAppendFailure(id, folder, err)
	}
}

func (l *Ledger) logAppendFailure(id replay.ID, folder string, err error) {
	logging.ErrorWithContext(l.logger, "ledger append failed", "ledger_append_failed",
		logging.ReplayID(id.String()),
		logging.String("folder", folder),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check disk space and folder permissions"),
		logging.String(logging.FieldImpact, "replay may be downloaded again on a future run"),
	)
}

func (l *Ledger) folders() ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && IsListenerFolder(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

type readStats struct {
	entries   int
	malformed int
}

func (l *Ledger) readFile(path string, visit func(replay.ID)) (readStats, error) {
	var stats readStats
	f, err := l.fs.Open(path)
	if err != nil {
		return stats, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(text), &e); err != nil || e.GameID.Empty() {
			stats.malformed++
			reason := "missing gameId"
			if err != nil {
				reason = err.Error()
			}
			l.logger.Warn("skipping malformed ledger line",
				logging.String(logging.FieldEventType, "ledger_line_malformed"),
				logging.String("path", path),
				logging.Int("line", lineNo),
				logging.String("reason", reason),
			)
			continue
		}
		stats.entries++
		visit(e.GameID)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan %s: %w", path, err)
	}
	return stats, nil
}
