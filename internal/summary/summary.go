// Package summary formats per-batch stage counters into the one-line reports
// the listener emits after each stage.
package summary

import (
	"fmt"
	"log/slog"
	"time"

	"replaylistener/internal/logging"
)

// Labels used by the listener.
const (
	LabelMetadata = "Metadata"
	LabelDownload = "Download"
)

// Summary holds one stage's batch counters.
type Summary struct {
	Label   string
	Page    int
	Total   int
	OK      int
	Fail    int
	Exists  int
	Elapsed time.Duration
}

// Download builds the download stage summary. Files already on disk count as
// ok; the exists count is kept separately for reporting.
func Download(page, ok, exists, fail int, elapsed time.Duration) Summary {
	return Summary{
		Label:   LabelDownload,
		Page:    page,
		Total:   ok + exists + fail,
		OK:      ok + exists,
		Fail:    fail,
		Exists:  exists,
		Elapsed: elapsed,
	}
}

// Metadata builds the fetch stage summary.
func Metadata(page, attempted, ok int, elapsed time.Duration) Summary {
	return Summary{
		Label:   LabelMetadata,
		Page:    page,
		Total:   attempted,
		OK:      ok,
		Fail:    attempted - ok,
		Elapsed: elapsed,
	}
}

// RPS returns completed items per second, or 0 when no time has elapsed.
func (s Summary) RPS() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.OK+s.Fail) / secs
}

// Line renders the report line.
func (s Summary) Line() string {
	return fmt.Sprintf("[~] %s | ok %d fail %d | RPS: %.2f | Time: %.2fs",
		s.Label, s.OK, s.Fail, s.RPS(), s.Elapsed.Seconds())
}

// Report logs the summary line with its counters as structured fields.
func Report(logger *slog.Logger, s Summary) {
	if logger == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_summary"),
		logging.String("label", s.Label),
		logging.Int("total", s.Total),
		logging.Int("ok", s.OK),
		logging.Int("fail", s.Fail),
		logging.Duration("elapsed", s.Elapsed),
	}
	if s.Page > 0 {
		attrs = append(attrs, logging.Page(s.Page))
	}
	if s.Label == LabelDownload {
		attrs = append(attrs, logging.Int("exists", s.Exists))
	}
	logger.Info(s.Line(), logging.Args(attrs...)...)
}
