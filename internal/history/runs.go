package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"replaylistener/internal/summary"
)

// Run describes one listener invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sandbox    bool
	FromDate   string
	ToDate     string
	StopReason string
}

// Batch is one recorded stage summary.
type Batch struct {
	ID        int64
	RunID     string
	Page      int
	Label     string
	Total     int
	OK        int
	Exists    int
	Fail      int
	Elapsed   time.Duration
	CreatedAt time.Time
}

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StartRun inserts a run row.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	return s.exec(ctx,
		`INSERT INTO runs (id, started_at, sandbox, from_date, to_date) VALUES (?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Sandbox, run.FromDate, run.ToDate,
	)
}

// FinishRun stamps the run's finish time and stop reason.
func (s *Store) FinishRun(ctx context.Context, runID, reason string) error {
	return s.exec(ctx,
		`UPDATE runs SET finished_at = ?, stop_reason = ? WHERE id = ?`,
		formatTime(s.now()), reason, runID,
	)
}

// RecordBatch stores one stage summary for runID.
func (s *Store) RecordBatch(ctx context.Context, runID string, sum summary.Summary) error {
	return s.exec(ctx,
		`INSERT INTO batches (run_id, page, label, total, ok, exists_count, fail, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, sum.Page, sum.Label, sum.Total, sum.OK, sum.Exists, sum.Fail,
		sum.Elapsed.Milliseconds(), formatTime(s.now()),
	)
}

// Recent returns the newest batches first, at most limit rows.
func (s *Store) Recent(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, page, label, total, ok, exists_count, fail, elapsed_ms, created_at
		 FROM batches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var (
			b         Batch
			elapsedMS int64
			created   sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.RunID, &b.Page, &b.Label, &b.Total, &b.OK, &b.Exists, &b.Fail, &elapsedMS, &created); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		b.CreatedAt = parseTime(created)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetRun loads a run by id. It returns sql.ErrNoRows when absent.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	var (
		run      Run
		started  sql.NullString
		finished sql.NullString
		reason   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, sandbox, from_date, to_date, stop_reason FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &started, &finished, &run.Sandbox, &run.FromDate, &run.ToDate, &reason)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	run.StopReason = reason.String
	return run, nil
}

// Recorder binds the store to one run so the listener can record summaries
// without knowing the run id.
type Recorder struct {
	store *Store
	runID string
}

// Recorder returns a summary sink for runID.
func (s *Store) Recorder(runID string) *Recorder {
	return &Recorder{store: s, runID: runID}
}

// RecordSummary implements the listener's summary sink.
func (r *Recorder) RecordSummary(ctx context.Context, sum summary.Summary) error {
	return r.store.RecordBatch(ctx, r.runID, sum)
}
