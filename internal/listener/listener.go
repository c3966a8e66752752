package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"replaylistener/internal/config"
	"replaylistener/internal/ledger"
	"replaylistener/internal/logging"
	"replaylistener/internal/pipeline"
	"replaylistener/internal/replay"
	"replaylistener/internal/services"
	"replaylistener/internal/summary"
)

// State is the loop's current phase.
type State string

const (
	StateRunning State = "running"
	StateBackoff State = "backoff"
	StateStopped State = "stopped"
)

// Stop reasons reported in Result.
const (
	StopMaxEmptyPages = "max_empty_pages"
	StopInterrupted   = "interrupted"
)

// Searcher returns the records on one search page, or none on failure.
type Searcher interface {
	Search(ctx context.Context, page int) []replay.Record
}

// FetchRunner runs the metadata fetch stage for one batch.
type FetchRunner interface {
	Run(ctx context.Context, records []replay.Record) (pipeline.FetchReport, error)
}

// DownloadRunner runs the download stage for one batch.
type DownloadRunner interface {
	Run(ctx context.Context, results []replay.FetchResult) (pipeline.DownloadReport, error)
}

// SummarySink receives every stage summary, for example to persist history.
type SummarySink interface {
	RecordSummary(ctx context.Context, s summary.Summary) error
}

// BackoffFunc waits d or until ctx is cancelled.
type BackoffFunc func(ctx context.Context, d time.Duration) error

// Options are the loop parameters taken from the listener configuration.
type Options struct {
	Interval      time.Duration
	MaxEmptyPages int
	Endless       bool
	SkipDownload  bool
	ForceRefetch  bool
}

// OptionsFromConfig extracts loop options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:      cfg.Interval(),
		MaxEmptyPages: cfg.Listener.MaxEmptyPages,
		Endless:       cfg.Listener.Endless,
		SkipDownload:  cfg.Listener.SkipDownload,
		ForceRefetch:  cfg.Listener.ForceRefetch,
	}
}

// Result reports how a run ended and what it did.
type Result struct {
	Pages      int
	Batches    int
	Fetched    int
	Downloaded int
	Existing   int
	Failed     int
	StopReason string
}

// Listener owns the loop state. It is not safe for concurrent use.
type Listener struct {
	searcher Searcher
	fetch    FetchRunner
	download DownloadRunner
	seen     ledger.SeenSet
	sink     SummarySink
	backoff  BackoffFunc
	opts     Options
	logger   *slog.Logger

	state  State
	page   int
	empty  int
	result Result
}

// Option customizes a Listener.
type Option func(*Listener)

// WithSummarySink records every stage summary in sink.
func WithSummarySink(sink SummarySink) Option {
	return func(l *Listener) { l.sink = sink }
}

// WithBackoff replaces the plain sleep between iterations.
func WithBackoff(fn BackoffFunc) Option {
	return func(l *Listener) {
		if fn != nil {
			l.backoff = fn
		}
	}
}

// New constructs a listener. seen is the set loaded from the ledger; the
// listener mutates it as pages are filtered.
func New(searcher Searcher, fetch FetchRunner, download DownloadRunner, seen ledger.SeenSet, opts Options, logger *slog.Logger, options ...Option) *Listener {
	if seen == nil {
		seen = make(ledger.SeenSet)
	}
	l := &Listener{
		searcher: searcher,
		fetch:    fetch,
		download: download,
		seen:     seen,
		backoff:  Sleep,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "listener"),
		state:    StateStopped,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// State returns the current loop state.
func (l *Listener) State() State { return l.state }

// ConsecutiveEmpty returns the current consecutive empty page count.
func (l *Listener) ConsecutiveEmpty() int { return l.empty }

// Run loops until the stop condition is met or ctx is cancelled. Interruption
// is a normal exit and returns a nil error.
func (l *Listener) Run(ctx context.Context) (Result, error) {
	logger := logging.WithContext(ctx, l.logger)
	logger.Info("listener starting",
		logging.String(logging.FieldEventType, "listener_start"),
		logging.Int("seen_ids", l.seen.Len()),
		logging.Int("max_empty_pages", l.opts.MaxEmptyPages),
		logging.Bool("endless", l.opts.Endless),
		logging.Bool("skip_download", l.opts.SkipDownload),
		logging.Bool("force_refetch", l.opts.ForceRefetch),
		logging.Duration("interval", l.opts.Interval),
	)

	for {
		if !l.opts.Endless && l.empty >= l.opts.MaxEmptyPages {
			return l.stop(logger, StopMaxEmptyPages), nil
		}
		if ctx.Err() != nil {
			return l.stop(logger, StopInterrupted), nil
		}

		l.state = StateRunning
		err := l.iterate(ctx)
		if ctx.Err() != nil {
			logger.Info("interrupted; cancelling outstanding work and shutting down",
				logging.String(logging.FieldEventType, "listener_interrupted"),
				logging.Page(l.page),
			)
			return l.stop(logger, StopInterrupted), nil
		}
		if err != nil {
			logging.ErrorWithContext(logger, "iteration failed; backing off", "iteration_failed",
				logging.Page(l.page),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the next iteration retries after the backoff interval"),
			)
		}

		l.state = StateBackoff
		if err := l.backoff(ctx, l.opts.Interval); err != nil {
			return l.stop(logger, StopInterrupted), nil
		}
	}
}

func (l *Listener) stop(logger *slog.Logger, reason string) Result {
	l.state = StateStopped
	l.result.Pages = l.page
	l.result.StopReason = reason
	logger.Info("listener stopped",
		logging.String(logging.FieldEventType, "listener_stop"),
		logging.String("reason", reason),
		logging.Int("pages", l.result.Pages),
		logging.Int("batches", l.result.Batches),
		logging.Int("downloaded", l.result.Downloaded),
		logging.Int("existing", l.result.Existing),
		logging.Int("failed", l.result.Failed),
	)
	return l.result
}

func (l *Listener) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panic: %v\n%s", r, debug.Stack())
		}
	}()

	l.page++
	ctx = services.WithPage(ctx, l.page)
	logger := logging.WithContext(ctx, l.logger)
	logger.Info("requesting page", logging.Int("empty", l.empty))

	raw := l.searcher.Search(ctx, l.page)
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(raw) == 0 {
		l.empty++
		logger.Info(fmt.Sprintf("empty response (%d/%d)", l.empty, l.opts.MaxEmptyPages),
			logging.String(logging.FieldEventType, "page_empty"))
		return nil
	}

	fresh, skipped := pipeline.Filter(raw, l.seen, l.opts.ForceRefetch)
	if len(fresh) == 0 {
		l.empty++
		logger.Info(fmt.Sprintf("no new replays found (%d/%d)", l.empty, l.opts.MaxEmptyPages),
			logging.String(logging.FieldEventType, "page_no_new"),
			logging.Int("skipped", skipped))
		return nil
	}

	l.empty = 0
	l.result.Batches++
	logger.Info(fmt.Sprintf("Found %d new replay(s) Skipped Seen: %d %s - %s",
		len(fresh), skipped, datePrefix(fresh[0].StartTime), datePrefix(fresh[len(fresh)-1].StartTime)),
		logging.String(logging.FieldEventType, "page_new_replays"),
		logging.Int("new", len(fresh)),
		logging.Int("skipped", skipped),
	)

	fetched, err := l.fetch.Run(ctx, fresh)
	if err != nil {
		return err
	}
	l.result.Fetched += fetched.OK
	l.report(ctx, logger, summary.Metadata(l.page, fetched.Attempted, fetched.OK, fetched.Elapsed))

	if l.opts.SkipDownload {
		logger.Info("skipping downloads", logging.Int("fetched", fetched.OK))
		return nil
	}

	downloaded, err := l.download.Run(ctx, fetched.Results)
	if err != nil {
		return err
	}
	l.result.Downloaded += downloaded.OK
	l.result.Existing += downloaded.Exists
	l.result.Failed += downloaded.Fail
	l.report(ctx, logger, summary.Download(l.page, downloaded.OK, downloaded.Exists, downloaded.Fail, downloaded.Elapsed))
	return nil
}

func (l *Listener) report(ctx context.Context, logger *slog.Logger, s summary.Summary) {
	summary.Report(logger, s)
	if l.sink == nil {
		return
	}
	if err := l.sink.RecordSummary(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(logger, "summary not recorded in history", "history_write_failed",
			logging.String("label", s.Label),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the state directory and history database"),
			logging.String(logging.FieldImpact, "history command will miss this batch"),
		)
	}
}

func datePrefix(startTime string) string {
	if date, err := replay.DateOf(startTime); err == nil {
		return date
	}
	return "?"
}
