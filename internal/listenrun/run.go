package listenrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"replaylistener/internal/barapi"
	"replaylistener/internal/config"
	"replaylistener/internal/history"
	"replaylistener/internal/ledger"
	"replaylistener/internal/listener"
	"replaylistener/internal/logging"
	"replaylistener/internal/pipeline"
	"replaylistener/internal/preflight"
	"replaylistener/internal/services"
)

// ErrAlreadyRunning reports that another listener holds the download root lock.
var ErrAlreadyRunning = errors.New("another replaylistener instance is already running")

// Options configures listener process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Quiet drops the stdout log sink; the per-run file still receives everything.
	Quiet bool
	// Backoff overrides the terminal countdown between iterations.
	Backoff listener.BackoffFunc
}

// Run executes one listener session until it stops or is interrupted.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) (listener.Result, error) {
	if cfg == nil {
		return listener.Result{}, fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return listener.Result{}, err
	}

	started := time.Now()
	runID := uuid.NewString()
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("replaylistener-%s.log", started.UTC().Format("20060102T150405.000Z")))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	outputs := []string{"stdout", logPath}
	if opts.Quiet {
		outputs = []string{logPath}
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return listener.Result{}, fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update replaylistener.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "replaylistener-*.log", Exclude: []string{logPath}},
	)

	ctx := services.WithRunID(signalCtx, runID)
	runLogger := logging.WithContext(ctx, logger)
	runLogger.Info("replay listener starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("run_id", runID),
		logging.String("api", cfg.API.BaseURL),
		logging.String("from_date", cfg.Listener.FromDate),
		logging.String("to_date", cfg.Listener.ToDate),
		logging.String("download_root", cfg.DownloadRoot()),
		logging.String("metas_root", cfg.MetasRoot()),
		logging.Int("pool_size", cfg.Listener.PoolSize),
		logging.String("log_path", logPath),
	)
	if cfg.Listener.Sandbox {
		runLogger.Warn("sandbox mode enabled; output goes to staging roots",
			logging.String(logging.FieldEventType, "sandbox_enabled"),
			logging.String("download_root", cfg.DownloadRoot()),
			logging.String("metas_root", cfg.MetasRoot()),
		)
	}

	if failed := preflight.Failed(preflight.DirectoryChecks(cfg)); len(failed) > 0 {
		for _, r := range failed {
			logging.ErrorWithContext(runLogger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "fix directory permissions or paths in the config"),
			)
		}
		return listener.Result{}, services.Wrap(services.ErrConfiguration, "preflight", "directory checks",
			fmt.Sprintf("%d check(s) failed", len(failed)), nil)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return listener.Result{}, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return listener.Result{}, ErrAlreadyRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			runLogger.Warn("failed to release listener lock",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String("lock", cfg.LockPath()),
			)
		}
	}()

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		runLogger.Error("open history store", logging.Error(err))
		return listener.Result{}, err
	}
	defer store.Close()

	if err := store.StartRun(ctx, history.Run{
		ID:        runID,
		StartedAt: started,
		Sandbox:   cfg.Listener.Sandbox,
		FromDate:  cfg.Listener.FromDate,
		ToDate:    cfg.Listener.ToDate,
	}); err != nil {
		logging.WarnWithContext(runLogger, "history run not recorded", "history_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch summaries for this run are not persisted"),
		)
	}

	fs := afero.NewOsFs()
	led := ledger.New(fs, cfg.DownloadRoot(), logger)
	seen := led.Load()

	client, err := barapi.NewFromConfig(cfg, logger)
	if err != nil {
		return listener.Result{}, err
	}

	fetch := pipeline.NewFetchStage(client, fs, cfg.MetasRoot(), cfg.Listener.PoolSize, logger)
	download := pipeline.NewDownloadStage(client, led, fs, cfg.DownloadRoot(), cfg.Listener.PoolSize, logger)

	backoff := opts.Backoff
	if backoff == nil {
		backoff = listener.TerminalBackoff(os.Stdout)
	}
	l := listener.New(client, fetch, download, seen, listener.OptionsFromConfig(cfg), logger,
		listener.WithSummarySink(store.Recorder(runID)),
		listener.WithBackoff(backoff),
	)

	result, runErr := l.Run(ctx)

	// The run context is cancelled on interrupt; the final row still needs writing.
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer finishCancel()
	if err := store.FinishRun(finishCtx, runID, result.StopReason); err != nil {
		logging.WarnWithContext(runLogger, "history run not finalized", "history_finish_failed",
			logging.Error(err),
		)
	}

	runLogger.Info("replay listener finished",
		logging.String(logging.FieldEventType, "run_finish"),
		logging.String("reason", result.StopReason),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, runErr
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "replaylistener.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
