package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"replaylistener/internal/config"
	"replaylistener/internal/listenrun"
	"replaylistener/internal/textutil"
)

type listenFlags struct {
	downloadFolder string
	metasFolder    string
	fromDate       string
	toDate         string
	interval       int
	pageLimit      int
	maxEmptyPages  int
	poolSize       int
	skipDownload   bool
	forceMeta      bool
	endless        bool
	sandbox        bool
	logLevel       string
	quiet          bool
}

func newListenCommand(ctx *commandContext) *cobra.Command {
	var flags listenFlags

	cmd := &cobra.Command{
		Use:     "listen",
		Aliases: []string{"run"},
		Short:   "Poll the replay API and download new replays",
		Long: `Poll the replay search API page by page, fetch metadata for replays not yet
in the ledger, and download the replay files into per-date folders.

The loop stops after --listen-max-empty-pages consecutive pages without new
replays, unless --listen is set. Ctrl+C stops it cleanly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyListenFlags(cmd, base, flags)
			if err != nil {
				return err
			}

			result, err := listenrun.Run(cmd.Context(), cfg, listenrun.Options{
				LogLevel: flags.logLevel,
				Quiet:    flags.quiet,
			})
			if err != nil {
				return err
			}

			reason := textutil.Title(strings.ReplaceAll(result.StopReason, "_", " "))
			fmt.Fprintf(cmd.OutOrStdout(),
				"Listener stopped (%s): pages %d, batches %d, downloaded %d, existing %d, failed %d\n",
				reason, result.Pages, result.Batches, result.Downloaded, result.Existing, result.Failed)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.downloadFolder, "download-folder", "", "Replay output root (overrides paths.download_dir)")
	f.StringVar(&flags.metasFolder, "metas-folder", "", "Metadata output root (overrides paths.metas_dir)")
	f.StringVar(&flags.fromDate, "from-date", "", "First date of the search window, YYYY-MM-DD")
	f.StringVar(&flags.toDate, "to-date", "", "Last date of the search window, YYYY-MM-DD")
	f.IntVar(&flags.interval, "listen-interval", 0, "Seconds to wait between pages")
	f.IntVar(&flags.pageLimit, "results-per-page-limit", 0, "Replays requested per search page")
	f.IntVar(&flags.maxEmptyPages, "listen-max-empty-pages", 0, "Stop after this many consecutive pages without new replays")
	f.IntVar(&flags.poolSize, "pool-size", 0, "Concurrent metadata fetches and downloads")
	f.BoolVar(&flags.skipDownload, "skip-download", false, "Fetch and store metadata only")
	f.BoolVar(&flags.forceMeta, "force-meta", false, "Refetch metadata for replays already in the ledger")
	f.BoolVar(&flags.endless, "listen", false, "Never stop on empty pages")
	f.BoolVar(&flags.sandbox, "sandbox", false, "Write into <folder>_staging siblings instead of the configured roots")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "Log to the run log file only")

	return cmd
}

// applyListenFlags overlays explicitly set flags on a copy of base and
// validates the result.
func applyListenFlags(cmd *cobra.Command, base *config.Config, flags listenFlags) (*config.Config, error) {
	cfg := *base
	changed := cmd.Flags().Changed

	if changed("download-folder") {
		dir, err := config.ExpandPath(flags.downloadFolder)
		if err != nil {
			return nil, fmt.Errorf("--download-folder: %w", err)
		}
		cfg.Paths.DownloadDir = dir
	}
	if changed("metas-folder") {
		dir, err := config.ExpandPath(flags.metasFolder)
		if err != nil {
			return nil, fmt.Errorf("--metas-folder: %w", err)
		}
		cfg.Paths.MetasDir = dir
	}
	if changed("from-date") {
		cfg.Listener.FromDate = strings.TrimSpace(flags.fromDate)
	}
	if changed("to-date") {
		cfg.Listener.ToDate = strings.TrimSpace(flags.toDate)
	}
	if changed("listen-interval") {
		cfg.Listener.IntervalSeconds = flags.interval
	}
	if changed("results-per-page-limit") {
		cfg.Listener.PageLimit = flags.pageLimit
	}
	if changed("listen-max-empty-pages") {
		cfg.Listener.MaxEmptyPages = flags.maxEmptyPages
	}
	if changed("pool-size") {
		cfg.Listener.PoolSize = flags.poolSize
	}
	if changed("skip-download") {
		cfg.Listener.SkipDownload = flags.skipDownload
	}
	if changed("force-meta") {
		cfg.Listener.ForceRefetch = flags.forceMeta
	}
	if changed("listen") {
		cfg.Listener.Endless = flags.endless
	}
	if changed("sandbox") {
		cfg.Listener.Sandbox = flags.sandbox
	}
	if changed("log-level") {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(flags.logLevel))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
