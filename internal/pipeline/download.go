package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"replaylistener/internal/fileutil"
	"replaylistener/internal/ledger"
	"replaylistener/internal/logging"
	"replaylistener/internal/replay"
	"replaylistener/internal/services"
	"replaylistener/internal/textutil"
)

const stageDownload = "download"

// DownloadReport summarizes one download batch.
type DownloadReport struct {
	OK      int
	Exists  int
	Fail    int
	Bytes   int64
	Elapsed time.Duration
}

// Total returns the number of collected outcomes.
func (r DownloadReport) Total() int { return r.OK + r.Exists + r.Fail }

// DownloadStage retrieves replay files into date folders under the download
// root and records confirmed ids in the ledger.
type DownloadStage struct {
	downloader ReplayDownloader
	ledger     LedgerWriter
	fs         afero.Fs
	root       string
	poolSize   int
	logger     *slog.Logger
}

// NewDownloadStage constructs a download stage.
func NewDownloadStage(downloader ReplayDownloader, ledgerWriter LedgerWriter, fs afero.Fs, root string, poolSize int, logger *slog.Logger) *DownloadStage {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DownloadStage{
		downloader: downloader,
		ledger:     ledgerWriter,
		fs:         fs,
		root:       root,
		poolSize:   poolSize,
		logger:     logging.NewComponentLogger(logger, "download"),
	}
}

// Run downloads every result. Ledger appends happen here, on the collecting
// goroutine, for ok and exists outcomes only.
func (s *DownloadStage) Run(ctx context.Context, results []replay.FetchResult) (DownloadReport, error) {
	ctx = services.WithStage(ctx, stageDownload)
	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()
	var report DownloadReport

	collect := func(res replay.FetchResult, out replay.DownloadOutcome, err error) {
		if err != nil {
			out.Status = replay.StatusFail
			out.Err = err
		}
		switch out.Status {
		case replay.StatusOK:
			report.OK++
			report.Bytes += out.Bytes
			s.ledger.Append(res.ID, out.Folder)
			logger.Debug("replay stored",
				logging.ReplayID(res.ID.String()),
				logging.String("path", out.Path),
				logging.Int64("size_bytes", out.Bytes),
			)
		case replay.StatusExists:
			report.Exists++
			s.ledger.Append(res.ID, out.Folder)
			logger.Debug("replay already on disk", logging.ReplayID(res.ID.String()), logging.String("path", out.Path))
		default:
			report.Fail++
			if !errors.Is(out.Err, context.Canceled) {
				logger.Warn("replay download failed; left for a future run",
					logging.String(logging.FieldEventType, "download_failed"),
					logging.ReplayID(res.ID.String()),
					logging.String("file_name", res.FileName),
					logging.String("reason", services.FailureReason(out.Err)),
					logging.Error(out.Err),
				)
			}
		}
	}

	err := runPool(ctx, s.poolSize, results, s.downloadOne, collect)
	report.Elapsed = time.Since(start)
	if err != nil {
		logger.Info("replay download interrupted",
			logging.String(logging.FieldEventType, "download_interrupted"),
			logging.Int("completed", report.Total()),
			logging.Int("attempted", len(results)),
		)
		return report, err
	}
	return report, nil
}

// downloadOne runs on a worker goroutine and must not touch the ledger.
func (s *DownloadStage) downloadOne(ctx context.Context, res replay.FetchResult) (replay.DownloadOutcome, error) {
	out := replay.DownloadOutcome{ID: res.ID, Status: replay.StatusFail}

	date, err := res.Date()
	if err != nil {
		return out, services.Wrap(services.ErrValidation, stageDownload, "derive folder", res.ID.String(), err)
	}
	name := textutil.SanitizeFileName(res.FileName)
	if name == "" {
		return out, services.Wrap(services.ErrValidation, stageDownload, "derive path", "unusable file name "+res.FileName, nil)
	}

	out.Folder = filepath.Join(s.root, ledger.FolderName(date))
	out.Path = filepath.Join(out.Folder, name)
	if err := s.fs.MkdirAll(out.Folder, 0o755); err != nil {
		return out, services.Wrap(services.ErrStorage, stageDownload, "create folder", out.Folder, err)
	}

	exists, err := fileutil.Exists(s.fs, out.Path)
	if err != nil {
		return out, services.Wrap(services.ErrStorage, stageDownload, "stat target", out.Path, err)
	}
	if exists {
		out.Status = replay.StatusExists
		return out, nil
	}

	written, err := fileutil.WriteStreamAtomic(s.fs, out.Path, 0o644, func(w io.Writer) (int64, error) {
		return s.downloader.Download(ctx, res.FileName, w)
	})
	out.Bytes = written
	if err != nil {
		return out, err
	}
	out.Status = replay.StatusOK
	return out, nil
}
