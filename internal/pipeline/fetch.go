package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"replaylistener/internal/fileutil"
	"replaylistener/internal/logging"
	"replaylistener/internal/replay"
	"replaylistener/internal/services"
	"replaylistener/internal/textutil"
)

const stageFetch = "fetch"

// FetchReport summarizes one fetch batch.
type FetchReport struct {
	Results   []replay.FetchResult
	Attempted int
	OK        int
	Fail      int
	Elapsed   time.Duration
}

// FetchStage resolves new records to file names and persists each metadata
// document as <metasRoot>/<id>.json.
type FetchStage struct {
	fetcher   MetadataFetcher
	fs        afero.Fs
	metasRoot string
	poolSize  int
	logger    *slog.Logger
}

// NewFetchStage constructs a fetch stage.
func NewFetchStage(fetcher MetadataFetcher, fs afero.Fs, metasRoot string, poolSize int, logger *slog.Logger) *FetchStage {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FetchStage{
		fetcher:   fetcher,
		fs:        fs,
		metasRoot: metasRoot,
		poolSize:  poolSize,
		logger:    logging.NewComponentLogger(logger, "fetch"),
	}
}

// Run fetches metadata for records. Failed items are logged and excluded
// from the report's results; they are not retried. The only error returned is
// the context error on cancellation.
func (s *FetchStage) Run(ctx context.Context, records []replay.Record) (FetchReport, error) {
	ctx = services.WithStage(ctx, stageFetch)
	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()
	report := FetchReport{Attempted: len(records)}

	if err := s.fs.MkdirAll(s.metasRoot, 0o755); err != nil {
		report.Fail = len(records)
		report.Elapsed = time.Since(start)
		logging.ErrorWithContext(logger, "metadata folder unavailable; batch dropped", "metas_dir_failed",
			logging.String("path", s.metasRoot),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.metas_dir permissions"),
		)
		return report, nil
	}

	work := func(ctx context.Context, rec replay.Record) (replay.Metadata, error) {
		return s.fetcher.FetchMetadata(ctx, rec.ID)
	}
	collect := func(rec replay.Record, meta replay.Metadata, err error) {
		if err == nil {
			err = s.persist(meta)
		}
		if err != nil {
			report.Fail++
			s.logDrop(logger, rec.ID, err)
			return
		}
		startTime := meta.StartTime
		if startTime == "" {
			startTime = rec.StartTime
		}
		report.OK++
		report.Results = append(report.Results, replay.FetchResult{
			ID:        rec.ID,
			FileName:  meta.FileName,
			StartTime: startTime,
		})
		logger.Debug("metadata stored", logging.ReplayID(rec.ID.String()), logging.String("file_name", meta.FileName))
	}

	err := runPool(ctx, s.poolSize, records, work, collect)
	report.Elapsed = time.Since(start)
	if err != nil {
		logger.Info("metadata fetch interrupted",
			logging.String(logging.FieldEventType, "fetch_interrupted"),
			logging.Int("completed", report.OK+report.Fail),
			logging.Int("attempted", report.Attempted),
		)
		return report, err
	}
	return report, nil
}

// MetadataPath returns where the metadata document for id is stored.
func (s *FetchStage) MetadataPath(id replay.ID) (string, error) {
	name := textutil.SanitizeFileName(id.String())
	if name == "" {
		return "", fmt.Errorf("replay id %q is not usable as a file name", id)
	}
	return filepath.Join(s.metasRoot, name+".json"), nil
}

func (s *FetchStage) persist(meta replay.Metadata) error {
	path, err := s.MetadataPath(meta.ID)
	if err != nil {
		return services.Wrap(services.ErrValidation, stageFetch, "persist metadata", "", err)
	}
	if err := fileutil.WriteFileAtomic(s.fs, path, meta.Raw, 0o644); err != nil {
		return services.Wrap(services.ErrStorage, stageFetch, "persist metadata", path, err)
	}
	return nil
}

func (s *FetchStage) logDrop(logger *slog.Logger, id replay.ID, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Warn("metadata fetch failed; replay dropped for this run",
		logging.String(logging.FieldEventType, "fetch_dropped"),
		logging.ReplayID(id.String()),
		logging.String("reason", services.FailureReason(err)),
		logging.Error(err),
	)
}
