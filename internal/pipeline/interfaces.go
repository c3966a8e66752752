package pipeline

import (
	"context"
	"io"

	"replaylistener/internal/replay"
)

// MetadataFetcher resolves a replay id to its detail document.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, id replay.ID) (replay.Metadata, error)
}

// ReplayDownloader streams a replay file by name.
type ReplayDownloader interface {
	Download(ctx context.Context, fileName string, w io.Writer) (int64, error)
}

// LedgerWriter records confirmed downloads. Append must not fail the caller.
type LedgerWriter interface {
	Append(id replay.ID, folder string)
}
