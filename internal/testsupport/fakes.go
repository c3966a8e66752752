package testsupport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"replaylistener/internal/replay"
	"replaylistener/internal/services"
)

// FakeFetcher serves metadata from memory. Ids listed in Fail return that
// error; ids with no document return services.ErrNotFound.
type FakeFetcher struct {
	Docs  map[replay.ID]replay.Metadata
	Fail  map[replay.ID]error
	Panic map[replay.ID]bool
	calls atomic.Int32
}

// NewFakeFetcher builds a fetcher with one document per id, each pointing at
// "<id>.sdfz" and started on date.
func NewFakeFetcher(date string, ids ...replay.ID) *FakeFetcher {
	f := &FakeFetcher{
		Docs:  make(map[replay.ID]replay.Metadata, len(ids)),
		Fail:  make(map[replay.ID]error),
		Panic: make(map[replay.ID]bool),
	}
	for _, id := range ids {
		f.Docs[id] = Metadata(id, date)
	}
	return f
}

// Metadata builds a minimal valid metadata document.
func Metadata(id replay.ID, date string) replay.Metadata {
	fileName := id.String() + ".sdfz"
	startTime := date + "T12:00:00.000Z"
	raw := fmt.Sprintf(`{"id":%q,"fileName":%q,"startTime":%q}`, id, fileName, startTime)
	return replay.Metadata{ID: id, FileName: fileName, StartTime: startTime, Raw: []byte(raw)}
}

// FetchMetadata implements pipeline.MetadataFetcher.
func (f *FakeFetcher) FetchMetadata(ctx context.Context, id replay.ID) (replay.Metadata, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return replay.Metadata{}, err
	}
	if f.Panic[id] {
		panic("fake fetcher panic for " + id.String())
	}
	if err, ok := f.Fail[id]; ok {
		return replay.Metadata{}, err
	}
	meta, ok := f.Docs[id]
	if !ok {
		return replay.Metadata{}, services.Wrap(services.ErrNotFound, "fetch", "get replay", id.String(), nil)
	}
	return meta, nil
}

// Calls returns how many fetches were attempted.
func (f *FakeFetcher) Calls() int { return int(f.calls.Load()) }

// FakeDownloader serves replay bytes from memory keyed by file name.
type FakeDownloader struct {
	Content map[string][]byte
	Fail    map[string]error
	// Block, when set, makes Download wait for ctx cancellation.
	Block bool
	calls atomic.Int32
	mu    sync.Mutex
	names []string
}

// NewFakeDownloader returns a downloader serving a small payload for any
// file name not listed in Fail.
func NewFakeDownloader() *FakeDownloader {
	return &FakeDownloader{Content: make(map[string][]byte), Fail: make(map[string]error)}
}

// Download implements pipeline.ReplayDownloader.
func (d *FakeDownloader) Download(ctx context.Context, fileName string, w io.Writer) (int64, error) {
	d.calls.Add(1)
	d.mu.Lock()
	d.names = append(d.names, fileName)
	d.mu.Unlock()

	if d.Block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if err, ok := d.Fail[fileName]; ok {
		return 0, err
	}
	body, ok := d.Content[fileName]
	if !ok {
		body = []byte("replay:" + fileName)
	}
	n, err := w.Write(body)
	return int64(n), err
}

// Calls returns how many downloads were attempted.
func (d *FakeDownloader) Calls() int { return int(d.calls.Load()) }

// Names returns the requested file names in call order.
func (d *FakeDownloader) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.names...)
}

// RecordingLedger captures appends in order.
type RecordingLedger struct {
	Entries []LedgerEntry
}

// LedgerEntry is one captured append.
type LedgerEntry struct {
	ID     replay.ID
	Folder string
}

// Append implements pipeline.LedgerWriter.
func (l *RecordingLedger) Append(id replay.ID, folder string) {
	l.Entries = append(l.Entries, LedgerEntry{ID: id, Folder: folder})
}
