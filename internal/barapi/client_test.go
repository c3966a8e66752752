package barapi_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"replaylistener/internal/barapi"
	"replaylistener/internal/logging"
	"replaylistener/internal/pipeline"
	"replaylistener/internal/services"
)

var (
	_ pipeline.MetadataFetcher  = (*barapi.Client)(nil)
	_ pipeline.ReplayDownloader = (*barapi.Client)(nil)
)

func newClient(t *testing.T, srv *httptest.Server, opts ...barapi.Option) *barapi.Client {
	t.Helper()
	base := []barapi.Option{
		barapi.WithHTTPClient(srv.Client()),
		barapi.WithLogger(logging.NewNop()),
		barapi.WithDownloadBaseURL(srv.URL + "/demos"),
		barapi.WithDateWindow("2025-01-01", "2025-01-04"),
		barapi.WithPageLimit(50),
	}
	client, err := barapi.New(srv.URL+"/", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := barapi.New("  "); err == nil {
		t.Fatal("expected error for empty base url")
	}
}

func TestSearchBuildsQueryAndDecodes(t *testing.T) {
	var gotQuery string
	var gotDates []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/replays" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotDates = r.URL.Query()["date"]
		_, _ = w.Write([]byte(`{"data":[{"id":"a","startTime":"2025-01-02T00:00:00Z"},{"id":7,"startTime":"2025-01-03T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	records := newClient(t, srv).Search(context.Background(), 3)
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "7" {
		t.Fatalf("unexpected records %+v", records)
	}
	for _, want := range []string{"page=3", "limit=50", "hasBots=false", "endedNormally=true"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("expected %q in query %q", want, gotQuery)
		}
	}
	if len(gotDates) != 2 || gotDates[0] != "2025-01-01" || gotDates[1] != "2025-01-04" {
		t.Fatalf("unexpected date params %v", gotDates)
	}
}

func TestSearchFailsSoft(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			if records := newClient(t, srv).Search(context.Background(), 1); len(records) != 0 {
				t.Fatalf("expected empty result, got %+v", records)
			}
		})
	}
}

func TestSearchPageTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := newClient(t, srv, barapi.WithTimeouts(50*time.Millisecond, 0, 0))
	_, err := client.SearchPage(context.Background(), 1)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
}

func TestFetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/replays/good":
			_, _ = w.Write([]byte(`{"fileName":"2025-01-02_game.sdfz","startTime":"2025-01-02T10:00:00Z","Map":{}}`))
		case "/replays/nofile":
			_, _ = w.Write([]byte(`{"startTime":"2025-01-02T10:00:00Z"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	client := newClient(t, srv)

	meta, err := client.FetchMetadata(context.Background(), "good")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta.FileName != "2025-01-02_game.sdfz" || meta.StartTime != "2025-01-02T10:00:00Z" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if !strings.Contains(string(meta.Raw), `"Map"`) {
		t.Fatal("expected raw document to be kept")
	}

	if _, err := client.FetchMetadata(context.Background(), "nofile"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing fileName, got %v", err)
	}
	if _, err := client.FetchMetadata(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDownloadStreamsAndEscapesName(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte("replay-bytes"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := newClient(t, srv).Download(context.Background(), "2025 01 02 game.sdfz", &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len("replay-bytes")) || buf.String() != "replay-bytes" {
		t.Fatalf("unexpected body %q (%d bytes)", buf.String(), n)
	}
	if gotPath != "/demos/2025%2001%2002%20game.sdfz" {
		t.Fatalf("unexpected escaped path %q", gotPath)
	}
}

func TestDownloadFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "slow.sdfz") {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	client := newClient(t, srv, barapi.WithTimeouts(0, 0, 50*time.Millisecond))

	var buf bytes.Buffer
	if _, err := client.Download(context.Background(), "gone.sdfz", &buf); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.Download(context.Background(), "slow.sdfz", &buf); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	before := hits.Load()
	if _, err := client.Download(context.Background(), " ", &buf); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
	if hits.Load() != before {
		t.Fatal("empty file name must not reach the network")
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()
	if err := newClient(t, srv).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestNewTransportSizesPool(t *testing.T) {
	tr := barapi.NewTransport(20, 10)
	if tr.MaxConnsPerHost != 20 || tr.MaxIdleConnsPerHost != 20 {
		t.Fatalf("unexpected per-host limits %d/%d", tr.MaxConnsPerHost, tr.MaxIdleConnsPerHost)
	}
	if tr.MaxIdleConns != 20 {
		t.Fatalf("unexpected idle pool %d", tr.MaxIdleConns)
	}
}
