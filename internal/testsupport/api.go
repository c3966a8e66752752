package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"replaylistener/internal/replay"
)

// ReplayAPI is an in-process stand-in for the replay search, detail, and
// file origin endpoints.
type ReplayAPI struct {
	Server *httptest.Server

	mu       sync.Mutex
	date     string
	pages    map[int][]replay.ID
	missing  map[replay.ID]bool
	searches int
	files    int
}

// NewReplayAPI serves pages of ids dated date. Pages not in the map are empty.
func NewReplayAPI(t testing.TB, date string, pages map[int][]replay.ID) *ReplayAPI {
	t.Helper()
	api := &ReplayAPI{date: date, pages: pages, missing: make(map[replay.ID]bool)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /replays", api.search)
	mux.HandleFunc("GET /replays/{id}", api.detail)
	mux.HandleFunc("GET /demos/{file}", api.file)
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Server.Close)
	return api
}

// URL returns the API base URL.
func (a *ReplayAPI) URL() string { return a.Server.URL }

// DownloadURL returns the file origin base URL.
func (a *ReplayAPI) DownloadURL() string { return a.Server.URL + "/demos" }

// MissingMetadata makes the detail endpoint answer 404 for id.
func (a *ReplayAPI) MissingMetadata(id replay.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.missing[id] = true
}

// Searches returns how many search requests were served.
func (a *ReplayAPI) Searches() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.searches
}

// Files returns how many replay files were served.
func (a *ReplayAPI) Files() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files
}

func (a *ReplayAPI) search(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	a.mu.Lock()
	a.searches++
	ids := a.pages[page]
	a.mu.Unlock()

	payload := replay.SearchPage{Data: make([]replay.Record, 0, len(ids))}
	for _, id := range ids {
		payload.Data = append(payload.Data, replay.Record{ID: id, StartTime: a.date + "T12:00:00.000Z"})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *ReplayAPI) detail(w http.ResponseWriter, r *http.Request) {
	id := replay.ID(r.PathValue("id"))
	a.mu.Lock()
	missing := a.missing[id]
	a.mu.Unlock()
	if missing {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(Metadata(id, a.date).Raw)
}

func (a *ReplayAPI) file(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !strings.HasSuffix(name, ".sdfz") {
		http.NotFound(w, r)
		return
	}
	a.mu.Lock()
	a.files++
	a.mu.Unlock()
	_, _ = w.Write([]byte("replay:" + name))
}
