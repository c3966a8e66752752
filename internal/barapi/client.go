package barapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"replaylistener/internal/config"
	"replaylistener/internal/logging"
	"replaylistener/internal/replay"
	"replaylistener/internal/services"
)

const (
	defaultSearchTimeout   = 15 * time.Second
	defaultFetchTimeout    = 10 * time.Second
	defaultDownloadTimeout = 10 * time.Second
	defaultPageLimit       = 500

	maxMetadataBytes = 8 << 20
)

// Client provides access to the replay search, detail, and download endpoints.
type Client struct {
	baseURL         string
	downloadBaseURL string
	fromDate        string
	toDate          string
	pageLimit       int
	searchTimeout   time.Duration
	fetchTimeout    time.Duration
	downloadTimeout time.Duration
	httpClient      *http.Client
	logger          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for fail-soft search errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDownloadBaseURL sets the origin serving replay files.
func WithDownloadBaseURL(base string) Option {
	return func(c *Client) {
		c.downloadBaseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithDateWindow sets the inclusive search window (YYYY-MM-DD).
func WithDateWindow(from, to string) Option {
	return func(c *Client) {
		c.fromDate = strings.TrimSpace(from)
		c.toDate = strings.TrimSpace(to)
	}
}

// WithPageLimit sets the number of records requested per search page.
func WithPageLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.pageLimit = limit
		}
	}
}

// WithTimeouts overrides the per-request timeouts. Zero values keep the
// defaults.
func WithTimeouts(search, fetch, download time.Duration) Option {
	return func(c *Client) {
		if search > 0 {
			c.searchTimeout = search
		}
		if fetch > 0 {
			c.fetchTimeout = fetch
		}
		if download > 0 {
			c.downloadTimeout = download
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("replay api base url required")
	}
	client := &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		pageLimit:       defaultPageLimit,
		searchTimeout:   defaultSearchTimeout,
		fetchTimeout:    defaultFetchTimeout,
		downloadTimeout: defaultDownloadTimeout,
		httpClient:      &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = logging.NewNop()
	}
	client.logger = logging.NewComponentLogger(client.logger, "barapi")
	return client, nil
}

// NewFromConfig builds a client from the listener configuration, sharing one
// transport sized by the worker pool across all three endpoints.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	transport := NewTransport(cfg.Listener.PoolSize, cfg.Listener.PoolConnections)
	return New(cfg.API.BaseURL,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithLogger(logger),
		WithDownloadBaseURL(cfg.API.DownloadBaseURL),
		WithDateWindow(cfg.Listener.FromDate, cfg.Listener.ToDate),
		WithPageLimit(cfg.Listener.PageLimit),
		WithTimeouts(cfg.SearchTimeout(), cfg.FetchTimeout(), cfg.DownloadTimeout()),
	)
}

// SearchURL returns the search endpoint URL for page.
func (c *Client) SearchURL(page int) string {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("hasBots", "false")
	params.Set("endedNormally", "true")
	if c.fromDate != "" {
		params.Add("date", c.fromDate)
	}
	if c.toDate != "" {
		params.Add("date", c.toDate)
	}
	return c.baseURL + "/replays?" + params.Encode()
}

// Search returns the records on page. Any transport, status, or decode error
// is logged and yields an empty slice; the caller's next iteration is the
// retry.
func (c *Client) Search(ctx context.Context, page int) []replay.Record {
	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("requesting page", logging.Page(page), logging.Int("limit", c.pageLimit))

	records, err := c.SearchPage(ctx, page)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		logging.WarnWithContext(logger, "search page failed; treating as empty", "search_failed",
			logging.Page(page),
			logging.Error(err),
			logging.String("reason", services.FailureReason(err)),
			logging.String(logging.FieldErrorHint, "check api.base_url and network connectivity"),
			logging.String(logging.FieldImpact, "page counts as empty; retried after backoff"),
		)
		return nil
	}
	return records
}

// SearchPage is the strict form of Search and returns the underlying error.
func (c *Client) SearchPage(ctx context.Context, page int) ([]replay.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	var payload replay.SearchPage
	if err := c.getJSON(ctx, c.SearchURL(page), "search", &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Ping issues a one-record search to confirm the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()
	endpoint := c.baseURL + "/replays?limit=1"
	var payload replay.SearchPage
	return c.getJSON(ctx, endpoint, "ping", &payload)
}

// FetchMetadata retrieves the detail document for id. A document without a
// fileName is rejected with services.ErrValidation.
func (c *Client) FetchMetadata(ctx context.Context, id replay.ID) (replay.Metadata, error) {
	if id.Empty() {
		return replay.Metadata{}, services.Wrap(services.ErrValidation, "fetch", "get replay", "empty replay id", nil)
	}
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	endpoint := c.baseURL + "/replays/" + url.PathEscape(id.String())
	resp, err := c.get(ctx, endpoint, "fetch")
	if err != nil {
		return replay.Metadata{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
	if err != nil {
		return replay.Metadata{}, services.Wrap(services.MarkerForTransport(err), "fetch", "read body", id.String(), err)
	}
	meta, err := replay.ParseMetadata(id, body)
	if err != nil {
		return replay.Metadata{}, services.Wrap(services.ErrValidation, "fetch", "decode", id.String(), err)
	}
	if meta.FileName == "" {
		return replay.Metadata{}, services.Wrap(services.ErrValidation, "fetch", "decode", "metadata has no fileName", nil)
	}
	return meta, nil
}

// DownloadURL returns the origin URL for a replay file name.
func (c *Client) DownloadURL(fileName string) string {
	return c.downloadBaseURL + "/" + url.PathEscape(fileName)
}

// Download streams the replay file to w. The download timeout bounds both
// the wait for response headers and any stall between body reads, so large
// files that keep making progress are not cut off.
func (c *Client) Download(ctx context.Context, fileName string, w io.Writer) (int64, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return 0, services.Wrap(services.ErrValidation, "download", "get file", "empty file name", nil)
	}
	if c.downloadBaseURL == "" {
		return 0, services.Wrap(services.ErrConfiguration, "download", "get file", "download base url not configured", nil)
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	watchdog := time.AfterFunc(c.downloadTimeout, func() { cancel(errStalled) })
	defer watchdog.Stop()

	resp, err := c.get(ctx, c.DownloadURL(fileName), "download")
	if err != nil {
		if errors.Is(context.Cause(ctx), errStalled) {
			return 0, services.Wrap(services.ErrTimeout, "download", "get file", fileName, errStalled)
		}
		return 0, err
	}
	defer resp.Body.Close()

	written, err := io.Copy(&progressWriter{w: w, onWrite: func() { watchdog.Reset(c.downloadTimeout) }}, resp.Body)
	if err != nil {
		if errors.Is(context.Cause(ctx), errStalled) {
			return written, services.Wrap(services.ErrTimeout, "download", "read body", fileName, errStalled)
		}
		return written, services.Wrap(services.MarkerForTransport(err), "download", "read body", fileName, err)
	}
	return written, nil
}

var errStalled = errors.New("no data received within download timeout")

type progressWriter struct {
	w       io.Writer
	onWrite func()
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.onWrite()
	}
	return n, err
}

func (c *Client) get(ctx context.Context, endpoint, stage string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "build request", endpoint, err)
	}
	req.Header.Set("Accept", "application/json, */*")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.MarkerForTransport(err), stage, "execute request",
			fmt.Sprintf("latency=%v", latency.Round(time.Millisecond)), err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, services.Wrap(services.MarkerForStatus(resp.StatusCode), stage, "execute request",
			fmt.Sprintf("status %d (latency=%v)", resp.StatusCode, latency.Round(time.Millisecond)), nil)
	}
	return resp, nil
}
