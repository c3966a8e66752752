package testsupport

import (
	"path/filepath"
	"testing"

	"replaylistener/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The date window is fixed so tests do not depend on the wall clock.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadDir = filepath.Join(base, "Replays")
	cfgVal.Paths.MetasDir = filepath.Join(base, "metas")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.API.BaseURL = "http://127.0.0.1:1"
	cfgVal.API.DownloadBaseURL = "http://127.0.0.1:1/demos"
	cfgVal.Listener.FromDate = "2025-01-01"
	cfgVal.Listener.ToDate = "2025-01-04"
	cfgVal.Listener.IntervalSeconds = 0
	cfgVal.Listener.PoolSize = 4
	cfgVal.Listener.PoolConnections = 4

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPI points the config at a test server.
func WithAPI(baseURL, downloadBaseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = baseURL
		b.cfg.API.DownloadBaseURL = downloadBaseURL
	}
}

// WithSandbox enables sandbox output roots.
func WithSandbox() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Listener.Sandbox = true
	}
}

// WithEndless disables the empty-page stop condition.
func WithEndless() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Listener.Endless = true
	}
}

// WithMaxEmptyPages sets the consecutive empty page threshold.
func WithMaxEmptyPages(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Listener.MaxEmptyPages = n
	}
}

// WithPoolSize sets the worker pool size.
func WithPoolSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Listener.PoolSize = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DownloadDir)
}
