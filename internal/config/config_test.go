package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"replaylistener/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndFillsDateWindow(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if !filepath.IsAbs(cfg.Paths.DownloadDir) || filepath.Base(cfg.Paths.DownloadDir) != "Replays" {
		t.Fatalf("unexpected download dir: %q", cfg.Paths.DownloadDir)
	}
	if filepath.Base(cfg.Paths.MetasDir) != "metas" {
		t.Fatalf("unexpected metas dir: %q", cfg.Paths.MetasDir)
	}
	wantLogDir := filepath.Join(tempHome, ".local", "share", "replaylistener", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.API.BaseURL != "https://api.bar-rts.com" {
		t.Fatalf("unexpected api base url: %q", cfg.API.BaseURL)
	}
	if cfg.Listener.PageLimit != 500 || cfg.Listener.MaxEmptyPages != 5 || cfg.Listener.PoolSize != 20 {
		t.Fatalf("unexpected listener defaults: %+v", cfg.Listener)
	}
	if cfg.Listener.IntervalSeconds != 1 {
		t.Fatalf("unexpected interval: %d", cfg.Listener.IntervalSeconds)
	}

	wantFrom, wantTo := config.DefaultDateWindow(time.Now())
	if cfg.Listener.FromDate != wantFrom || cfg.Listener.ToDate != wantTo {
		t.Fatalf("unexpected date window: %s..%s want %s..%s", cfg.Listener.FromDate, cfg.Listener.ToDate, wantFrom, wantTo)
	}
}

func TestDefaultDateWindow(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	from, to := config.DefaultDateWindow(now)
	if from != "2025-02-28" {
		t.Fatalf("from = %q, want 2025-02-28", from)
	}
	if to != "2025-03-03" {
		t.Fatalf("to = %q, want 2025-03-03", to)
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "replaylistener.toml")

	type payload struct {
		Paths struct {
			DownloadDir string `toml:"download_dir"`
			MetasDir    string `toml:"metas_dir"`
		} `toml:"paths"`
		Listener struct {
			FromDate      string `toml:"from_date"`
			ToDate        string `toml:"to_date"`
			MaxEmptyPages int    `toml:"max_empty_pages"`
			PoolSize      int    `toml:"pool_size"`
			Endless       bool   `toml:"endless"`
		} `toml:"listener"`
	}
	custom := payload{}
	custom.Paths.DownloadDir = filepath.Join(tempDir, "dl")
	custom.Paths.MetasDir = filepath.Join(tempDir, "m")
	custom.Listener.FromDate = "2024-05-01"
	custom.Listener.ToDate = "2024-05-04"
	custom.Listener.MaxEmptyPages = 9
	custom.Listener.PoolSize = 4
	custom.Listener.Endless = true
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DownloadDir != filepath.Join(tempDir, "dl") {
		t.Fatalf("unexpected download dir: %q", cfg.Paths.DownloadDir)
	}
	if cfg.Listener.FromDate != "2024-05-01" || cfg.Listener.ToDate != "2024-05-04" {
		t.Fatalf("unexpected date window: %s..%s", cfg.Listener.FromDate, cfg.Listener.ToDate)
	}
	if cfg.Listener.MaxEmptyPages != 9 || cfg.Listener.PoolSize != 4 || !cfg.Listener.Endless {
		t.Fatalf("unexpected listener section: %+v", cfg.Listener)
	}
	if cfg.Listener.PageLimit != 500 {
		t.Fatalf("expected omitted page_limit to keep default, got %d", cfg.Listener.PageLimit)
	}
}

func TestEnvVarOverridesAPIBaseURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BAR_API_BASE_URL", "http://127.0.0.1:9999/")
	t.Setenv("BAR_DOWNLOAD_BASE_URL", "http://127.0.0.1:9998/demos/")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:9999" {
		t.Errorf("expected api url from env with trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.API.DownloadBaseURL != "http://127.0.0.1:9998/demos" {
		t.Errorf("expected download url from env, got %q", cfg.API.DownloadBaseURL)
	}
}

func TestLoadEnvFileDoesNotOverrideExistingEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "REPLAYLISTENER_TEST_NEW=from-file\nREPLAYLISTENER_TEST_SET=from-file\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("REPLAYLISTENER_TEST_SET", "from-env")
	t.Setenv("REPLAYLISTENER_TEST_NEW", "")
	os.Unsetenv("REPLAYLISTENER_TEST_NEW")

	if err := config.LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile returned error: %v", err)
	}
	if got := os.Getenv("REPLAYLISTENER_TEST_NEW"); got != "from-file" {
		t.Fatalf("expected value from env file, got %q", got)
	}
	if got := os.Getenv("REPLAYLISTENER_TEST_SET"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}

	if err := config.LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored, got %v", err)
	}
}

func TestSandboxRedirectsOutputRoots(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DownloadDir = "/data/Replays"
	cfg.Paths.MetasDir = "/data/metas"

	if cfg.DownloadRoot() != "/data/Replays" {
		t.Fatalf("unexpected download root without sandbox: %q", cfg.DownloadRoot())
	}

	cfg.Listener.Sandbox = true
	if cfg.DownloadRoot() != "/data/Replays_staging" {
		t.Fatalf("unexpected sandbox download root: %q", cfg.DownloadRoot())
	}
	if cfg.MetasRoot() != "/data/metas_staging" {
		t.Fatalf("unexpected sandbox metas root: %q", cfg.MetasRoot())
	}
	if cfg.Paths.DownloadDir != "/data/Replays" {
		t.Fatal("sandbox must not rewrite the configured path")
	}
	if filepath.Dir(cfg.LockPath()) != "/data/Replays_staging" {
		t.Fatalf("expected lock inside sandbox root, got %q", cfg.LockPath())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bad from date", func(c *config.Config) { c.Listener.FromDate = "03/01/2025" }, "listener.from_date"},
		{"inverted window", func(c *config.Config) { c.Listener.FromDate, c.Listener.ToDate = "2025-03-02", "2025-03-01" }, "listener.to_date"},
		{"zero pool", func(c *config.Config) { c.Listener.PoolSize = 0 }, "listener.pool_size"},
		{"zero page limit", func(c *config.Config) { c.Listener.PageLimit = 0 }, "listener.page_limit"},
		{"negative interval", func(c *config.Config) { c.Listener.IntervalSeconds = -1 }, "listener.interval_seconds"},
		{"bad scheme", func(c *config.Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url"},
		{"same roots", func(c *config.Config) { c.Paths.MetasDir = c.Paths.DownloadDir }, "paths.metas_dir"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DownloadDir = "/tmp/r"
			cfg.Paths.MetasDir = "/tmp/m"
			cfg.Listener.FromDate = "2025-03-01"
			cfg.Listener.ToDate = "2025-03-03"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Listener.PoolConnections != 10 {
		t.Fatalf("unexpected pool connections from sample: %d", cfg.Listener.PoolConnections)
	}
}

func TestEnsureDirectoriesCreatesSandboxRoots(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DownloadDir = filepath.Join(base, "Replays")
	cfg.Paths.MetasDir = filepath.Join(base, "metas")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Listener.Sandbox = true

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{"Replays_staging", "metas_staging", "logs", "state"} {
		info, err := os.Stat(filepath.Join(base, dir))
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "Replays")); !os.IsNotExist(err) {
		t.Fatal("production download root must stay untouched in sandbox mode")
	}
}
