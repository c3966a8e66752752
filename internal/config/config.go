package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and state directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	MetasDir    string `toml:"metas_dir"`
	LogDir      string `toml:"log_dir"`
	StateDir    string `toml:"state_dir"`
}

// API contains the replay service endpoints and per-request timeouts.
type API struct {
	BaseURL                string `toml:"base_url"`
	DownloadBaseURL        string `toml:"download_base_url"`
	SearchTimeoutSeconds   int    `toml:"search_timeout_seconds"`
	FetchTimeoutSeconds    int    `toml:"fetch_timeout_seconds"`
	DownloadTimeoutSeconds int    `toml:"download_timeout_seconds"`
}

// Listener contains the crawl window, pacing, and pool sizing.
type Listener struct {
	FromDate        string `toml:"from_date"`
	ToDate          string `toml:"to_date"`
	IntervalSeconds int    `toml:"interval_seconds"`
	PageLimit       int    `toml:"page_limit"`
	MaxEmptyPages   int    `toml:"max_empty_pages"`
	PoolSize        int    `toml:"pool_size"`
	PoolConnections int    `toml:"pool_connections"`
	SkipDownload    bool   `toml:"skip_download"`
	ForceRefetch    bool   `toml:"force_refetch"`
	Sandbox         bool   `toml:"sandbox"`
	Endless         bool   `toml:"endless"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the replay listener.
//
// Configuration sections:
//   - Paths: replay and metadata output roots, logs, and local state
//   - API: search/detail endpoint, binary origin, and request timeouts
//   - Listener: date window, page size, backoff, stop condition, pool sizing
//   - Logging: log format, level, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	API      API      `toml:"api"`
	Listener Listener `toml:"listener"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/replaylistener/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(time.Now()); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load env file %s: %w", expanded, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("replaylistener.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DownloadRoot returns the effective replay output root, honouring sandbox mode.
func (c *Config) DownloadRoot() string {
	return c.outputDir(c.Paths.DownloadDir)
}

// MetasRoot returns the effective metadata output root, honouring sandbox mode.
func (c *Config) MetasRoot() string {
	return c.outputDir(c.Paths.MetasDir)
}

func (c *Config) outputDir(dir string) string {
	if !c.Listener.Sandbox || dir == "" {
		return dir
	}
	return SandboxDir(dir)
}

// SandboxDir maps an output directory onto its staging sibling:
// /data/Replays becomes /data/Replays_staging.
func SandboxDir(dir string) string {
	cleaned := filepath.Clean(dir)
	return filepath.Join(filepath.Dir(cleaned), filepath.Base(cleaned)+SandboxSuffix)
}

// SearchTimeout returns the per-request timeout for search calls.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.API.SearchTimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-request timeout for metadata calls.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.API.FetchTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the per-request timeout for replay downloads.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.API.DownloadTimeoutSeconds) * time.Second
}

// Interval returns the backoff between loop iterations.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Listener.IntervalSeconds) * time.Second
}

// HistoryPath returns the location of the batch history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-listener lock file for the effective download root.
func (c *Config) LockPath() string {
	return filepath.Join(c.DownloadRoot(), ".replaylistener.lock")
}

// EnsureDirectories creates the output roots (sandbox-aware), log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DownloadRoot(), c.MetasRoot(), c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the config as TOML, used by `config show`.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
