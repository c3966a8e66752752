package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize(now time.Time) error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeListener(now)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MetasDir) == "" {
		c.Paths.MetasDir = defaultMetasDir
	}
	if c.Paths.MetasDir, err = expandPath(c.Paths.MetasDir); err != nil {
		return fmt.Errorf("paths.metas_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	if value, ok := os.LookupEnv("BAR_API_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.BaseURL = value
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaultAPIBaseURL
	}
	if value, ok := os.LookupEnv("BAR_DOWNLOAD_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.API.DownloadBaseURL = value
	}
	c.API.DownloadBaseURL = strings.TrimRight(strings.TrimSpace(c.API.DownloadBaseURL), "/")
	if c.API.DownloadBaseURL == "" {
		c.API.DownloadBaseURL = defaultDownloadBaseURL
	}
	if c.API.SearchTimeoutSeconds == 0 {
		c.API.SearchTimeoutSeconds = defaultSearchTimeoutSeconds
	}
	if c.API.FetchTimeoutSeconds == 0 {
		c.API.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.API.DownloadTimeoutSeconds == 0 {
		c.API.DownloadTimeoutSeconds = defaultDownloadTimeoutSeconds
	}
}

func (c *Config) normalizeListener(now time.Time) {
	from, to := DefaultDateWindow(now)
	c.Listener.FromDate = strings.TrimSpace(c.Listener.FromDate)
	if c.Listener.FromDate == "" {
		c.Listener.FromDate = from
	}
	c.Listener.ToDate = strings.TrimSpace(c.Listener.ToDate)
	if c.Listener.ToDate == "" {
		c.Listener.ToDate = to
	}
	if c.Listener.PoolConnections == 0 {
		c.Listener.PoolConnections = defaultPoolConnections
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("REPLAYLISTENER_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
