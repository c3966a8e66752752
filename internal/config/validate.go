package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateListener(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.MetasDir) == "" {
		return errors.New("paths.metas_dir must be set")
	}
	if c.DownloadRoot() == c.MetasRoot() {
		return errors.New("paths.metas_dir must differ from paths.download_dir")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if err := validateHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if err := validateHTTPURL("api.download_base_url", c.API.DownloadBaseURL); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"api.search_timeout_seconds":   c.API.SearchTimeoutSeconds,
		"api.fetch_timeout_seconds":    c.API.FetchTimeoutSeconds,
		"api.download_timeout_seconds": c.API.DownloadTimeoutSeconds,
	})
}

func (c *Config) validateListener() error {
	from, err := time.Parse(DateLayout, c.Listener.FromDate)
	if err != nil {
		return fmt.Errorf("listener.from_date must be YYYY-MM-DD, got %q", c.Listener.FromDate)
	}
	to, err := time.Parse(DateLayout, c.Listener.ToDate)
	if err != nil {
		return fmt.Errorf("listener.to_date must be YYYY-MM-DD, got %q", c.Listener.ToDate)
	}
	if to.Before(from) {
		return fmt.Errorf("listener.to_date (%s) must not be before listener.from_date (%s)", c.Listener.ToDate, c.Listener.FromDate)
	}
	if c.Listener.IntervalSeconds < 0 {
		return errors.New("listener.interval_seconds must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"listener.page_limit":       c.Listener.PageLimit,
		"listener.max_empty_pages":  c.Listener.MaxEmptyPages,
		"listener.pool_size":        c.Listener.PoolSize,
		"listener.pool_connections": c.Listener.PoolConnections,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
