package config

import "time"

const (
	defaultDownloadDir            = "Replays"
	defaultMetasDir               = "metas"
	defaultLogDir                 = "~/.local/share/replaylistener/logs"
	defaultStateDir               = "~/.local/share/replaylistener"
	defaultAPIBaseURL             = "https://api.bar-rts.com"
	defaultDownloadBaseURL        = "https://storage.uk.cloud.ovh.net/v1/AUTH_10286efc0d334efd917d476d7183232e/BAR/demos"
	defaultSearchTimeoutSeconds   = 15
	defaultFetchTimeoutSeconds    = 10
	defaultDownloadTimeoutSeconds = 10
	defaultIntervalSeconds        = 1
	defaultPageLimit              = 500
	defaultMaxEmptyPages          = 5
	defaultPoolSize               = 20
	defaultPoolConnections        = 10
	defaultFromDateOffsetDays     = -1
	defaultToDateOffsetDays       = 2
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30

	// DateLayout is the ISO calendar date format accepted for the search window.
	DateLayout = "2006-01-02"

	// SandboxSuffix is appended to output directory names in sandbox mode.
	SandboxSuffix = "_staging"
)

// Default returns a Config populated with repository defaults. Date window
// fields stay empty; normalize fills them relative to the current day.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			MetasDir:    defaultMetasDir,
			LogDir:      defaultLogDir,
			StateDir:    defaultStateDir,
		},
		API: API{
			BaseURL:                defaultAPIBaseURL,
			DownloadBaseURL:        defaultDownloadBaseURL,
			SearchTimeoutSeconds:   defaultSearchTimeoutSeconds,
			FetchTimeoutSeconds:    defaultFetchTimeoutSeconds,
			DownloadTimeoutSeconds: defaultDownloadTimeoutSeconds,
		},
		Listener: Listener{
			IntervalSeconds: defaultIntervalSeconds,
			PageLimit:       defaultPageLimit,
			MaxEmptyPages:   defaultMaxEmptyPages,
			PoolSize:        defaultPoolSize,
			PoolConnections: defaultPoolConnections,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// DefaultDateWindow returns the search window used when none is configured:
// yesterday through two days from now, in local calendar dates.
func DefaultDateWindow(now time.Time) (string, string) {
	from := now.AddDate(0, 0, defaultFromDateOffsetDays).Format(DateLayout)
	to := now.AddDate(0, 0, defaultToDateOffsetDays).Format(DateLayout)
	return from, to
}
