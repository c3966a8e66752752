package preflight

import (
	"context"

	"replaylistener/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := DirectoryChecks(cfg)
	results = append(results, CheckAPI(ctx, cfg.API.BaseURL))
	return results
}

// DirectoryChecks verifies the output roots the listener writes to. In
// sandbox mode these are the staging roots.
func DirectoryChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Download directory", cfg.DownloadRoot()),
		CheckDirectoryAccess("Metadata directory", cfg.MetasRoot()),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
