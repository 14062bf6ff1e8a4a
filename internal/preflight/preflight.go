package preflight

import (
	"context"
	"strings"

	"podclean/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The feed check only runs when a source URL is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Downloads directory", cfg.Paths.DownloadsDir),
		CheckDirectoryAccess("Episodes directory", cfg.Paths.EpisodesDir),
		CheckSnippets(cfg.Paths.SnippetsDir),
	}

	if strings.TrimSpace(cfg.Feed.SourceURL) != "" {
		results = append(results, CheckFeed(ctx, cfg.Feed.SourceURL, cfg.Feed.UserAgent))
	}

	return results
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
