package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"podclean/internal/config"
	"podclean/internal/feed"
	"podclean/internal/ledger"
)

// Publish rewrites the cleaned feed from the processed episodes in the
// ledger and returns how many items it lists. Episodes whose output file has
// disappeared are left out.
func Publish(ctx context.Context, cfg *config.Config, store *ledger.Store) (int, error) {
	processed, err := store.Processed(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processed episodes: %w", err)
	}

	relDir := episodesRelDir(cfg)
	items := make([]feed.PublishedItem, 0, len(processed))
	for _, ep := range processed {
		if ep.OutputPath == "" {
			continue
		}
		info, err := os.Stat(ep.OutputPath)
		if err != nil {
			continue
		}
		published := ep.PublishedAt
		if published.IsZero() && ep.ProcessedAt != nil {
			published = *ep.ProcessedAt
		}
		url := feed.EpisodeURL(cfg.Feed.PublicBaseURL, relDir, filepath.Base(ep.OutputPath))
		items = append(items, feed.PublishedItem{
			Title:     ep.Title,
			URL:       url,
			Length:    info.Size(),
			Type:      feed.ContentType(ep.OutputPath),
			GUID:      url,
			Published: published,
		})
	}

	meta := feed.Meta{
		Title:       cfg.Feed.Title,
		Link:        cfg.Feed.PublicBaseURL,
		Description: cfg.Feed.Description,
		Language:    cfg.Feed.Language,
		Author:      cfg.Feed.Author,
	}
	if err := feed.WriteFile(cfg.Paths.FeedFile, meta, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// episodesRelDir is the episodes directory relative to the feed file, which
// is how both are laid out on the public host.
func episodesRelDir(cfg *config.Config) string {
	rel, err := filepath.Rel(filepath.Dir(cfg.Paths.FeedFile), cfg.Paths.EpisodesDir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(cfg.Paths.EpisodesDir)
	}
	return rel
}
