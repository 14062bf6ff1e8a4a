// Package retention bounds how many cleaned episodes stay published.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"podclean/internal/ledger"
	"podclean/internal/logging"
)

// Store is the slice of the ledger retention needs.
type Store interface {
	Processed(ctx context.Context) ([]*ledger.Episode, error)
	Delete(ctx context.Context, guid string) (bool, error)
}

// Pruned describes one removed episode.
type Pruned struct {
	GUID       string
	Title      string
	OutputPath string
}

// Prune keeps the keep most recent processed episodes and removes the rest:
// their cleaned file under dir and their ledger row. keep <= 0 disables
// pruning. Output files outside dir are left alone; only the row goes.
func Prune(ctx context.Context, store Store, dir string, keep int, logger *slog.Logger) ([]Pruned, error) {
	if keep <= 0 {
		return nil, nil
	}
	logger = logging.NewComponentLogger(logger, "retention")

	processed, err := store.Processed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processed episodes: %w", err)
	}
	if len(processed) <= keep {
		return nil, nil
	}

	var (
		pruned []Pruned
		errs   []error
	)
	for _, ep := range processed[keep:] {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}
		if ep.OutputPath != "" && within(dir, ep.OutputPath) {
			if err := os.Remove(ep.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", ep.OutputPath, err))
				continue
			}
		}
		if _, err := store.Delete(ctx, ep.GUID); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Info("episode pruned",
			logging.String(logging.FieldEpisodeID, ep.GUID),
			logging.String("title", ep.Title),
			logging.String("path", ep.OutputPath),
		)
		pruned = append(pruned, Pruned{GUID: ep.GUID, Title: ep.Title, OutputPath: ep.OutputPath})
	}
	return pruned, errors.Join(errs...)
}

func within(dir, path string) bool {
	if strings.TrimSpace(dir) == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
