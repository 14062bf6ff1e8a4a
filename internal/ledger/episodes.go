package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const episodeColumns = "guid, title, source_url, source_path, output_path, status, match_count, removed_ms, duration_ms, output_bytes, attempts, published_at, processed_at, error, created_at, updated_at"

// newestFirst orders episodes for the published feed and retention.
const newestFirst = "ORDER BY published_at DESC, processed_at DESC, guid"

// Upsert records a downloaded episode. A new GUID starts as pending. For a
// known GUID only the descriptive fields are refreshed; processing state is
// preserved.
func (s *Store) Upsert(ctx context.Context, ep *Episode) error {
	if ep == nil || strings.TrimSpace(ep.GUID) == "" {
		return errors.New("upsert episode: guid is required")
	}
	now := formatTime(time.Now())
	_, err := s.execWithRetry(ctx,
		`INSERT INTO episodes (guid, title, source_url, source_path, status, published_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(guid) DO UPDATE SET
            title = excluded.title,
            source_url = COALESCE(excluded.source_url, episodes.source_url),
            source_path = COALESCE(excluded.source_path, episodes.source_path),
            published_at = COALESCE(excluded.published_at, episodes.published_at),
            updated_at = excluded.updated_at`,
		ep.GUID,
		ep.Title,
		nullableString(ep.SourceURL),
		nullableString(ep.SourcePath),
		StatusPending,
		nullableTimeValue(ep.PublishedAt),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert episode %s: %w", ep.GUID, err)
	}
	return nil
}

// Get returns the episode with guid, or nil when it is not recorded.
func (s *Store) Get(ctx context.Context, guid string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE guid = ?`, guid)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// Pending returns episodes awaiting processing, oldest first so a backlog
// publishes in order.
func (s *Store) Pending(ctx context.Context) ([]*Episode, error) {
	return s.query(ctx,
		`SELECT `+episodeColumns+` FROM episodes
         WHERE status = ? OR (status = ? AND attempts < ?)
         ORDER BY published_at ASC, guid`,
		StatusPending, StatusFailed, MaxAttempts)
}

// Processed returns cleaned episodes, newest first.
func (s *Store) Processed(ctx context.Context) ([]*Episode, error) {
	return s.query(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE status = ? `+newestFirst, StatusProcessed)
}

// List returns every episode, newest first.
func (s *Store) List(ctx context.Context) ([]*Episode, error) {
	return s.query(ctx, `SELECT `+episodeColumns+` FROM episodes `+newestFirst)
}

// MarkProcessed records a successful clean. When truncateSource is set the
// downloaded file is cut to zero bytes: it stays on disk as a marker so the
// downloader does not fetch it again, but no longer takes space.
func (s *Store) MarkProcessed(ctx context.Context, guid string, out Outcome, truncateSource bool) error {
	ep, err := s.Get(ctx, guid)
	if err != nil {
		return err
	}
	if ep == nil {
		return fmt.Errorf("mark processed: episode %s not found", guid)
	}
	now := time.Now()
	if _, err := s.execWithRetry(ctx,
		`UPDATE episodes SET status = ?, output_path = ?, match_count = ?, removed_ms = ?, duration_ms = ?,
            output_bytes = ?, processed_at = ?, error = NULL, updated_at = ?
         WHERE guid = ?`,
		StatusProcessed,
		nullableString(out.OutputPath),
		out.MatchCount,
		out.RemovedMs,
		out.DurationMs,
		out.OutputBytes,
		formatTime(now),
		formatTime(now),
		guid,
	); err != nil {
		return fmt.Errorf("mark processed %s: %w", guid, err)
	}
	if truncateSource && ep.SourcePath != "" && ep.SourcePath != out.OutputPath {
		if err := os.Truncate(ep.SourcePath, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("truncate source %s: %w", ep.SourcePath, err)
		}
	}
	return nil
}

// MarkFailed records a failed attempt. status must be StatusFailed or
// StatusRejected.
func (s *Store) MarkFailed(ctx context.Context, guid string, status Status, message string) error {
	if status != StatusFailed && status != StatusRejected {
		return fmt.Errorf("mark failed: invalid status %q", status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE episodes SET status = ?, attempts = attempts + 1, error = ?, updated_at = ? WHERE guid = ?`,
		status,
		nullableString(message),
		formatTime(time.Now()),
		guid,
	)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", guid, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mark failed: episode %s not found", guid)
	}
	return nil
}

// Reset returns an episode to pending and clears its attempt count.
func (s *Store) Reset(ctx context.Context, guid string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE episodes SET status = ?, attempts = 0, error = NULL, updated_at = ? WHERE guid = ?`,
		StatusPending, formatTime(time.Now()), guid)
	if err != nil {
		return false, fmt.Errorf("reset %s: %w", guid, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Delete removes an episode row. It reports whether a row existed.
func (s *Store) Delete(ctx context.Context, guid string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM episodes WHERE guid = ?`, guid)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", guid, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Stats counts episodes per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(*) FROM episodes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("episode stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

func scanEpisode(scanner interface{ Scan(dest ...any) error }) (*Episode, error) {
	var (
		guid         string
		title        string
		sourceURL    sql.NullString
		sourcePath   sql.NullString
		outputPath   sql.NullString
		statusStr    string
		matchCount   int
		removedMs    int64
		durationMs   int64
		outputBytes  int64
		attempts     int
		publishedRaw sql.NullString
		processedRaw sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&guid,
		&title,
		&sourceURL,
		&sourcePath,
		&outputPath,
		&statusStr,
		&matchCount,
		&removedMs,
		&durationMs,
		&outputBytes,
		&attempts,
		&publishedRaw,
		&processedRaw,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	ep := &Episode{
		GUID:        guid,
		Title:       title,
		SourceURL:   sourceURL.String,
		SourcePath:  sourcePath.String,
		OutputPath:  outputPath.String,
		Status:      Status(statusStr),
		MatchCount:  matchCount,
		RemovedMs:   removedMs,
		DurationMs:  durationMs,
		OutputBytes: outputBytes,
		Attempts:    attempts,
		Error:       errorMessage.String,
	}
	if t, err := parseTimeString(publishedRaw.String); err == nil {
		ep.PublishedAt = t
	}
	if t, err := parseTimeString(processedRaw.String); err == nil {
		ep.ProcessedAt = &t
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		ep.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		ep.UpdatedAt = t
	}
	return ep, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTimeValue(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

// formatTime uses a fixed-width layout so lexical order in SQLite matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
