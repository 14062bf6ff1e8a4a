package logs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// DefaultPoll is how often follow mode checks the file for new lines.
const DefaultPoll = 250 * time.Millisecond

// Options controls Tail.
type Options struct {
	// Lines is the number of trailing lines printed first; 0 prints the whole
	// file and a negative value prints nothing.
	Lines    int
	Follow   bool
	Poll     time.Duration
	MinLevel slog.Level
}

// Tail writes the trailing lines of path to w. With Follow set it then
// streams appended lines until ctx is cancelled, returning nil. A missing
// file is an error only when not following.
func Tail(ctx context.Context, path string, w io.Writer, opts Options) error {
	if opts.Poll <= 0 {
		opts.Poll = DefaultPoll
	}
	keep := func(line string) bool {
		level, ok := LineLevel(line)
		return !ok || level >= opts.MinLevel
	}

	lines, offset, err := readLast(path, opts.Lines, keep)
	if err != nil {
		if !opts.Follow || !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := emit(w, lines); err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	ticker := time.NewTicker(opts.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		lines, next, err := readFrom(path, offset, keep)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				offset = 0
				continue
			}
			return err
		}
		offset = next
		if err := emit(w, lines); err != nil {
			return err
		}
	}
}

func emit(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// readLast returns up to n trailing lines that pass keep along with the
// offset just past the last complete line.
func readLast(path string, n int, keep func(string) bool) ([]string, int64, error) {
	all, offset, err := readFrom(path, 0, keep)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case n < 0:
		return nil, offset, nil
	case n == 0 || len(all) <= n:
		return all, offset, nil
	default:
		return all[len(all)-n:], offset, nil
	}
}

// readFrom reads complete lines starting at offset. A file that shrank below
// offset was rotated or truncated and is read from the start.
func readFrom(path string, offset int64, keep func(string) bool) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, offset, fmt.Errorf("log path %q is a directory", path)
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReaderSize(file, 64*1024)
	var lines []string
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, offset, fmt.Errorf("read log file: %w", err)
		}
		offset += int64(len(chunk))
		line := strings.TrimRight(chunk, "\r\n")
		if keep == nil || keep(line) {
			lines = append(lines, line)
		}
	}
	return lines, offset, nil
}

// LineLevel extracts the level of a console or JSON formatted log line.
func LineLevel(line string) (slog.Level, bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var record struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal([]byte(trimmed), &record); err != nil {
			return 0, false
		}
		return ParseLevel(record.Level)
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return 0, false
	}
	if _, err := time.Parse(time.RFC3339, fields[0]); err != nil {
		return 0, false
	}
	return ParseLevel(fields[1])
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
