package logs_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"podclean/internal/logs"
)

const sample = `2026-10-01T10:00:00Z INFO runner: pass started
2026-10-01T10:00:01Z DEBUG scan: correlating snippet=intro.wav
2026-10-01T10:00:02Z WARN runner: episode failed
{"ts":"2026-10-01T10:00:03Z","level":"error","msg":"publish failed"}
2026-10-01T10:00:04Z INFO runner: pass completed
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "podclean.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, sample)

	var out bytes.Buffer
	if err := logs.Tail(context.Background(), path, &out, logs.Options{Lines: 2, MinLevel: slog.LevelDebug}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != 2 || !strings.Contains(got[0], "publish failed") || !strings.Contains(got[1], "pass completed") {
		t.Fatalf("unexpected lines: %q", got)
	}
}

func TestTailFiltersByLevel(t *testing.T) {
	path := writeLog(t, sample)

	var out bytes.Buffer
	if err := logs.Tail(context.Background(), path, &out, logs.Options{MinLevel: slog.LevelWarn}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != 2 || !strings.Contains(got[0], "episode failed") || !strings.Contains(got[1], "publish failed") {
		t.Fatalf("unexpected lines: %q", got)
	}
}

func TestTailSkipsIncompleteLine(t *testing.T) {
	path := writeLog(t, "2026-10-01T10:00:00Z INFO a: done\n2026-10-01T10:00:01Z INFO a: half")

	var out bytes.Buffer
	if err := logs.Tail(context.Background(), path, &out, logs.Options{}); err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if strings.Contains(out.String(), "half") {
		t.Fatalf("incomplete line should be held back: %q", out.String())
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	err := logs.Tail(context.Background(), path, &bytes.Buffer{}, logs.Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// waitFor blocks until out contains want.
func waitFor(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q, output so far: %q", want, out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTailFollowStreamsAppendedLines(t *testing.T) {
	path := writeLog(t, "2026-10-01T10:00:00Z INFO runner: start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, out, logs.Options{Lines: 1, Follow: true, Poll: 10 * time.Millisecond})
	}()

	waitFor(t, out, "start")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("2026-10-01T10:00:05Z INFO runner: later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	waitFor(t, out, "later")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follow did not stop after cancel")
	}
	if strings.Count(out.String(), "start") != 1 {
		t.Fatalf("initial line printed more than once: %q", out.String())
	}
}

func TestLineLevel(t *testing.T) {
	tests := []struct {
		line  string
		level slog.Level
		ok    bool
	}{
		{"2026-10-01T10:00:00Z WARN runner: x", slog.LevelWarn, true},
		{`{"ts":"2026-10-01T10:00:00Z","level":"debug","msg":"x"}`, slog.LevelDebug, true},
		{"  continuation text", 0, false},
		{"{not json", 0, false},
	}
	for _, tc := range tests {
		level, ok := logs.LineLevel(tc.line)
		if ok != tc.ok || (ok && level != tc.level) {
			t.Errorf("LineLevel(%q) = %v, %v; want %v, %v", tc.line, level, ok, tc.level, tc.ok)
		}
	}
}
