package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"podclean/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "downloads")
	cfgVal.Paths.EpisodesDir = filepath.Join(base, "site", "episodes")
	cfgVal.Paths.SnippetsDir = filepath.Join(base, "snippets")
	cfgVal.Paths.FeedFile = filepath.Join(base, "site", "podcast.xml")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Feed.SourceURL = "http://127.0.0.1/feed.xml"
	cfgVal.Feed.PublicBaseURL = "https://cdn.example.test/podcast/"
	cfgVal.Detection.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithFeedURL sets the source feed URL on the test config.
func WithFeedURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.SourceURL = url
	}
}

// WithExportFormat overrides the export container of cleaned episodes.
func WithExportFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Format = format
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		for _, name := range names {
			StubBinary(b.t, filepath.Join(b.baseDir, "bin"), name, "exit 0\n")
		}
	}
}

// StubBinary writes a shell script named name into binDir and prepends binDir
// to PATH for the remainder of the test. body is the script without shebang.
func StubBinary(t testing.TB, binDir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	target := filepath.Join(binDir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	oldPath := os.Getenv("PATH")
	if !pathHasPrefix(oldPath, binDir) {
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath)
	}
	return target
}

func pathHasPrefix(pathList, dir string) bool {
	list := filepath.SplitList(pathList)
	return len(list) > 0 && list[0] == dir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
