package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DownloadsDir string `toml:"downloads_dir"`
	EpisodesDir  string `toml:"episodes_dir"`
	SnippetsDir  string `toml:"snippets_dir"`
	FeedFile     string `toml:"feed_file"`
	StateDir     string `toml:"state_dir"`
}

// Feed contains the source feed location and the metadata of the published feed.
type Feed struct {
	SourceURL      string `toml:"source_url"`
	PublicBaseURL  string `toml:"public_base_url"`
	Title          string `toml:"title"`
	Description    string `toml:"description"`
	Language       string `toml:"language"`
	Author         string `toml:"author"`
	FetchLimit     int    `toml:"fetch_limit"`
	RequestTimeout int    `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Detection contains the spectral transform and matching parameters.
type Detection struct {
	// SampleRate is the canonical analysis rate in Hz. Default: 16000
	SampleRate int `toml:"sample_rate"`
	// NMels is the number of mel bands. Default: 64
	NMels int `toml:"n_mels"`
	// HopLength is the number of samples between analysis frames. Default: 512
	HopLength int `toml:"hop_length"`
	// FFTSize is the analysis window length in samples. Default: 2048
	FFTSize int `toml:"fft_size"`
	// SimilarityThreshold is the per-element correlation score a snippet
	// alignment must exceed to count as a match. Higher is stricter. Default: 0.75
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	// Workers bounds concurrent snippet scans. Default: NumCPU capped at 8.
	Workers int `toml:"workers"`
	// SnippetErrors selects what happens when a snippet cannot be loaded:
	// "fail" aborts the episode, "skip" logs and continues. Default: fail
	SnippetErrors string `toml:"snippet_errors"`
}

// Export contains configuration for writing cleaned episodes.
type Export struct {
	Format        string `toml:"format"`
	Bitrate       string `toml:"bitrate"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Retention contains configuration for pruning old episodes.
type Retention struct {
	KeepEpisodes    int  `toml:"keep_episodes"`
	TruncateSources bool `toml:"truncate_sources"`
}

// Workflow contains configuration for watch-mode timing.
type Workflow struct {
	PollInterval int `toml:"poll_interval"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for podclean.
//
// Configuration sections by subsystem:
//   - Paths: download, output, snippet, feed, and state locations
//   - Feed: source feed URL and published feed metadata
//   - Detection: spectral transform and similarity matching parameters
//   - Export: encoding of cleaned episodes
//   - Retention: how many cleaned episodes to keep
//   - Workflow: watch-mode poll interval
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Feed          Feed          `toml:"feed"`
	Detection     Detection     `toml:"detection"`
	Export        Export        `toml:"export"`
	Retention     Retention     `toml:"retention"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/podclean/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podclean.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the runner writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DownloadsDir, c.Paths.EpisodesDir, c.Paths.StateDir}
	if feedDir := filepath.Dir(c.Paths.FeedFile); strings.TrimSpace(c.Paths.FeedFile) != "" {
		dirs = append(dirs, feedDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for decoding and export.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Export.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Export.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// LedgerPath returns the SQLite database path for the processed-episode ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LockPath returns the path of the single-instance run lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "podclean.lock")
}

// LogPath returns the path of the persistent log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "podclean.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
