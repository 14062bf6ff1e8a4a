package config

import (
	"fmt"
	"os"
	"strings"

	"podclean/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeed()
	c.normalizeDetection()
	c.normalizeExport()
	c.normalizeRetention()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.downloads_dir", &c.Paths.DownloadsDir, defaultDownloadsDir},
		{"paths.episodes_dir", &c.Paths.EpisodesDir, defaultEpisodesDir},
		{"paths.snippets_dir", &c.Paths.SnippetsDir, defaultSnippetsDir},
		{"paths.feed_file", &c.Paths.FeedFile, defaultFeedFile},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeFeed() {
	c.Feed.SourceURL = strings.TrimSpace(c.Feed.SourceURL)
	if c.Feed.SourceURL == "" {
		if value, ok := os.LookupEnv("PODCLEAN_FEED_URL"); ok {
			c.Feed.SourceURL = strings.TrimSpace(value)
		}
	}
	c.Feed.PublicBaseURL = strings.TrimSpace(c.Feed.PublicBaseURL)
	if c.Feed.PublicBaseURL != "" && !strings.HasSuffix(c.Feed.PublicBaseURL, "/") {
		c.Feed.PublicBaseURL += "/"
	}
	c.Feed.Title = strings.TrimSpace(c.Feed.Title)
	if c.Feed.Title == "" {
		c.Feed.Title = defaultFeedTitle
	}
	c.Feed.Description = strings.TrimSpace(c.Feed.Description)
	if c.Feed.Description == "" {
		c.Feed.Description = defaultFeedDescription
	}
	c.Feed.Language = strings.TrimSpace(c.Feed.Language)
	if c.Feed.Language == "" {
		c.Feed.Language = defaultFeedLanguage
	}
	if normalized, err := language.Normalize(c.Feed.Language); err == nil {
		c.Feed.Language = normalized
	}
	c.Feed.Author = strings.TrimSpace(c.Feed.Author)
	if c.Feed.FetchLimit <= 0 {
		c.Feed.FetchLimit = defaultFeedFetchLimit
	}
	if c.Feed.RequestTimeout <= 0 {
		c.Feed.RequestTimeout = defaultFeedRequestTimeout
	}
	c.Feed.UserAgent = strings.TrimSpace(c.Feed.UserAgent)
	if c.Feed.UserAgent == "" {
		c.Feed.UserAgent = defaultFeedUserAgent
	}
}

func (c *Config) normalizeDetection() {
	if c.Detection.Workers <= 0 {
		c.Detection.Workers = defaultWorkers()
	}
	c.Detection.SnippetErrors = strings.ToLower(strings.TrimSpace(c.Detection.SnippetErrors))
	if c.Detection.SnippetErrors == "" {
		c.Detection.SnippetErrors = defaultSnippetErrors
	}
}

func (c *Config) normalizeExport() {
	c.Export.Format = strings.ToLower(strings.TrimSpace(c.Export.Format))
	if c.Export.Format == "" {
		c.Export.Format = defaultExportFormat
	}
	c.Export.Bitrate = strings.TrimSpace(c.Export.Bitrate)
	if c.Export.Bitrate == "" {
		c.Export.Bitrate = defaultExportBitrate
	}
	c.Export.FFmpegBinary = strings.TrimSpace(c.Export.FFmpegBinary)
	c.Export.FFprobeBinary = strings.TrimSpace(c.Export.FFprobeBinary)
}

func (c *Config) normalizeRetention() {
	if c.Retention.KeepEpisodes < 0 {
		c.Retention.KeepEpisodes = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("PODCLEAN_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
