package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"podclean/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if _, err := language.Normalize(c.Feed.Language); err != nil {
		return fmt.Errorf("feed.language: %w", err)
	}
	return nil
}

// ValidateFeed ensures the settings required by a feed pass are present. The
// clean and scan commands work on local files and skip this check.
func (c *Config) ValidateFeed() error {
	if c.Feed.SourceURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/podclean/config.toml"
		}
		return fmt.Errorf("feed.source_url is required. Set PODCLEAN_FEED_URL env var or edit %s (create with 'podclean config init')", defaultPath)
	}
	if err := validateHTTPURL("feed.source_url", c.Feed.SourceURL); err != nil {
		return err
	}
	if c.Feed.PublicBaseURL == "" {
		return errors.New("feed.public_base_url must be set to publish enclosure links")
	}
	return validateHTTPURL("feed.public_base_url", c.Feed.PublicBaseURL)
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if err := ensurePositiveMap(map[string]int{
		"detection.sample_rate": d.SampleRate,
		"detection.n_mels":      d.NMels,
		"detection.hop_length":  d.HopLength,
		"detection.fft_size":    d.FFTSize,
		"detection.workers":     d.Workers,
	}); err != nil {
		return err
	}
	if d.FFTSize%2 != 0 {
		return errors.New("detection.fft_size must be even")
	}
	if d.NMels > d.FFTSize/2+1 {
		return errors.New("detection.n_mels must not exceed fft_size/2+1 frequency bins")
	}
	if d.SimilarityThreshold <= 0 || d.SimilarityThreshold > 1 {
		return errors.New("detection.similarity_threshold must be in (0, 1]")
	}
	switch d.SnippetErrors {
	case SnippetErrorsFail, SnippetErrorsSkip:
	default:
		return fmt.Errorf("detection.snippet_errors must be %q or %q, got %q", SnippetErrorsFail, SnippetErrorsSkip, d.SnippetErrors)
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Format {
	case "mp3", "wav":
	default:
		return fmt.Errorf("export.format must be mp3 or wav, got %q", c.Export.Format)
	}
	if c.Export.Format == "mp3" && strings.TrimSpace(c.Export.Bitrate) == "" {
		return errors.New("export.bitrate must be set for mp3 export")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"feed.fetch_limit":              c.Feed.FetchLimit,
		"feed.request_timeout":          c.Feed.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", key, value)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
