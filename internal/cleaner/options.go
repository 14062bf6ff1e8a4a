package cleaner

import (
	"fmt"
	"strings"

	"podclean/internal/config"
	"podclean/internal/services"
	"podclean/internal/spectral"
)

// Options tunes detection.
type Options struct {
	Params        spectral.Params
	Threshold     float64
	Workers       int
	SnippetErrors string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	defaults := config.Default()
	return OptionsFromConfig(&defaults)
}

// OptionsFromConfig extracts detection options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	d := cfg.Detection
	return Options{
		Params: spectral.Params{
			SampleRate: d.SampleRate,
			FFTSize:    d.FFTSize,
			HopLength:  d.HopLength,
			NMels:      d.NMels,
			TopDB:      spectral.DefaultTopDB,
		},
		Threshold:     d.SimilarityThreshold,
		Workers:       d.Workers,
		SnippetErrors: d.SnippetErrors,
	}
}

func (o Options) validate() error {
	if err := o.Params.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(o.SnippetErrors)) {
	case "", config.SnippetErrorsFail, config.SnippetErrorsSkip:
	default:
		return services.Wrap(services.ErrConfiguration, "cleaner", "options",
			fmt.Sprintf("snippet_errors must be %q or %q, got %q", config.SnippetErrorsFail, config.SnippetErrorsSkip, o.SnippetErrors), nil)
	}
	return nil
}

func (o Options) skipBrokenSnippets() bool {
	return strings.EqualFold(strings.TrimSpace(o.SnippetErrors), config.SnippetErrorsSkip)
}

func (o Options) workers(jobs int) int {
	n := o.Workers
	if n < 1 {
		n = 1
	}
	if n > jobs {
		n = jobs
	}
	return n
}
