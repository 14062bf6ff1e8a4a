package cleaner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"podclean/internal/audio"
	"podclean/internal/excise"
	"podclean/internal/interval"
	"podclean/internal/logging"
	"podclean/internal/scan"
	"podclean/internal/services"
	"podclean/internal/spectral"
)

// SnippetReport describes what one snippet contributed.
type SnippetReport struct {
	Path        string           `json:"path"`
	Matches     []interval.Match `json:"matches"`
	PeakScore   float64          `json:"peak_score"`
	PeakSeconds float64          `json:"peak_seconds"`
	Degenerate  bool             `json:"degenerate,omitempty"`
	Skipped     bool             `json:"skipped,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Analysis is the detection half of the pipeline.
type Analysis struct {
	Episode         string           `json:"episode"`
	Source          *audio.Clip      `json:"-"`
	Plan            []interval.Match `json:"plan"`
	Snippets        []SnippetReport  `json:"snippets"`
	SkippedSnippets []string         `json:"skipped_snippets,omitempty"`
	Degenerate      bool             `json:"degenerate,omitempty"`
}

// Result is a fully processed episode.
type Result struct {
	Analysis
	Clip       *audio.Clip   `json:"-"`
	OriginalMs int64         `json:"original_ms"`
	RemovedMs  int64         `json:"removed_ms"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Engine runs detection and excision. It holds no per-episode state and may
// be shared between goroutines.
type Engine struct {
	decoder audio.Decoder
	opts    Options
	logger  *slog.Logger
}

// NewEngine builds an Engine around decoder.
func NewEngine(decoder audio.Decoder, opts Options, logger *slog.Logger) (*Engine, error) {
	if decoder == nil {
		return nil, errors.New("cleaner: decoder is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		decoder: decoder,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "cleaner"),
	}, nil
}

// Options returns the engine's detection options.
func (e *Engine) Options() Options { return e.opts }

// Process removes every snippet occurrence from the episode at episodePath.
// With no snippets the cleaned clip equals the source. A plan that would leave
// no audio at all is reported as services.ErrInput.
func (e *Engine) Process(ctx context.Context, episodePath string, snippetPaths []string) (*Result, error) {
	start := time.Now()
	analysis, err := e.Analyze(ctx, episodePath, snippetPaths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned, err := excise.Excise(analysis.Source, analysis.Plan)
	if err != nil {
		return nil, err
	}
	// Nothing left to publish; the matches are almost certainly wrong.
	if cleaned.Frames() == 0 && analysis.Source.Frames() > 0 {
		return nil, services.Wrap(services.ErrInput, "excise", "plan",
			fmt.Sprintf("%s: %d matched segment(s) cover the whole episode", filepath.Base(episodePath), len(analysis.Plan)), nil)
	}
	result := &Result{
		Analysis:   *analysis,
		Clip:       cleaned,
		OriginalMs: analysis.Source.DurationMs(),
	}
	result.RemovedMs = result.OriginalMs - cleaned.DurationMs()
	result.Elapsed = time.Since(start)

	logging.WithContext(services.WithStage(ctx, "excise"), e.logger).Info("episode cleaned",
		logging.String("episode", filepath.Base(episodePath)),
		logging.Int("segments_removed", len(result.Plan)),
		logging.Int64("removed_ms", result.RemovedMs),
		logging.Int64("original_ms", result.OriginalMs),
		logging.Int("snippets_skipped", len(result.SkippedSnippets)),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// Analyze decodes the episode and builds the deletion plan without editing
// any audio.
func (e *Engine) Analyze(ctx context.Context, episodePath string, snippetPaths []string) (*Analysis, error) {
	ctx = services.WithStage(ctx, "detect")
	logger := logging.WithContext(ctx, e.logger)

	source, err := e.decoder.Decode(ctx, episodePath)
	if err != nil {
		return nil, fmt.Errorf("load episode %s: %w", filepath.Base(episodePath), err)
	}
	episodeSpec, err := spectral.Transform(source.Mono(), e.opts.Params)
	if err != nil {
		return nil, fmt.Errorf("transform episode %s: %w", filepath.Base(episodePath), err)
	}
	prepared, err := scan.Prepare(episodeSpec)
	if err != nil {
		return nil, fmt.Errorf("prepare episode %s: %w", filepath.Base(episodePath), err)
	}

	analysis := &Analysis{Episode: episodePath, Source: source}
	logger.Info("episode loaded",
		logging.String("episode", filepath.Base(episodePath)),
		logging.Int("sample_rate", source.SampleRate),
		logging.Int("channels", source.Channels),
		logging.Int64("duration_ms", source.DurationMs()),
		logging.Int("frames", episodeSpec.Frames),
		logging.Int("snippets", len(snippetPaths)),
	)
	if prepared.Degenerate() {
		analysis.Degenerate = true
		logging.WarnWithContext(logger, "episode spectrogram has no variance; nothing can match",
			"degenerate_spectrogram",
			logging.String("episode", filepath.Base(episodePath)),
			logging.String(logging.FieldErrorHint, "check that the episode is not silent"),
			logging.String(logging.FieldImpact, "episode published without edits"),
		)
	}
	if len(snippetPaths) == 0 {
		return analysis, nil
	}

	reports, err := e.scanSnippets(ctx, prepared, snippetPaths)
	if err != nil {
		return nil, err
	}

	var all []interval.Match
	for _, report := range reports {
		if report.Skipped {
			analysis.SkippedSnippets = append(analysis.SkippedSnippets, report.Path)
			continue
		}
		all = append(all, report.Matches...)
	}
	analysis.Snippets = reports
	analysis.Plan = interval.Merge(all)
	logger.Info("deletion plan ready",
		logging.Int("segments", len(analysis.Plan)),
		logging.Float64("seconds", interval.Total(analysis.Plan)),
	)
	return analysis, nil
}

// scanSnippets fans snippets out over the worker pool. Reports come back in
// input order; the first fatal error cancels the remaining work.
func (e *Engine) scanSnippets(ctx context.Context, prepared *scan.Prepared, paths []string) ([]SnippetReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports := make([]SnippetReport, len(paths))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < e.opts.workers(len(paths)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				report, err := e.scanSnippet(ctx, prepared, paths[idx])
				if err != nil {
					fail(err)
					continue
				}
				reports[idx] = report
			}
		}()
	}

feed:
	for idx := range paths {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (e *Engine) scanSnippet(ctx context.Context, prepared *scan.Prepared, path string) (SnippetReport, error) {
	report := SnippetReport{Path: path}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	logger := logging.WithContext(ctx, e.logger).With(logging.String("snippet", filepath.Base(path)))

	spec, err := e.loadSnippet(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !e.opts.skipBrokenSnippets() {
			return report, services.Wrap(services.ErrInput, "detect", "load snippet", filepath.Base(path), err)
		}
		report.Skipped = true
		report.Error = err.Error()
		logging.WarnWithContext(logger, "snippet skipped", "snippet_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-encode or remove the snippet file"),
			logging.String(logging.FieldImpact, "occurrences of this snippet stay in the episode"),
		)
		return report, nil
	}

	detail, err := prepared.ScanDetailed(spec, e.opts.Threshold)
	if err != nil {
		return report, err
	}
	report.Matches = detail.Matches
	report.PeakScore = detail.PeakScore
	report.PeakSeconds = detail.PeakSeconds
	report.Degenerate = detail.Degenerate
	if detail.Degenerate && !prepared.Degenerate() {
		logging.WarnWithContext(logger, "snippet spectrogram has no variance; skipping comparison",
			"degenerate_spectrogram",
			logging.String(logging.FieldErrorHint, "replace the snippet with a non-silent recording"),
			logging.String(logging.FieldImpact, "snippet cannot match anything"),
		)
	}
	logger.Debug("snippet scanned",
		logging.Int("matches", len(detail.Matches)),
		logging.Float64("peak_score", detail.PeakScore),
		logging.Float64("peak_seconds", detail.PeakSeconds),
		logging.Int("offsets", detail.Offsets),
	)
	return report, nil
}

func (e *Engine) loadSnippet(ctx context.Context, path string) (*spectral.Spectrogram, error) {
	clip, err := e.decoder.Decode(ctx, path)
	if err != nil {
		return nil, err
	}
	return spectral.Transform(clip.Mono(), e.opts.Params)
}
