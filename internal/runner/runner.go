package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"podclean/internal/audio"
	"podclean/internal/cleaner"
	"podclean/internal/config"
	"podclean/internal/feed"
	"podclean/internal/fileutil"
	"podclean/internal/ledger"
	"podclean/internal/library"
	"podclean/internal/logging"
	"podclean/internal/notifications"
	"podclean/internal/preflight"
	"podclean/internal/retention"
	"podclean/internal/services"
)

// ErrLocked reports that another pass holds the run lock.
var ErrLocked = errors.New("another podclean run is already in progress")

// Summary describes a finished pass.
type Summary struct {
	RunID      string        `json:"run_id"`
	Fetched    int           `json:"fetched"`
	Downloaded int           `json:"downloaded"`
	Processed  int           `json:"processed"`
	Failed     int           `json:"failed"`
	Rejected   int           `json:"rejected"`
	Pruned     int           `json:"pruned"`
	Published  int           `json:"published"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Runner wires the collaborators of a pass together.
type Runner struct {
	cfg      *config.Config
	store    *ledger.Store
	codec    audio.Codec
	engine   *cleaner.Engine
	notifier notifications.Service
	client   *http.Client
	download *http.Client
	logger   *slog.Logger
	lock     *flock.Flock
}

// New constructs a Runner. codec decodes downloads and encodes cleaned
// episodes; notifier may be nil.
func New(cfg *config.Config, store *ledger.Store, codec audio.Codec, notifier notifications.Service, logger *slog.Logger) (*Runner, error) {
	if cfg == nil || store == nil || codec == nil {
		return nil, errors.New("runner requires config, ledger, and codec")
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	logger = logging.NewComponentLogger(logger, "runner")
	engine, err := cleaner.NewEngine(codec, cleaner.OptionsFromConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Feed.RequestTimeout) * time.Second
	return &Runner{
		cfg:      cfg,
		store:    store,
		codec:    codec,
		engine:   engine,
		notifier: notifier,
		client:   &http.Client{Timeout: timeout},
		// Episode bodies can take longer than the feed timeout; only the
		// response headers are bounded.
		download: &http.Client{Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
		}},
		logger: logger,
		lock:   flock.New(cfg.LockPath()),
	}, nil
}

// NewCodec builds the audio codec the configuration asks for: native WAV
// plus ffmpeg for everything else.
func NewCodec(cfg *config.Config, logger *slog.Logger) *audio.Router {
	return audio.NewRouter(audio.FFmpegCodec{
		FFmpegBinary:  cfg.FFmpegBinary(),
		FFprobeBinary: cfg.FFprobeBinary(),
		Bitrate:       cfg.Export.Bitrate,
	}, logger)
}

// RunOnce executes a single pass.
func (r *Runner) RunOnce(ctx context.Context) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "prepare", "directories", err)
	}
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("pass started", logging.String("lock", r.cfg.LockPath()))

	if failed := preflight.Failed(preflight.RunAll(ctx, r.cfg)); len(failed) > 0 {
		for _, res := range failed {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", res.Name),
				logging.String("detail", res.Detail),
				logging.String(logging.FieldErrorHint, "run podclean doctor for details"),
				logging.String(logging.FieldImpact, "pass skipped"),
			)
		}
		err := services.Wrap(services.ErrConfiguration, "runner", "preflight", fmt.Sprintf("%d check(s) failed: %s", len(failed), failed[0].Name), nil)
		_ = r.notifier.NotifyError(ctx, err, "preflight")
		return summary, err
	}

	r.ingest(ctx, summary)

	lib, err := library.Load(r.cfg.Paths.SnippetsDir)
	if err != nil {
		return summary, err
	}

	pending, err := r.store.Pending(ctx)
	if err != nil {
		return summary, fmt.Errorf("list pending episodes: %w", err)
	}
	for _, ep := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		r.processEpisode(ctx, ep, lib.Paths, summary)
	}

	pruned, err := retention.Prune(ctx, r.store, r.cfg.Paths.EpisodesDir, r.cfg.Retention.KeepEpisodes, r.logger)
	summary.Pruned = len(pruned)
	if err != nil {
		logging.WarnWithContext(logger, "retention incomplete", "retention_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the episodes directory"),
		)
	}

	published, err := Publish(ctx, r.cfg, r.store)
	if err != nil {
		_ = r.notifier.NotifyError(ctx, err, "publish feed")
		return summary, err
	}
	summary.Published = published

	summary.Elapsed = time.Since(start)
	logger.Info("pass completed",
		logging.Int("fetched", summary.Fetched),
		logging.Int("downloaded", summary.Downloaded),
		logging.Int("processed", summary.Processed),
		logging.Int("failed", summary.Failed+summary.Rejected),
		logging.Int("pruned", summary.Pruned),
		logging.Int("published", summary.Published),
		logging.Duration("elapsed", summary.Elapsed),
	)
	if summary.Processed+summary.Failed+summary.Rejected > 0 {
		if err := r.notifier.NotifyPassCompleted(ctx, summary.Processed, summary.Failed+summary.Rejected, summary.Elapsed); err != nil {
			logger.Debug("pass notification failed", logging.Error(err))
		}
	}
	return summary, nil
}

// ingest fetches the feed and records downloaded episodes. Failures here are
// logged and the pass goes on with whatever the ledger already holds.
func (r *Runner) ingest(ctx context.Context, summary *Summary) {
	if strings.TrimSpace(r.cfg.Feed.SourceURL) == "" {
		return
	}
	ctx = services.WithStage(ctx, "fetch")
	logger := logging.WithContext(ctx, r.logger)

	channel, err := feed.Fetch(ctx, r.client, r.cfg.Feed.SourceURL, r.cfg.Feed.UserAgent)
	if err != nil {
		logging.WarnWithContext(logger, "feed fetch failed", "feed_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check feed.source_url"),
			logging.String(logging.FieldImpact, "only previously downloaded episodes are processed"),
		)
		_ = r.notifier.NotifyError(ctx, err, "feed fetch")
		return
	}
	summary.Fetched = len(channel.Items)

	downloader := &feed.Downloader{
		Client:    r.download,
		Dir:       r.cfg.Paths.DownloadsDir,
		Limit:     r.cfg.Feed.FetchLimit,
		UserAgent: r.cfg.Feed.UserAgent,
		Logger:    r.logger,
	}
	episodes, err := downloader.Download(services.WithStage(ctx, "download"), channel.Items)
	if err != nil {
		logging.WarnWithContext(logger, "some downloads failed", "download_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "failed episodes are retried next pass"),
		)
	}

	for _, ep := range episodes {
		if ep.Fresh {
			summary.Downloaded++
		}
		existing, err := r.store.Get(ctx, ep.GUID)
		if err != nil {
			logger.Warn("ledger lookup failed", logging.String(logging.FieldEpisodeID, ep.GUID), logging.Error(err))
			continue
		}
		if existing == nil && !ep.Fresh && fileutil.IsEmptyFile(ep.Path) {
			// Pruned earlier: the empty source stays so it is not fetched again.
			continue
		}
		record := &ledger.Episode{
			GUID:        ep.GUID,
			Title:       ep.Title,
			SourceURL:   ep.URL,
			SourcePath:  ep.Path,
			PublishedAt: ep.Published,
		}
		if err := r.store.Upsert(ctx, record); err != nil {
			logger.Warn("ledger upsert failed", logging.String(logging.FieldEpisodeID, ep.GUID), logging.Error(err))
		}
	}
}

func (r *Runner) processEpisode(ctx context.Context, ep *ledger.Episode, snippets []string, summary *Summary) {
	ctx = services.WithStage(services.WithEpisodeID(ctx, ep.GUID), "clean")
	logger := logging.WithContext(ctx, r.logger)

	outcome, result, err := r.cleanEpisode(ctx, ep, snippets)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		status := services.FailureStatus(err)
		if markErr := r.store.MarkFailed(ctx, ep.GUID, status, err.Error()); markErr != nil {
			logger.Error("failed to record episode failure", logging.Error(markErr))
		}
		if status == ledger.StatusRejected {
			summary.Rejected++
		} else {
			summary.Failed++
		}
		logging.ErrorWithContext(logger, "episode failed", "episode_failed",
			logging.String("title", ep.Title),
			logging.String("status", string(status)),
			logging.Bool("defect", services.IsDefect(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failureHint(status)),
		)
		_ = r.notifier.NotifyError(ctx, err, ep.Title)
		return
	}

	if err := r.store.MarkProcessed(ctx, ep.GUID, outcome, r.cfg.Retention.TruncateSources); err != nil {
		logger.Error("failed to record processed episode", logging.Error(err))
		summary.Failed++
		return
	}
	summary.Processed++
	if err := r.notifier.NotifyEpisodeCleaned(ctx, ep.Title, len(result.Plan), time.Duration(result.RemovedMs)*time.Millisecond); err != nil {
		logger.Debug("episode notification failed", logging.Error(err))
	}
}

func (r *Runner) cleanEpisode(ctx context.Context, ep *ledger.Episode, snippets []string) (ledger.Outcome, *cleaner.Result, error) {
	if strings.TrimSpace(ep.SourcePath) == "" {
		return ledger.Outcome{}, nil, services.Wrap(services.ErrNotFound, "clean", "source", "episode has no downloaded file", nil)
	}
	if fileutil.IsEmptyFile(ep.SourcePath) {
		return ledger.Outcome{}, nil, services.Wrap(services.ErrNotFound, "clean", "source", fmt.Sprintf("%s is empty", filepath.Base(ep.SourcePath)), nil)
	}

	result, err := r.engine.Process(ctx, ep.SourcePath, snippets)
	if err != nil {
		return ledger.Outcome{}, nil, err
	}

	output := OutputPath(r.cfg, ep.Title, ep.GUID)
	if err := r.codec.Encode(services.WithStage(ctx, "export"), result.Clip, output); err != nil {
		return ledger.Outcome{}, nil, err
	}
	info, err := os.Stat(output)
	if err != nil {
		return ledger.Outcome{}, nil, services.Wrap(services.ErrTransient, "export", "stat", output, err)
	}
	return ledger.Outcome{
		OutputPath:  output,
		MatchCount:  len(result.Plan),
		RemovedMs:   result.RemovedMs,
		DurationMs:  result.Clip.DurationMs(),
		OutputBytes: info.Size(),
	}, result, nil
}

// OutputPath is where the cleaned version of the episode with guid goes.
func OutputPath(cfg *config.Config, title, guid string) string {
	return filepath.Join(cfg.Paths.EpisodesDir, feed.FileStem(title, guid)+"."+cfg.Export.Format)
}

// Watch runs passes every interval until ctx is cancelled. A pass that fails
// is logged; the loop keeps going.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				return nil
			case errors.Is(err, ErrLocked):
				r.logger.Warn("skipping pass; another run holds the lock", logging.String("lock", r.cfg.LockPath()))
			default:
				logging.ErrorWithContext(r.logger, "pass failed", "pass_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the next pass retries automatically"),
				)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func failureHint(status ledger.Status) string {
	if status == ledger.StatusRejected {
		return "the episode audio cannot be processed and will not be retried; podclean history shows the error"
	}
	return fmt.Sprintf("retried on the next pass up to %d attempts", ledger.MaxAttempts)
}
