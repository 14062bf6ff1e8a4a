package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"podclean/internal/fileutil"
	"podclean/internal/logging"
	"podclean/internal/services"
	"podclean/internal/textutil"
)

// Episode is a feed item with its audio on disk.
type Episode struct {
	GUID      string
	Title     string
	URL       string
	Path      string
	Published time.Time
	// Fresh is set when the file was downloaded by this call.
	Fresh bool
}

// Downloader fetches enclosures into a directory.
type Downloader struct {
	Client    *http.Client
	Dir       string
	Limit     int
	UserAgent string
	Logger    *slog.Logger
}

// Download considers the first Limit items (all when Limit <= 0). Each item's
// file is named by FileStem; a file that already exists is never fetched
// again, which includes zero-byte placeholders left after processing. The
// result lists every considered item whose file is present, fresh or not.
// Per-item failures are joined into the returned error and do not stop the
// remaining downloads.
func (d *Downloader) Download(ctx context.Context, items []Item) ([]Episode, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "mkdir", d.Dir, err)
	}
	logger := logging.NewComponentLogger(d.Logger, "download")
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	if d.Limit > 0 && len(items) > d.Limit {
		items = items[:d.Limit]
	}

	var (
		episodes []Episode
		errs     []error
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return episodes, err
		}
		title := item.Title
		if title == "" {
			title = textutil.TitleFromPath(enclosurePath(item.Enclosure.URL))
		}
		target := filepath.Join(d.Dir, FileStem(title, item.ID())+Extension(item.Enclosure))
		ep := Episode{
			GUID:      item.ID(),
			Title:     title,
			URL:       item.Enclosure.URL,
			Path:      target,
			Published: item.Published,
		}

		if _, err := os.Stat(target); err == nil {
			logger.Debug("episode already downloaded", logging.String("path", target))
			episodes = append(episodes, ep)
			continue
		}

		logger.Info("downloading episode",
			logging.String("title", title),
			logging.String("url", item.Enclosure.URL),
		)
		start := time.Now()
		size, err := fetchTo(ctx, client, d.UserAgent, item.Enclosure.URL, target)
		if err != nil {
			logging.WarnWithContext(logger, "episode download failed", "download_failed",
				logging.String("title", title),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the episode is retried on the next pass"),
			)
			errs = append(errs, fmt.Errorf("%s: %w", title, err))
			continue
		}
		logger.Info("episode downloaded",
			logging.String("path", target),
			logging.Int64("bytes", size),
			logging.Duration("elapsed", time.Since(start)),
		)
		ep.Fresh = true
		episodes = append(episodes, ep)
	}
	return episodes, errors.Join(errs...)
}

func fetchTo(ctx context.Context, client *http.Client, userAgent, rawURL, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "download", "build request", rawURL, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "download", "request", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, services.Wrap(services.ErrTransient, "download", "request", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	size, err := fileutil.WriteAtomic(target, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, resp.Body)
		return err
	})
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "download", "write", target, err)
	}
	return size, nil
}

// FileStem names the files of the episode identified by id: the sanitised
// title followed by a short key derived from id. Titles that sanitise to the
// same name still map to distinct files.
func FileStem(title, id string) string {
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()[:8]
	return textutil.SafeFileName(title) + "-" + key
}

var mimeExtensions = map[string]string{
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".m4a",
	"audio/x-m4a": ".m4a",
	"audio/aac":   ".aac",
	"audio/ogg":   ".ogg",
	"audio/opus":  ".opus",
	"audio/flac":  ".flac",
	"audio/wav":   ".wav",
	"audio/x-wav": ".wav",
}

// Extension picks a file extension for an enclosure from its URL path, then
// its MIME type, defaulting to .mp3.
func Extension(enc Enclosure) string {
	if ext := strings.ToLower(path.Ext(enclosurePath(enc.URL))); ext != "" && len(ext) <= 5 {
		return ext
	}
	if ext, ok := mimeExtensions[strings.ToLower(strings.TrimSpace(enc.Type))]; ok {
		return ext
	}
	return ".mp3"
}

func enclosurePath(raw string) string {
	if u, err := url.Parse(raw); err == nil {
		return u.Path
	}
	return raw
}
