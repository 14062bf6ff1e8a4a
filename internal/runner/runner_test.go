package runner_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"podclean/internal/audio"
	"podclean/internal/config"
	"podclean/internal/feed"
	"podclean/internal/ledger"
	"podclean/internal/logging"
	"podclean/internal/runner"
	"podclean/internal/testsupport"
)

const rate = 16000

const feedTemplate = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Source Show</title>
  <item>
    <title>Episode Two</title>
    <guid>ep-2</guid>
    <pubDate>Tue, 14 Oct 2025 08:00:00 +0000</pubDate>
    <enclosure url="%[1]s/media/ep2.wav" type="audio/wav"/>
  </item>
  <item>
    <title>Episode One</title>
    <guid>ep-1</guid>
    <pubDate>Tue, 07 Oct 2025 08:00:00 +0000</pubDate>
    <enclosure url="%[1]s/media/ep1.wav" type="audio/wav"/>
  </item>
  <item>
    <title>Broken</title>
    <guid>broken</guid>
    <pubDate>Tue, 30 Sep 2025 08:00:00 +0000</pubDate>
    <enclosure url="%[1]s/media/broken.wav" type="audio/wav"/>
  </item>
</channel></rss>`

type fixture struct {
	cfg       *config.Config
	store     *ledger.Store
	feedHits  atomic.Int32
	mediaHits atomic.Int32
	onFeedHit func(n int32)
}

func upChirp() []float64   { return testsupport.Chirp(300, 4000, 2, rate) }
func downChirp() []float64 { return testsupport.Chirp(4000, 300, 2, rate) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	remote := t.TempDir()
	testsupport.WriteWAV(t, filepath.Join(remote, "ep2.wav"),
		testsupport.Concat(downChirp(), upChirp(), downChirp(), upChirp(), downChirp()), rate, 1)
	testsupport.WriteWAV(t, filepath.Join(remote, "ep1.wav"), testsupport.Sine(440, 4, rate), rate, 1)
	if err := os.WriteFile(filepath.Join(remote, "broken.wav"), []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fixture{}
	media := http.StripPrefix("/media/", http.FileServer(http.Dir(remote)))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.xml" {
			n := f.feedHits.Add(1)
			fmt.Fprintf(w, feedTemplate, "http://"+r.Host)
			if f.onFeedHit != nil {
				f.onFeedHit(n)
			}
			return
		}
		f.mediaHits.Add(1)
		media.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	f.cfg = testsupport.NewConfig(t,
		testsupport.WithFeedURL(server.URL+"/feed.xml"),
		testsupport.WithExportFormat("wav"),
	)
	f.cfg.Feed.FetchLimit = 3
	testsupport.WriteWAV(t, filepath.Join(f.cfg.Paths.SnippetsDir, "sting.wav"), upChirp(), rate, 1)
	f.store = testsupport.MustOpenLedger(t, f.cfg)
	return f
}

func (f *fixture) runner(t *testing.T) *runner.Runner {
	t.Helper()
	r, err := runner.New(f.cfg, f.store, audio.NewRouter(nil, nil), nil, logging.NewNop())
	if err != nil {
		t.Fatalf("runner.New: %v", err)
	}
	return r
}

func TestRunOnceCleansAndPublishes(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)
	ctx := context.Background()

	summary, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
	if summary.Fetched != 3 || summary.Downloaded != 3 {
		t.Fatalf("unexpected fetch counts: %+v", summary)
	}
	if summary.Processed != 2 || summary.Rejected != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected processing counts: %+v", summary)
	}
	if summary.Published != 2 {
		t.Fatalf("expected 2 published items, got %d", summary.Published)
	}

	ep2, err := f.store.Get(ctx, "ep-2")
	if err != nil || ep2 == nil {
		t.Fatalf("Get ep-2: %v %v", ep2, err)
	}
	if ep2.Status != ledger.StatusProcessed || ep2.MatchCount != 2 {
		t.Fatalf("unexpected ep-2 row: %+v", ep2)
	}
	if math.Abs(float64(ep2.RemovedMs)/1000-4) > 0.3 {
		t.Fatalf("expected ~4 s removed, got %d ms", ep2.RemovedMs)
	}
	wantOut := runner.OutputPath(f.cfg, "Episode Two", "ep-2")
	if ep2.OutputPath != wantOut {
		t.Fatalf("output path = %q, want %q", ep2.OutputPath, wantOut)
	}
	cleaned, err := audio.WAVCodec{}.Decode(ctx, wantOut)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := cleaned.DurationSeconds(); math.Abs(got-6) > 0.3 {
		t.Fatalf("cleaned duration %.3f s, want ~6 s", got)
	}
	if info, err := os.Stat(ep2.SourcePath); err != nil || info.Size() != 0 {
		t.Fatalf("expected source truncated to a placeholder, got %v %v", info, err)
	}

	broken, err := f.store.Get(ctx, "broken")
	if err != nil || broken == nil {
		t.Fatalf("Get broken: %v %v", broken, err)
	}
	if broken.Status != ledger.StatusRejected || broken.Error == "" {
		t.Fatalf("expected rejected row with error, got %+v", broken)
	}

	data, err := os.ReadFile(f.cfg.Paths.FeedFile)
	if err != nil {
		t.Fatalf("read feed: %v", err)
	}
	feedText := string(data)
	for _, want := range []string{
		feed.EpisodeURL(f.cfg.Feed.PublicBaseURL, "episodes", filepath.Base(wantOut)),
		feed.EpisodeURL(f.cfg.Feed.PublicBaseURL, "episodes", filepath.Base(runner.OutputPath(f.cfg, "Episode One", "ep-1"))),
		"<title>Episode Two</title>",
	} {
		if !strings.Contains(feedText, want) {
			t.Errorf("feed missing %q:\n%s", want, feedText)
		}
	}
	if strings.Contains(feedText, "Broken") {
		t.Error("rejected episode must not be published")
	}

	mediaBefore := f.mediaHits.Load()
	second, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if second.Downloaded != 0 || second.Processed != 0 || second.Rejected != 0 {
		t.Fatalf("expected an idle second pass, got %+v", second)
	}
	if f.mediaHits.Load() != mediaBefore {
		t.Fatal("second pass must not download again")
	}
	if second.RunID == summary.RunID {
		t.Fatal("expected a fresh run id per pass")
	}
}

func TestRunOnceSkipsPrunedPlaceholders(t *testing.T) {
	f := newFixture(t)
	f.cfg.Retention.KeepEpisodes = 1
	r := f.runner(t)
	ctx := context.Background()

	summary, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Pruned != 1 || summary.Published != 1 {
		t.Fatalf("expected one pruned and one published, got %+v", summary)
	}
	if got, _ := f.store.Get(ctx, "ep-1"); got != nil {
		t.Fatalf("expected ep-1 row pruned, got %+v", got)
	}

	second, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if second.Processed != 0 {
		t.Fatalf("pruned episode must not come back, got %+v", second)
	}
	if got, _ := f.store.Get(ctx, "ep-1"); got != nil {
		t.Fatalf("pruned placeholder re-entered the ledger: %+v", got)
	}
}

func TestRunOnceFailsWhenLocked(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t)
	if err := f.cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	held := flock.New(f.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	if _, err := r.RunOnce(context.Background()); !errors.Is(err, runner.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunOnceStopsOnFailedPreflight(t *testing.T) {
	f := newFixture(t)
	if err := os.RemoveAll(f.cfg.Paths.SnippetsDir); err != nil {
		t.Fatal(err)
	}
	r := f.runner(t)
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("expected preflight failure")
	}
	if f.mediaHits.Load() != 0 {
		t.Fatal("nothing should be downloaded when preflight fails")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Each pass hits the feed twice: preflight and fetch.
	f.onFeedHit = func(n int32) {
		if n >= 4 {
			cancel()
		}
	}
	r := f.runner(t)

	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, 10*time.Millisecond) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
	if f.feedHits.Load() < 4 {
		t.Fatalf("expected at least two passes, got %d feed hits", f.feedHits.Load())
	}
}

func TestPublishWithoutEpisodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	n, err := runner.Publish(context.Background(), cfg, store)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty feed, got %d items", n)
	}
	data, err := os.ReadFile(cfg.Paths.FeedFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<title>"+cfg.Feed.Title+"</title>") {
		t.Fatalf("unexpected feed:\n%s", data)
	}
}

func TestOutputPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	got := runner.OutputPath(cfg, "Ep 3: Café?", "ep-3")
	want := filepath.Join(cfg.Paths.EpisodesDir, feed.FileStem("Ep 3: Café?", "ep-3")+".mp3")
	if got != want {
		t.Fatalf("OutputPath = %q, want %q", got, want)
	}
	if !strings.HasPrefix(filepath.Base(got), "Ep 3- Cafe-") {
		t.Fatalf("expected sanitised title prefix, got %q", got)
	}
	if runner.OutputPath(cfg, "Ep 3: Café?", "ep-4") == got {
		t.Fatal("episodes with the same title must not share an output file")
	}
}
