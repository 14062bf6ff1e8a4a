package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podclean/internal/services"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>The Weekly Rundown</title>
    <link>https://example.com</link>
    <description>News, mostly</description>
    <item>
      <title>Episode 12: The Return</title>
      <guid>ep-12</guid>
      <pubDate>Tue, 14 Oct 2025 08:00:00 +0000</pubDate>
      <enclosure url="%[1]s/audio/ep12.mp3?token=abc" length="1234" type="audio/mpeg"/>
    </item>
    <item>
      <title>Bonus: no audio</title>
      <guid>bonus</guid>
    </item>
    <item>
      <title>Episode 11</title>
      <pubDate>Tue, 7 Oct 2025 08:00:00 GMT</pubDate>
      <enclosure url="%[1]s/audio/ep11" type="audio/mp4"/>
    </item>
  </channel>
</rss>`

func TestParse(t *testing.T) {
	ch, err := Parse(strings.NewReader(fmt.Sprintf(sampleRSS, "https://cdn.example.com")))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ch.Title != "The Weekly Rundown" || ch.Link != "https://example.com" {
		t.Fatalf("unexpected channel metadata: %+v", ch)
	}
	if len(ch.Items) != 2 {
		t.Fatalf("expected 2 items with enclosures, got %d", len(ch.Items))
	}

	first := ch.Items[0]
	if first.ID() != "ep-12" {
		t.Fatalf("expected guid ep-12, got %q", first.ID())
	}
	if first.Enclosure.Length != 1234 || first.Enclosure.Type != "audio/mpeg" {
		t.Fatalf("unexpected enclosure: %+v", first.Enclosure)
	}
	want := time.Date(2025, 10, 14, 8, 0, 0, 0, time.UTC)
	if !first.Published.Equal(want) {
		t.Fatalf("expected pubDate %v, got %v", want, first.Published)
	}

	second := ch.Items[1]
	if second.ID() != "https://cdn.example.com/audio/ep11" {
		t.Fatalf("expected enclosure URL fallback id, got %q", second.ID())
	}
	if second.Published.IsZero() {
		t.Fatal("expected pubDate with zone abbreviation to parse")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not xml <<<"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	var gotAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent.Store(r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing.xml" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, sampleRSS, "http://"+r.Host)
	}))
	defer server.Close()

	ch, err := Fetch(context.Background(), server.Client(), server.URL+"/feed.xml", "podclean-test")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(ch.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ch.Items))
	}
	if agent, _ := gotAgent.Load().(string); agent != "podclean-test" {
		t.Fatalf("expected user agent to be sent, got %q", agent)
	}

	_, err = Fetch(context.Background(), server.Client(), server.URL+"/missing.xml", "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for 404, got %v", err)
	}
}

func TestDownloadSkipsExistingFiles(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, "broken.mp3") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("audio:" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	// A truncated placeholder from an earlier pass.
	if err := os.WriteFile(filepath.Join(dir, FileStem("Old Episode", "old")+".mp3"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	items := []Item{
		{Title: "New: Episode", GUID: "new", Enclosure: Enclosure{URL: server.URL + "/new.mp3"}},
		{Title: "Old Episode", GUID: "old", Enclosure: Enclosure{URL: server.URL + "/old.mp3"}},
		{Title: "Broken", GUID: "broken", Enclosure: Enclosure{URL: server.URL + "/broken.mp3"}},
		{Title: "Beyond limit", GUID: "late", Enclosure: Enclosure{URL: server.URL + "/late.mp3"}},
	}
	d := &Downloader{Client: server.Client(), Dir: dir, Limit: 3}
	episodes, err := d.Download(context.Background(), items)
	if err == nil || !strings.Contains(err.Error(), "Broken") {
		t.Fatalf("expected joined error naming the broken episode, got %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes on disk, got %d", len(episodes))
	}
	if !episodes[0].Fresh || episodes[0].GUID != "new" {
		t.Fatalf("expected fresh new episode first, got %+v", episodes[0])
	}
	if episodes[1].Fresh {
		t.Fatal("existing placeholder must not be downloaded again")
	}
	data, err := os.ReadFile(filepath.Join(dir, FileStem("New: Episode", "new")+".mp3"))
	if err != nil {
		t.Fatalf("expected sanitized file name on disk: %v", err)
	}
	if string(data) != "audio:/new.mp3" {
		t.Fatalf("unexpected body %q", data)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 requests (new + broken), got %d", hits.Load())
	}
	if _, err := os.Stat(filepath.Join(dir, FileStem("Broken", "broken")+".mp3.part")); !os.IsNotExist(err) {
		t.Fatal("partial file must be removed after a failed download")
	}
}

func TestDownloadKeepsCollidingTitlesApart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio:" + r.URL.Path))
	}))
	defer server.Close()

	items := []Item{
		{Title: "Q&A: Part 1", GUID: "ep-a", Enclosure: Enclosure{URL: server.URL + "/a.mp3"}},
		{Title: "Q&A/ Part 1", GUID: "ep-b", Enclosure: Enclosure{URL: server.URL + "/b.mp3"}},
	}
	d := &Downloader{Client: server.Client(), Dir: t.TempDir()}
	episodes, err := d.Download(context.Background(), items)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(episodes))
	}
	if episodes[0].Path == episodes[1].Path {
		t.Fatalf("distinct GUIDs share one file: %s", episodes[0].Path)
	}
	for i, want := range []string{"audio:/a.mp3", "audio:/b.mp3"} {
		if !episodes[i].Fresh {
			t.Errorf("episode %s should be downloaded", episodes[i].GUID)
		}
		data, err := os.ReadFile(episodes[i].Path)
		if err != nil {
			t.Fatalf("read %s: %v", episodes[i].Path, err)
		}
		if string(data) != want {
			t.Errorf("episode %s content = %q, want %q", episodes[i].GUID, data, want)
		}
	}
}

func TestFileStem(t *testing.T) {
	a := FileStem("Q&A: Part 1", "ep-a")
	if a != FileStem("Q&A: Part 1", "ep-a") {
		t.Fatal("file stem must be stable for the same GUID")
	}
	if a == FileStem("Q&A/ Part 1", "ep-b") {
		t.Fatal("different GUIDs must give different stems")
	}
	if !strings.HasPrefix(a, "Q&A- Part 1-") || len(a) != len("Q&A- Part 1-")+8 {
		t.Fatalf("unexpected stem %q", a)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		enc  Enclosure
		want string
	}{
		{Enclosure{URL: "https://x/a/ep.M4A?x=1"}, ".m4a"},
		{Enclosure{URL: "https://x/a/ep", Type: "audio/ogg"}, ".ogg"},
		{Enclosure{URL: "https://x/a/ep"}, ".mp3"},
		{Enclosure{URL: "https://x/a/ep.verylongext", Type: "audio/flac"}, ".flac"},
	}
	for _, tt := range tests {
		if got := Extension(tt.enc); got != tt.want {
			t.Errorf("Extension(%+v) = %q, want %q", tt.enc, got, tt.want)
		}
	}
}

func TestRenderOrdersNewestFirst(t *testing.T) {
	older := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	items := []PublishedItem{
		{Title: "Older", URL: "https://host/episodes/Older.mp3", Length: 10, Published: older},
		{Title: "Newer", URL: "https://host/episodes/Newer.m4a", Length: 20, Published: newer},
	}
	var buf bytes.Buffer
	meta := Meta{Title: "Clean", Link: "https://host/", Description: "d", Language: "en-us", Author: "me@example.com"}
	if err := Render(&buf, meta, items); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("expected xml header, got %q", out[:20])
	}
	for _, want := range []string{
		`<rss version="2.0">`,
		`<managingEditor>me@example.com</managingEditor>`,
		`<enclosure url="https://host/episodes/Newer.m4a" length="20" type="audio/mp4"></enclosure>`,
		`<guid>https://host/episodes/Older.mp3</guid>`,
		`<pubDate>Thu, 02 Jan 2025 03:04:05 +0000</pubDate>`,
		"\n    <item>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered feed missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, "Newer") > strings.Index(out, "Older") {
		t.Fatal("expected newest item first")
	}

	// Round trip through the reader.
	ch, err := Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse rendered feed: %v", err)
	}
	if len(ch.Items) != 2 || ch.Items[0].Title != "Newer" || !ch.Items[1].Published.Equal(older) {
		t.Fatalf("unexpected reparsed items: %+v", ch.Items)
	}
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "podcast.xml")
	if err := WriteFile(path, Meta{Title: "first"}, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := WriteFile(path, Meta{Title: "second"}, nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<title>second</title>") {
		t.Fatalf("expected replaced feed, got %s", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestEpisodeURL(t *testing.T) {
	got := EpisodeURL("https://host/podcast/", "episodes", "Episode 12- The Return.mp3")
	want := "https://host/podcast/episodes/Episode%2012-%20The%20Return.mp3"
	if got != want {
		t.Fatalf("EpisodeURL = %q, want %q", got, want)
	}
}
