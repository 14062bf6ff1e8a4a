package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"podclean/internal/fileutil"
)

// Meta describes the published channel.
type Meta struct {
	Title       string
	Link        string
	Description string
	Language    string
	Author      string
}

// PublishedItem is one cleaned episode in the output feed.
type PublishedItem struct {
	Title     string
	URL       string
	Length    int64
	Type      string
	GUID      string
	Published time.Time
}

type outRSS struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel outChannel `xml:"channel"`
}

type outChannel struct {
	Title          string    `xml:"title"`
	Link           string    `xml:"link"`
	Description    string    `xml:"description"`
	Language       string    `xml:"language,omitempty"`
	ManagingEditor string    `xml:"managingEditor,omitempty"`
	Items          []outItem `xml:"item"`
}

type outItem struct {
	Title     string       `xml:"title"`
	Enclosure outEnclosure `xml:"enclosure"`
	GUID      string       `xml:"guid"`
	PubDate   string       `xml:"pubDate,omitempty"`
}

type outEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Render writes an indented RSS 2.0 document with items newest first.
func Render(w io.Writer, meta Meta, items []PublishedItem) error {
	sorted := make([]PublishedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	doc := outRSS{
		Version: "2.0",
		Channel: outChannel{
			Title:          meta.Title,
			Link:           meta.Link,
			Description:    meta.Description,
			Language:       meta.Language,
			ManagingEditor: meta.Author,
		},
	}
	for _, item := range sorted {
		guid := item.GUID
		if guid == "" {
			guid = item.URL
		}
		mimeType := item.Type
		if mimeType == "" {
			mimeType = ContentType(item.URL)
		}
		out := outItem{
			Title:     item.Title,
			Enclosure: outEnclosure{URL: item.URL, Length: item.Length, Type: mimeType},
			GUID:      guid,
		}
		if !item.Published.IsZero() {
			out.PubDate = item.Published.Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, out)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode rss: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// WriteFile renders the feed to path through a part file so readers never
// observe a partial document.
func WriteFile(path string, meta Meta, items []PublishedItem) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create feed directory: %w", err)
	}
	if _, err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Render(w, meta, items)
	}); err != nil {
		return fmt.Errorf("write feed: %w", err)
	}
	return nil
}

// ContentType returns the enclosure MIME type for a file name or URL.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(enclosurePath(name))) {
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	default:
		return "audio/mpeg"
	}
}

// EpisodeURL joins the public base URL and a file name, escaping the name.
func EpisodeURL(baseURL, relDir, fileName string) string {
	base := strings.TrimRight(baseURL, "/") + "/"
	if relDir = strings.Trim(filepath.ToSlash(relDir), "/"); relDir != "" && relDir != "." {
		base += relDir + "/"
	}
	return base + url.PathEscape(fileName)
}
