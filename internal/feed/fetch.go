package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"podclean/internal/services"
)

// Channel is a parsed source feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	Items       []Item
}

// Item is one feed entry with audio.
type Item struct {
	Title     string
	GUID      string
	Link      string
	Published time.Time
	Enclosure Enclosure
}

// Enclosure is the media attachment of an item.
type Enclosure struct {
	URL    string
	Length int64
	Type   string
}

// ID returns the stable identifier of the item: its guid, or the enclosure
// URL when the feed omits guids.
func (i Item) ID() string {
	if guid := strings.TrimSpace(i.GUID); guid != "" {
		return guid
	}
	return strings.TrimSpace(i.Enclosure.URL)
}

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title      string         `xml:"title"`
	GUID       string         `xml:"guid"`
	Link       string         `xml:"link"`
	PubDate    string         `xml:"pubDate"`
	Enclosures []rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length string `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// Fetch downloads and parses the feed at url.
func Fetch(ctx context.Context, client *http.Client, url, userAgent string) (*Channel, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "fetch", "build request", url, err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml;q=0.9, */*;q=0.5")

	resp, err := client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "fetch", "request", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		marker := services.ErrTransient
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "fetch", "request", fmt.Sprintf("%s: http %d", url, resp.StatusCode), nil)
	}
	return Parse(resp.Body)
}

// Parse decodes an RSS 2.0 document.
func Parse(r io.Reader) (*Channel, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }

	var doc rssDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrValidation, "fetch", "parse", "malformed rss", err)
	}

	ch := &Channel{
		Title:       strings.TrimSpace(doc.Channel.Title),
		Link:        strings.TrimSpace(doc.Channel.Link),
		Description: strings.TrimSpace(doc.Channel.Description),
	}
	for _, raw := range doc.Channel.Items {
		if len(raw.Enclosures) == 0 || strings.TrimSpace(raw.Enclosures[0].URL) == "" {
			continue
		}
		enc := raw.Enclosures[0]
		length, _ := strconv.ParseInt(strings.TrimSpace(enc.Length), 10, 64)
		ch.Items = append(ch.Items, Item{
			Title:     strings.TrimSpace(raw.Title),
			GUID:      strings.TrimSpace(raw.GUID),
			Link:      strings.TrimSpace(raw.Link),
			Published: parsePubDate(raw.PubDate),
			Enclosure: Enclosure{
				URL:    strings.TrimSpace(enc.URL),
				Length: length,
				Type:   strings.TrimSpace(enc.Type),
			},
		})
	}
	return ch, nil
}

func parsePubDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
