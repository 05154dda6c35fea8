package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

// FeedSource ingests RSS/Atom feeds and converts their entries into pending
// content items
type FeedSource struct {
	gofeedParser *gofeed.Parser
	httpClient   *http.Client
	userAgent    string
}

func NewFeedSource(httpClient *http.Client, userAgent string) *FeedSource {
	return &FeedSource{
		gofeedParser: gofeed.NewParser(),
		httpClient:   httpClient,
		userAgent:    userAgent,
	}
}

// Fetch downloads and parses the feed at feedURL
func (s *FeedSource) Fetch(ctx context.Context, feedURL string) ([]database.ContentItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, "GET", feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	items, err := s.Parse(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("Feed fetched", "url", feedURL, "items", len(items))
	return items, nil
}

// Parse converts raw feed data into content items. Entries without a link
// are skipped.
func (s *FeedSource) Parse(data []byte) ([]database.ContentItem, error) {
	feed, err := s.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]database.ContentItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}
		items = append(items, s.normalizeEntry(entry))
	}
	return items, nil
}

func (s *FeedSource) normalizeEntry(entry *gofeed.Item) database.ContentItem {
	text := entry.Content
	if text == "" {
		text = entry.Description
	}

	item := database.ContentItem{
		ID:           uuid.NewString(),
		URL:          entry.Link,
		Title:        strings.TrimSpace(entry.Title),
		RawText:      stripHTML(text),
		SourceDomain: SourceDomain(entry.Link),
		ContentType:  contentTypeForEntry(entry),
		ContentHash:  ContentHash(entry.Title, entry.Link),
		Status:       database.StatusPending,
	}

	metadata := map[string]interface{}{}
	if entry.PublishedParsed != nil {
		metadata["published_at"] = entry.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if entry.Author != nil && entry.Author.Name != "" {
		metadata["author"] = entry.Author.Name
	}
	if len(entry.Categories) > 0 {
		metadata["feed_categories"] = entry.Categories
	}
	if len(metadata) > 0 {
		item.Metadata = metadata
	}

	return item
}

// contentTypeForEntry classifies a feed entry by its enclosure or link
func contentTypeForEntry(entry *gofeed.Item) string {
	for _, enclosure := range entry.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "video/") {
			return "video"
		}
		if strings.HasPrefix(enclosure.Type, "audio/") {
			return "audio"
		}
	}
	host := SourceDomain(entry.Link)
	if host == "youtube.com" || host == "youtu.be" {
		return "video"
	}
	return "article"
}

// stripHTML flattens feed entry markup into plain text
func stripHTML(markup string) string {
	if markup == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.TrimSpace(markup)
	}
	doc.Find("script, style").Remove()
	return flattenText(doc.Selection)
}

// flattenText joins the text nodes under a selection with single spaces.
// Selection.Text() concatenates adjacent block elements with no separator,
// which glues sentences together across paragraph boundaries.
func flattenText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				parts = append(parts, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
