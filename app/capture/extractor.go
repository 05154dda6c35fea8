package capture

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/loydmilligan/dailies-sub000/app/database"
)

const fetchTimeout = 30 * time.Second

// Extractor turns a URL into a pending content item: it fetches the page,
// extracts the readable article text and derives the capture metadata.
type Extractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewExtractor(httpClient *http.Client, userAgent string) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Capture fetches and extracts the page at rawURL. The returned item is in
// pending status with a deterministic content hash for deduplication.
func (e *Extractor) Capture(ctx context.Context, rawURL string) (*database.ContentItem, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Host == "" {
		return nil, fmt.Errorf("invalid URL: %s", rawURL)
	}

	data, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	title, text, err := e.extract(data, pageURL)
	if err != nil {
		return nil, err
	}

	item := &database.ContentItem{
		ID:           uuid.NewString(),
		URL:          rawURL,
		Title:        title,
		RawText:      text,
		SourceDomain: SourceDomain(rawURL),
		ContentType:  "article",
		ContentHash:  ContentHash(title, rawURL),
		Status:       database.StatusPending,
	}

	slog.Debug("Content captured",
		"url", rawURL,
		"title", title,
		"content_length", len(text))

	return item, nil
}

// fetch downloads the page, retrying transient failures with fibonacci
// backoff. Non-2xx responses and non-HTML payloads are terminal.
func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var data []byte

	backoff := retry.NewFibonacci(1 * time.Second)
	err := retry.Do(ctx, retry.WithMaxRetries(3, backoff), func(ctx context.Context) error {
		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(fetchCtx, "GET", rawURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", e.userAgent)

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.RetryableError(fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
			return fmt.Errorf("content type is not HTML: %s", contentType)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// extract pulls the readable article text out of the HTML. Readability does
// the heavy lifting; goquery fills in the title when readability comes back
// without one.
func (e *Extractor) extract(data []byte, pageURL *url.URL) (title, text string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract content: %w", err)
	}

	title = strings.TrimSpace(article.Title)
	text = strings.TrimSpace(article.TextContent)

	if title == "" || text == "" {
		docTitle, docText := fallbackExtract(data)
		if title == "" {
			title = docTitle
		}
		if text == "" {
			text = docText
		}
	}

	if text == "" {
		return "", "", fmt.Errorf("no content extracted from HTML data")
	}
	return title, text, nil
}

// fallbackExtract scrapes title and body text directly from the document
// when readability yields nothing usable
func fallbackExtract(data []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", ""
	}

	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = strings.TrimSpace(og)
	} else {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("script, style, noscript").Remove()
	text = flattenText(doc.Find("body"))
	return title, text
}

// ContentHash returns the deduplication hash for a captured item. Only the
// title and URL participate, so re-captures of an updated page map to the
// same item.
func ContentHash(title, rawURL string) string {
	content := fmt.Sprintf("%s|%s", title, rawURL)
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// SourceDomain returns the normalized host for a URL, with any www. prefix
// stripped. Unparseable URLs yield an empty domain.
func SourceDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
