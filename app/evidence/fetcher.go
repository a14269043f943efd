package evidence

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxPageText is the longest page text returned by HTTPFetcher, in runes.
	MaxPageText = 10000

	maxPageBytes = 5 << 20

	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// HTTPFetcher downloads a page and reduces it to its readable text.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	policy    *bluemonday.Policy
}

var _ PageFetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(client *http.Client, userAgent string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		client:    cmp.Or(client, http.DefaultClient),
		userAgent: cmp.Or(userAgent, BrowserUserAgent),
		timeout:   cmp.Or(timeout, 5*time.Second),
		policy:    bluemonday.StrictPolicy().SkipElementsContent("nav", "header", "footer", "aside", "form"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("unsupported URL: %s", pageURL)
	}

	data, contentType, err := f.download(ctx, pageURL)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(contentType, "text/plain") {
		return Truncate(collapseSpace(string(data)), MaxPageText), nil
	}

	return f.extract(data, u), nil
}

func (f *HTTPFetcher) download(ctx context.Context, pageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.HasPrefix(contentType, "text/plain") {
		return nil, "", fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	return data, contentType, nil
}

// extract prefers the readability article body and falls back to the whole
// document when no article can be found.
func (f *HTTPFetcher) extract(data []byte, u *url.URL) string {
	markup := string(data)

	article, err := readability.FromReader(bytes.NewReader(data), u)
	if err != nil {
		slog.Debug("Readability extraction failed, using full document", "url", u.String(), "error", err)
	} else if strings.TrimSpace(article.Content) != "" {
		markup = article.Content
	}

	return Truncate(f.toText(markup), MaxPageText)
}

func (f *HTTPFetcher) toText(markup string) string {
	// Tags are dropped without separators, so pad them first.
	spaced := strings.ReplaceAll(markup, "<", " <")
	return collapseSpace(html.UnescapeString(f.policy.Sanitize(spaced)))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
