package evidence

import (
	"cmp"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/tokens"
)

const (
	defaultFeedTTL      = 15 * time.Minute
	defaultMinOverlap   = 0.5
	maxFeedMatches      = 3
	maxFeedSummaryRunes = 600
)

// FeedFactChecker matches a claim against the latest entries of fact-checking
// outlets' RSS/Atom feeds. Feeds are cached for a short time.
type FeedFactChecker struct {
	client     *http.Client
	parser     *feed.Parser
	urls       []string
	userAgent  string
	timeout    time.Duration
	ttl        time.Duration
	minOverlap float64
	policy     *bluemonday.Policy

	mu    sync.Mutex
	cache map[string]cachedFeed
}

type cachedFeed struct {
	items     []feed.Item
	fetchedAt time.Time
}

var _ FactCheckProvider = (*FeedFactChecker)(nil)

func NewFeedFactChecker(client *http.Client, parser *feed.Parser, urls []string, userAgent string, timeout time.Duration) (*FeedFactChecker, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one fact-check feed URL is required")
	}

	return &FeedFactChecker{
		client:     cmp.Or(client, http.DefaultClient),
		parser:     parser,
		urls:       urls,
		userAgent:  userAgent,
		timeout:    cmp.Or(timeout, 10*time.Second),
		ttl:        defaultFeedTTL,
		minOverlap: defaultMinOverlap,
		policy:     bluemonday.StrictPolicy(),
		cache:      make(map[string]cachedFeed),
	}, nil
}

func (f *FeedFactChecker) Name() string { return "fact_check_feeds" }

// FactCheck returns the feed entries sharing the most terms with the claim.
// A feed that cannot be fetched is skipped.
func (f *FeedFactChecker) FactCheck(ctx context.Context, claim string) ([]Item, error) {
	type match struct {
		item  Item
		score float64
	}

	var matches []match
	var failures int

	for _, u := range f.urls {
		entries, err := f.entries(ctx, u)
		if err != nil {
			slog.Warn("Fact-check feed unavailable", "url", u, "error", err)
			failures++
			continue
		}

		for _, e := range entries {
			summary := f.plain(cmp.Or(e.Description, e.Content))
			score := tokens.Overlap(claim, e.Title+" "+summary)
			if score < f.minOverlap || e.Link == "" {
				continue
			}

			matches = append(matches, match{
				score: score,
				item: Item{
					URL:   e.Link,
					Title: "Fact Check: " + e.Title,
					Content: fmt.Sprintf("[FACT CHECK] %s. %s Source: %s",
						strings.TrimSuffix(e.Title, "."), Truncate(summary, maxFeedSummaryRunes), e.Link),
					Source:      SourceFactCheckFeed,
					IsFactCheck: true,
				},
			})
		}
	}

	if failures == len(f.urls) {
		return nil, fmt.Errorf("all %d fact-check feeds failed", failures)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	items := make([]Item, 0, min(len(matches), maxFeedMatches))
	for i := 0; i < len(matches) && i < maxFeedMatches; i++ {
		items = append(items, matches[i].item)
	}
	return items, nil
}

func (f *FeedFactChecker) entries(ctx context.Context, feedURL string) ([]feed.Item, error) {
	f.mu.Lock()
	cached, ok := f.cache[feedURL]
	f.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) < f.ttl {
		return cached.items, nil
	}

	data, err := f.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	_, items, err := f.parser.Run(data)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache[feedURL] = cachedFeed{items: items, fetchedAt: time.Now()}
	f.mu.Unlock()

	return items, nil
}

func (f *FeedFactChecker) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func (f *FeedFactChecker) plain(markup string) string {
	return collapseSpace(html.UnescapeString(f.policy.Sanitize(strings.ReplaceAll(markup, "<", " <"))))
}
