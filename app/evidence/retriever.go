package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/lysyi3m/truthlens/app/llm"
	"github.com/lysyi3m/truthlens/app/social"
)

const (
	maxQueries       = 3
	resultsPerQuery  = 2
	maxSocialPosts   = 5
	maxItems         = 5
	fallbackQueryLen = 100
)

const queryPrompt = `Given these claims:
%s

Generate %d specific search queries to verify them. If the claims are about a specific country (e.g., India), include queries targeting reputable local news sources (e.g., 'site:ndtv.com', 'site:thehindu.com', 'site:indianexpress.com'). Return only the queries, one per line.`

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

// Outcome is what a retrieval produced: the web queries actually used and the
// deduplicated, enriched evidence.
type Outcome struct {
	Queries []string
	Items   []Item
}

// Retriever gathers evidence for a claim from every configured source. Any of
// the providers may be absent.
type Retriever struct {
	model      llm.LanguageModel
	factChecks []FactCheckProvider
	search     []SearchProvider
	social     SocialSearcher
	fetcher    PageFetcher
}

// NewRetriever builds a retriever. search lists web providers in fallback order.
// social and fetcher may be nil.
func NewRetriever(model llm.LanguageModel, factChecks []FactCheckProvider, search []SearchProvider,
	posts SocialSearcher, fetcher PageFetcher) *Retriever {
	return &Retriever{
		model:      model,
		factChecks: factChecks,
		search:     search,
		social:     posts,
		fetcher:    fetcher,
	}
}

// Search never fails: unavailable providers are logged and contribute nothing,
// and web queries no provider can answer are covered by placeholder results.
func (r *Retriever) Search(ctx context.Context, claim string) Outcome {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return Outcome{}
	}

	queries := r.queries(ctx, claim)

	var collected []Item

	factChecks := r.factCheck(ctx, claim)
	if len(factChecks) > 0 {
		collected = append(collected, factChecks...)
		queries = queries[:1]
	}

	for _, q := range queries {
		collected = append(collected, r.webSearch(ctx, q)...)
	}

	collected = append(collected, r.socialSearch(ctx, queries[0])...)

	items := r.enrich(ctx, Dedupe(collected))

	slog.Info("Evidence retrieved",
		"queries", len(queries),
		"fact_checks", len(factChecks),
		"collected", len(collected),
		"items", len(items))

	return Outcome{Queries: queries, Items: items}
}

func (r *Retriever) queries(ctx context.Context, claim string) []string {
	fallback := []string{Truncate(claim, fallbackQueryLen)}

	if r.model == nil {
		return fallback
	}

	out, err := r.model.Infer(ctx, fmt.Sprintf(queryPrompt, claim, maxQueries))
	if err != nil {
		slog.Warn("Query generation failed, searching with the claim", "error", err)
		return fallback
	}

	queries := ParseQueries(out)
	if len(queries) == 0 {
		slog.Warn("Query generation returned nothing, searching with the claim")
		return fallback
	}
	return queries
}

// ParseQueries reads one query per line, dropping list markers and quotes, and
// keeps at most three.
func ParseQueries(out string) []string {
	var queries []string
	for _, line := range strings.Split(out, "\n") {
		q := listMarker.ReplaceAllString(line, "")
		q = strings.Trim(strings.TrimSpace(q), `"'`)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == maxQueries {
			break
		}
	}
	return queries
}

func (r *Retriever) factCheck(ctx context.Context, claim string) []Item {
	var items []Item
	for _, p := range r.factChecks {
		found, err := p.FactCheck(ctx, claim)
		if err != nil {
			slog.Warn("Fact-check provider failed", "provider", p.Name(), "error", err)
			continue
		}
		for i := range found {
			found[i].IsFactCheck = true
		}
		slog.Debug("Fact checks found", "provider", p.Name(), "count", len(found))
		items = append(items, found...)
	}
	return items
}

// webSearch returns the results of the first provider that answers the query
// with at least one hit.
func (r *Retriever) webSearch(ctx context.Context, query string) []Item {
	for _, p := range r.search {
		results, err := p.Search(ctx, query, resultsPerQuery)
		if err != nil {
			slog.Warn("Search provider failed", "provider", p.Name(), "query", query, "error", err)
			continue
		}
		if len(results) == 0 {
			slog.Debug("Search provider returned no results", "provider", p.Name(), "query", query)
			continue
		}

		items := make([]Item, 0, len(results))
		for _, res := range results {
			if res.URL == "" {
				continue
			}
			items = append(items, Item{URL: res.URL, Title: res.Title, Content: res.Content, Source: SourceWeb})
		}
		return items
	}

	slog.Debug("No search provider answered, using placeholder results", "query", query)
	return Placeholder(query)
}

func (r *Retriever) socialSearch(ctx context.Context, query string) []Item {
	if r.social == nil {
		return nil
	}

	posts, err := r.social.Recent(ctx, query, maxSocialPosts)
	if err != nil {
		slog.Warn("Social search failed", "query", query, "error", err)
		return nil
	}

	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, PostItem(p))
	}
	return items
}

// PostItem maps a social post to evidence.
func PostItem(p social.Post) Item {
	return Item{
		URL:     p.URL,
		Title:   "Post by @" + p.Author,
		Content: fmt.Sprintf("[X/Twitter Post by @%s]: %s (Likes: %d)", p.Author, p.Text, p.Metrics.Likes),
		Source:  SourceSocial,
	}
}

// Dedupe collapses items sharing a URL. Items keep the position of the first
// occurrence and the value of the last.
func Dedupe(items []Item) []Item {
	index := make(map[string]int, len(items))
	out := make([]Item, 0, len(items))

	for _, item := range items {
		if i, ok := index[item.URL]; ok {
			out[i] = item
			continue
		}
		index[item.URL] = len(out)
		out = append(out, item)
	}
	return out
}

// enrich replaces snippets with page text. Fact checks and social posts always
// pass through; other items are kept only while fewer than maxItems are kept.
func (r *Retriever) enrich(ctx context.Context, items []Item) []Item {
	out := make([]Item, 0, len(items))

	for _, item := range items {
		if item.IsFactCheck || item.Source == SourceSocial {
			out = append(out, item)
			continue
		}

		if len(out) >= maxItems {
			continue
		}

		if r.fetcher != nil && item.Source != SourcePlaceholder {
			text, err := r.fetcher.Fetch(ctx, item.URL)
			switch {
			case err != nil:
				slog.Debug("Page fetch failed, keeping snippet", "url", item.URL, "error", err)
			case text != "":
				item.Content = text
			}
		}

		out = append(out, item)
	}
	return out
}
