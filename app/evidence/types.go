// Package evidence gathers material for checking a claim: fact-check databases,
// web search with provider fallback, social posts and full-page text.
package evidence

import (
	"context"

	"github.com/lysyi3m/truthlens/app/social"
)

type Source string

const (
	SourceWeb             Source = "web"
	SourceSocial          Source = "x.com"
	SourceGoogleFactCheck Source = "google_fact_check"
	SourceFactCheckFeed   Source = "fact_check_feed"
	SourcePlaceholder     Source = "placeholder"
)

// Item is one piece of evidence. Content is a search snippet until the item is
// enriched with the page text.
type Item struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Source      Source `json:"source"`
	IsFactCheck bool   `json:"is_fact_check"`
}

// Result is a raw web search hit.
type Result struct {
	Title   string
	URL     string
	Content string
}

type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, max int) ([]Result, error)
}

type FactCheckProvider interface {
	Name() string
	FactCheck(ctx context.Context, claim string) ([]Item, error)
}

type SocialSearcher interface {
	Recent(ctx context.Context, query string, max int) ([]social.Post, error)
}

// PageFetcher returns the readable text of a page with boilerplate removed.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
