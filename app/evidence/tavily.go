package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily searches the web through the Tavily search API.
type Tavily struct {
	httpProvider
	apiKey string
}

var _ SearchProvider = (*Tavily)(nil)

func NewTavily(apiKey string, c ProviderConfig) (*Tavily, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily API key is required")
	}
	return &Tavily{httpProvider: newHTTPProvider(c, tavilyEndpoint), apiKey: apiKey}, nil
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) Search(ctx context.Context, query string, max int) ([]Result, error) {
	payload, err := json.Marshal(map[string]any{
		"query":       query,
		"max_results": max,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	err = t.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Content: r.Content})
	}
	return results, nil
}
