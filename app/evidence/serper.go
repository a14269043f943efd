package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper searches Google results through serper.dev.
type Serper struct {
	httpProvider
	apiKey string
}

var _ SearchProvider = (*Serper)(nil)

func NewSerper(apiKey string, c ProviderConfig) (*Serper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("serper API key is required")
	}
	return &Serper{httpProvider: newHTTPProvider(c, serperEndpoint), apiKey: apiKey}, nil
}

func (s *Serper) Name() string { return "serper" }

func (s *Serper) Search(ctx context.Context, query string, max int) ([]Result, error) {
	payload, err := json.Marshal(map[string]any{"q": query, "num": max})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}

	err = s.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", s.apiKey)
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		results = append(results, Result{Title: r.Title, URL: r.Link, Content: r.Snippet})
	}
	return results, nil
}
