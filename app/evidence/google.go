package evidence

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	customSearchEndpoint = "https://www.googleapis.com/customsearch/v1"
	factCheckEndpoint    = "https://factchecktools.googleapis.com/v1alpha1/claims:search"

	factCheckPageSize = 3
)

// GoogleSearch queries a Programmable Search Engine (Custom Search JSON API).
type GoogleSearch struct {
	httpProvider
	apiKey   string
	engineID string
}

var _ SearchProvider = (*GoogleSearch)(nil)

func NewGoogleSearch(apiKey, engineID string, c ProviderConfig) (*GoogleSearch, error) {
	if apiKey == "" || engineID == "" {
		return nil, fmt.Errorf("google API key and search engine ID are required")
	}
	return &GoogleSearch{
		httpProvider: newHTTPProvider(c, customSearchEndpoint),
		apiKey:       apiKey,
		engineID:     engineID,
	}, nil
}

func (g *GoogleSearch) Name() string { return "google_cse" }

func (g *GoogleSearch) Search(ctx context.Context, query string, max int) ([]Result, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(max))

	var resp struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}

	if err := g.do(ctx, getRequest(g.endpoint, params), &resp); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(resp.Items))
	for _, r := range resp.Items {
		results = append(results, Result{Title: r.Title, URL: r.Link, Content: r.Snippet})
	}
	return results, nil
}

// GoogleFactCheck searches published fact checks through the Fact Check Tools API.
type GoogleFactCheck struct {
	httpProvider
	apiKey string
}

var _ FactCheckProvider = (*GoogleFactCheck)(nil)

func NewGoogleFactCheck(apiKey string, c ProviderConfig) (*GoogleFactCheck, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	return &GoogleFactCheck{httpProvider: newHTTPProvider(c, factCheckEndpoint), apiKey: apiKey}, nil
}

func (g *GoogleFactCheck) Name() string { return "google_fact_check" }

type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			TextualRating string `json:"textualRating"`
		} `json:"claimReview"`
	} `json:"claims"`
}

// FactCheck returns one item per published review of claims matching the text.
func (g *GoogleFactCheck) FactCheck(ctx context.Context, claim string) ([]Item, error) {
	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("query", claim)
	params.Set("pageSize", strconv.Itoa(factCheckPageSize))

	var resp factCheckResponse
	if err := g.do(ctx, getRequest(g.endpoint, params), &resp); err != nil {
		return nil, err
	}

	var items []Item
	for _, c := range resp.Claims {
		claimant := cmp.Or(c.Claimant, "Unknown")

		for _, review := range c.ClaimReview {
			publisher := cmp.Or(review.Publisher.Name, "Unknown")
			rating := cmp.Or(review.TextualRating, "Unknown")

			items = append(items, Item{
				URL:   review.URL,
				Title: "Fact Check: " + cmp.Or(review.Title, c.Text),
				Content: fmt.Sprintf("[FACT CHECK] Claim: '%s' by %s (%s). Verdict by %s: %s. Source: %s",
					c.Text, claimant, c.ClaimDate, publisher, rating, review.URL),
				Source:      SourceGoogleFactCheck,
				IsFactCheck: true,
			})
		}
	}
	return items, nil
}

func getRequest(endpoint string, params url.Values) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	}
}
