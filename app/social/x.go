// Package social reads public posts from X (formerly Twitter) through the v2 API.
package social

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultXBaseURL = "https://api.twitter.com/2"

	maxQueryLength = 128
	minPageSize    = 10
	maxPageSize    = 100

	tweetFields = "created_at,author_id,public_metrics"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrNotFound    = errors.New("post not found")
)

type Metrics struct {
	Likes   int `json:"like_count"`
	Reposts int `json:"retweet_count"`
	Replies int `json:"reply_count"`
	Quotes  int `json:"quote_count"`
}

type Post struct {
	ID        string
	Text      string
	Author    string
	CreatedAt string
	URL       string
	Metrics   Metrics
}

// PostLookup resolves a single post by ID.
type PostLookup interface {
	Lookup(ctx context.Context, id string) (*Post, error)
}

type XConfig struct {
	BearerToken string
	BaseURL     string
	Timeout     time.Duration
	// RequestsPerSecond bounds outgoing calls; zero means one call per second.
	RequestsPerSecond float64
}

type XClient struct {
	httpClient *http.Client
	token      string
	baseURL    string
	timeout    time.Duration
	limiter    *rate.Limiter
}

var _ PostLookup = (*XClient)(nil)

func NewXClient(httpClient *http.Client, c XConfig) (*XClient, error) {
	if c.BearerToken == "" {
		return nil, fmt.Errorf("X bearer token is required")
	}

	return &XClient{
		httpClient: cmp.Or(httpClient, http.DefaultClient),
		token:      c.BearerToken,
		baseURL:    strings.TrimRight(cmp.Or(c.BaseURL, DefaultXBaseURL), "/"),
		timeout:    cmp.Or(c.Timeout, 10*time.Second),
		limiter:    rate.NewLimiter(rate.Limit(cmp.Or(c.RequestsPerSecond, 1)), 1),
	}, nil
}

type apiTweet struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	AuthorID  string  `json:"author_id"`
	CreatedAt string  `json:"created_at"`
	Metrics   Metrics `json:"public_metrics"`
}

type apiIncludes struct {
	Users []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"users"`
}

type searchResponse struct {
	Data     []apiTweet  `json:"data"`
	Includes apiIncludes `json:"includes"`
}

type lookupResponse struct {
	Data     *apiTweet   `json:"data"`
	Includes apiIncludes `json:"includes"`
}

// Recent searches posts from the last days and returns at most limit of them.
// The query is flattened to one line and cut to the API's practical length.
func (c *XClient) Recent(ctx context.Context, query string, limit int) ([]Post, error) {
	q := strings.TrimSpace(strings.ReplaceAll(query, "\n", " "))
	if r := []rune(q); len(r) > maxQueryLength {
		q = string(r[:maxQueryLength])
	}
	if q == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("max_results", strconv.Itoa(min(max(limit, minPageSize), maxPageSize)))
	params.Set("tweet.fields", tweetFields)
	params.Set("expansions", "author_id")

	var resp searchResponse
	if err := c.get(ctx, "/tweets/search/recent", params, &resp); err != nil {
		return nil, err
	}

	users := usernames(resp.Includes)
	posts := make([]Post, 0, len(resp.Data))
	for _, t := range resp.Data {
		posts = append(posts, toPost(t, users))
	}

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// Lookup fetches one post by ID.
func (c *XClient) Lookup(ctx context.Context, id string) (*Post, error) {
	if id == "" {
		return nil, fmt.Errorf("empty post id: %w", ErrNotFound)
	}

	params := url.Values{}
	params.Set("tweet.fields", tweetFields)
	params.Set("expansions", "author_id")

	var resp lookupResponse
	if err := c.get(ctx, "/tweets/"+url.PathEscape(id), params, &resp); err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}

	post := toPost(*resp.Data, usernames(resp.Includes))
	return &post, nil
}

func (c *XClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("X API request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("X API: %w", ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("X API: %w", ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("X API error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode X API response: %w", err)
	}

	return nil
}

// PostID extracts the numeric ID from a post URL such as
// https://x.com/user/status/123?s=20.
func PostID(postURL string) string {
	id := postURL
	if i := strings.LastIndex(id, "/status/"); i >= 0 {
		id = id[i+len("/status/"):]
	}
	id, _, _ = strings.Cut(id, "?")
	return strings.Trim(id, "/ ")
}

func usernames(inc apiIncludes) map[string]string {
	users := make(map[string]string, len(inc.Users))
	for _, u := range inc.Users {
		users[u.ID] = u.Username
	}
	return users
}

func toPost(t apiTweet, users map[string]string) Post {
	author := cmp.Or(users[t.AuthorID], "unknown")
	return Post{
		ID:        t.ID,
		Text:      t.Text,
		Author:    author,
		CreatedAt: t.CreatedAt,
		URL:       fmt.Sprintf("https://x.com/%s/status/%s", author, t.ID),
		Metrics:   t.Metrics,
	}
}
