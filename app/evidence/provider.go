package evidence

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ProviderConfig holds the transport settings shared by the HTTP providers.
// Endpoint overrides the provider's public API URL.
type ProviderConfig struct {
	HTTPClient        *http.Client
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type httpProvider struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	limiter  *rate.Limiter
}

func newHTTPProvider(c ProviderConfig, defaultEndpoint string) httpProvider {
	return httpProvider{
		client:   cmp.Or(c.HTTPClient, http.DefaultClient),
		endpoint: cmp.Or(c.Endpoint, defaultEndpoint),
		timeout:  cmp.Or(c.Timeout, 10*time.Second),
		limiter:  rate.NewLimiter(rate.Limit(cmp.Or(c.RequestsPerSecond, 2)), 1),
	}
}

// do sends req under the provider's rate limit and timeout and decodes a JSON
// body into out. build receives the bounded context.
func (p httpProvider) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
