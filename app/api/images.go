package api

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

var ErrImageTooLarge = errors.New("image exceeds the upload limit")

// ImageFetcher downloads images referenced by URL in analysis requests.
type ImageFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	maxBytes  int64
}

func NewImageFetcher(client *http.Client, userAgent string, timeout time.Duration, maxBytes int64) *ImageFetcher {
	return &ImageFetcher{
		client:    cmp.Or(client, http.DefaultClient),
		userAgent: userAgent,
		timeout:   cmp.Or(timeout, 10*time.Second),
		maxBytes:  cmp.Or(maxBytes, 10<<20),
	}
}

// Fetch returns the body of rawURL and a file name derived from its path.
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("invalid image URL %q", rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, "", err
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "downloaded_image"
	}
	return data, name, nil
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}
