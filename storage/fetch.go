package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/georgepadayatti/esign/pdf/images"
)

// DefaultMaxFetchBytes bounds remote reads.
const DefaultMaxFetchBytes = 10 << 20

// URLFetcher reads data: URLs inline, URLs owned by a local resolver from
// that resolver, and anything else over HTTP.
type URLFetcher struct {
	Client    *http.Client
	MaxBytes  int64
	resolvers []Resolver
}

// NewURLFetcher creates a fetcher consulting resolvers before HTTP.
func NewURLFetcher(timeout time.Duration, resolvers ...Resolver) *URLFetcher {
	return &URLFetcher{
		Client:    &http.Client{Timeout: timeout},
		MaxBytes:  DefaultMaxFetchBytes,
		resolvers: resolvers,
	}
}

// Fetch implements Fetcher.
func (f *URLFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return images.DataURLBytes(url)
	}
	for _, r := range f.resolvers {
		if r.Owns(url) {
			return r.Fetch(ctx, url)
		}
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}
	return readLimited(resp.Body, f.MaxBytes)
}
