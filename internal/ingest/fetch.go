package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/pkg/httputil"
)

// ErrInvalidURL is returned for anything but an absolute http(s) URL
var ErrInvalidURL = errors.New("invalid dataset url")

// Fetcher downloads datasets published by the strategy runner
type Fetcher struct {
	client   *httputil.Client
	maxBytes int64
}

// NewFetcher creates a fetcher that reads at most maxBytes per dataset
func NewFetcher(client *httputil.Client, maxBytes int64) *Fetcher {
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads and decodes a dataset. The format comes from the URL path
// extension and defaults to JSON.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, capital float64) (*contracts.PerformanceDataset, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	format, err := DetectFormat("", "", path.Base(u.Path))
	if err != nil {
		return nil, err
	}

	body, err := f.client.GetBytes(ctx, u.String(), f.maxBytes)
	if err != nil {
		if errors.Is(err, httputil.ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	return Decode(format, bytes.NewReader(body), capital)
}
