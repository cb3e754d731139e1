// Package fetch downloads remote video sources over HTTP. Both the oracle
// (which sends clip bytes to the model) and the compositor (which hands local
// files to ffmpeg) go through it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// StatusError reports a non-200 response for a source URL.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

// Fetcher retrieves a remote source either to a local file or into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) error
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

type HTTPFetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPFetcher(timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch downloads url to destPath. A partial file is removed on failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, destPath string) error {
	body, err := f.open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("fetch %s: %w", url, err)
	}

	if f.logger != nil {
		f.logger.Debug("source fetched", "url", url, "dest", destPath)
	}
	return nil
}

// FetchBytes downloads url into memory.
func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, err := f.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return data, nil
}

func (f *HTTPFetcher) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}
