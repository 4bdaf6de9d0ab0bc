package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
)

// DefaultTimeout is the default HTTP timeout.
const DefaultTimeout = 30 * time.Second

// NotFoundError reports a 404 response for the requested URL.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content not found: %s", e.URL)
}

// FetchError reports any other transport failure: connection refused,
// timeout, non-success status, or a body that could not be read. Cause is a
// human-readable description for run logs.
type FetchError struct {
	URL   string
	Cause string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %s", e.URL, e.Cause)
}

// ContentFetcher performs single HTTP GETs against arbitrary URLs with an
// optional credential header. It carries no retry policy; retries belong to
// the caller.
type ContentFetcher struct {
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewContentFetcher creates a fetcher with the given timeout.
func NewContentFetcher(timeout time.Duration, logger arbor.ILogger) *ContentFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ContentFetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NewContentFetcherWithClient creates a fetcher around an existing client.
// Used by tests and by callers that share transport configuration.
func NewContentFetcherWithClient(httpClient *http.Client, logger arbor.ILogger) *ContentFetcher {
	return &ContentFetcher{httpClient: httpClient, logger: logger}
}

// Fetch performs a GET against the URL. When credential is non-empty it is
// sent as the Authorization header. A 404 yields *NotFoundError; every other
// failure yields *FetchError.
func (f *ContentFetcher) Fetch(ctx context.Context, url string, credential string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Sprintf("invalid request: %v", err)}
	}

	if credential != "" {
		req.Header.Set("Authorization", credential)
	}

	if f.logger != nil {
		f.logger.Debug().Str("url", url).Msg("Fetching remote content")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Sprintf("request error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{URL: url}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Cause: fmt.Sprintf("HTTP error: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Cause: fmt.Sprintf("read error: %v", err)}
	}

	return body, nil
}
