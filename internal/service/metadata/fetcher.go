package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"toolshed/internal/domain"
)

// browserUserAgent is sent with every outbound request. Many sites refuse
// clients that do not look like a browser.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Fetcher retrieves the HTML of a page. Failures are returned as a failed
// FetchResult, never as an error or panic.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) domain.FetchResult
}

// HTTPFetcher fetches pages with a plain HTTP GET
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPFetcher creates a fetcher bounded by timeout that reads at most maxBytes of each body
func NewHTTPFetcher(timeout time.Duration, maxBytes int64, logger *slog.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) domain.FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.FetchFailed(fmt.Sprintf("invalid request: %v", err))
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		reason := describeFetchError(err, f.timeout)
		f.logger.Debug("Fetch failed", "url", pageURL, "reason", reason, "elapsed", time.Since(start))
		return domain.FetchFailed(reason)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("Fetch returned non-success status", "url", pageURL, "status", resp.StatusCode)
		return domain.FetchFailed(fmt.Sprintf("HTTP error: %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return domain.FetchFailed(describeFetchError(err, f.timeout))
	}

	f.logger.Debug("Fetched page", "url", pageURL, "bytes", len(body), "elapsed", time.Since(start))
	return domain.FetchOK(string(body))
}

// describeFetchError turns transport errors into a short reason for the
// fetch-failure prompt
func describeFetchError(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("request timed out after %s", timeout)
	}
	if errors.Is(err, context.Canceled) {
		return "request was cancelled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("request timed out after %s", timeout)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("could not resolve host %s", dnsErr.Name)
	}

	return err.Error()
}
