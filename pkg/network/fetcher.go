// pkg/network/fetcher.go
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// StatusError reports a non-success HTTP status from the portal.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal returned HTTP %s for %s", e.Status, e.URL)
}

// Fetcher issues authenticated GETs against the portal by replaying a
// browser cookie set in a Cookie header. Requests are rate limited so
// the fallback path never hammers the portal faster than a human would.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
	ua      string
}

// NewFetcher builds a Fetcher around the given client configuration.
func NewFetcher(cfg *ClientConfig, userAgent string, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: NewClient(cfg),
		// One request per second with a small burst is plenty for
		// document retrieval and stays under anti-abuse thresholds.
		limiter: rate.NewLimiter(rate.Limit(1), 2),
		logger:  logger.Named("fetcher"),
		ua:      userAgent,
	}
}

// Get downloads url with the supplied Cookie header value and returns
// the verbatim response body.
func (f *Fetcher) Get(ctx context.Context, url, cookieHeader string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	if cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	if f.ua != "" {
		// The replayed request must look like the browser that owns
		// the session, or the portal may invalidate it.
		req.Header.Set("User-Agent", f.ua)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body from %s: %w", url, err)
	}

	f.logger.Debug("Fetched document over HTTP fallback",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}
