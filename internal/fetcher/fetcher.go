// Package fetcher downloads HTML pages for the crawler. Only successful
// text/html responses are returned; redirects are followed up to a caller
// supplied limit and requests are paced by a token-bucket limiter.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/resilience"
)

type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	retry     resilience.RetryConfig
	logger    *slog.Logger
}

func New(cfg config.CrawlerConfig) *Fetcher {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Retryable:    retryable,
		},
		logger: slog.Default().With("component", "fetcher"),
	}
}

// statusError carries a non-200 response status.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// Fetch returns the body of rawURL when it answers 200 with an HTML content
// type, following at most maxRedirects redirects.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, maxRedirects int) (string, error) {
	client := *f.client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	var body string
	err := resilience.Retry(ctx, "fetch "+rawURL, f.retry, func(int) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		body, err = f.get(ctx, &client, rawURL)
		return err
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotHTML) {
			return "", err
		}
		return "", fmt.Errorf("fetching %s: %w: %v", rawURL, apperrors.ErrFetchFailed, err)
	}
	f.logger.Debug("fetched page", "url", rawURL, "bytes", len(body))
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return "", fmt.Errorf("%s served %q: %w", rawURL, resp.Header.Get("Content-Type"), apperrors.ErrNotHTML)
	}

	var r io.Reader = resp.Body
	if f.maxBody > 0 {
		r = io.LimitReader(resp.Body, f.maxBody)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	if errors.Is(err, apperrors.ErrNotHTML) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
