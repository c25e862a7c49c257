package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/navid-fn/dupe-radar/internal/faulttolerance"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// HTTPStatusError is returned for non-2xx market responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// HTTPConfig holds market page fetch settings.
type HTTPConfig struct {
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	MaxAttempts       int
	RetryBaseDelay    time.Duration
}

// DefaultHTTPConfig returns the settings the market tolerates.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		RequestTimeout:    60 * time.Second,
		RequestsPerSecond: 1,
		MaxAttempts:       3,
		RetryBaseDelay:    2 * time.Second,
	}
}

// Fetcher downloads market pages with pacing and bounded retry.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retryer *faulttolerance.Retryer
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. retryLogger may be nil.
func NewFetcher(cfg HTTPConfig, logger *slog.Logger, retryLogger *logrus.Logger) *Fetcher {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}

	retryCfg := faulttolerance.DefaultRetryConfig("market-fetch")
	retryCfg.MaxAttempts = cfg.MaxAttempts
	retryCfg.BaseDelay = cfg.RetryBaseDelay
	retryCfg.IsRetryable = isRetryableFetchError

	return &Fetcher{
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retryer: faulttolerance.NewRetryer(retryCfg, retryLogger),
		logger:  logger,
	}
}

// Fetch returns the decoded page body with &nbsp; turned into plain spaces.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var page string
	err := f.retryer.Execute(ctx, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		body, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		page = body
		return nil
	})
	if err != nil {
		return "", err
	}

	f.logger.Debug("fetched market page", "url", url, "bytes", len(page))
	return strings.ReplaceAll(page, "&nbsp;", " "), nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// Client errors other than 429 will not get better by asking again.
func isRetryableFetchError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
