package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/epa-data-etl/internal/domain"
	"github.com/couchcryptid/epa-data-etl/internal/observability"
)

// Retry defaults for EPA endpoints.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 10 * time.Second
	DefaultTimeout     = 5 * time.Minute
)

// Validator inspects a response body and rejects it by returning an error,
// which counts as a failed attempt.
type Validator = func(body []byte) error

// Config controls retry and transport behavior.
type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Proxy       string
}

// Fetcher performs HTTP requests against unreliable sources with a fixed
// number of attempts and a fixed delay between them.
type Fetcher struct {
	client      *http.Client
	clock       clockwork.Clock
	maxAttempts int
	retryDelay  time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewFetcher creates a fetcher. Zero config values fall back to defaults.
func NewFetcher(cfg Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) (*Fetcher, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		return nil, domain.ConfigError("negative retry delay %s", cfg.RetryDelay)
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, domain.ConfigError("invalid proxy %q", cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Fetcher{
		client:      &http.Client{Timeout: cfg.Timeout, Transport: transport},
		clock:       clock,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

// Fetch GETs rawURL with params merged into its query and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, params url.Values, validate Validator) ([]byte, error) {
	full, err := withParams(rawURL, params)
	if err != nil {
		return nil, err
	}
	var body []byte
	err = f.retry(ctx, rawURL, func(ctx context.Context) error {
		resp, err := f.get(ctx, http.MethodGet, full)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if validate != nil {
			if err := validate(data); err != nil {
				return fmt.Errorf("invalid response: %w", err)
			}
		}
		body = data
		return nil
	})
	return body, err
}

// Download streams rawURL into dst. Each attempt truncates dst first, so a
// failed partial transfer never leaks into the next one.
func (f *Fetcher) Download(ctx context.Context, rawURL string, dst *os.File) error {
	return f.retry(ctx, rawURL, func(ctx context.Context) error {
		if err := dst.Truncate(0); err != nil {
			return fmt.Errorf("truncate %s: %w", dst.Name(), err)
		}
		if _, err := dst.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("seek %s: %w", dst.Name(), err)
		}
		resp, err := f.get(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		n, err := io.Copy(dst, resp.Body)
		if err != nil {
			return fmt.Errorf("copy body: %w", err)
		}
		f.logger.Debug("downloaded", "url", rawURL, "bytes", n, "file", dst.Name())
		return nil
	})
}

// LastModified issues a single HEAD request and parses the Last-Modified
// header.
func (f *Fetcher) LastModified(ctx context.Context, rawURL string) (time.Time, error) {
	resp, err := f.get(ctx, http.MethodHead, rawURL)
	if err != nil {
		return time.Time{}, err
	}
	resp.Body.Close()
	header := resp.Header.Get("Last-Modified")
	if header == "" {
		return time.Time{}, fmt.Errorf("head %s: no Last-Modified header", rawURL)
	}
	t, err := http.ParseTime(header)
	if err != nil {
		return time.Time{}, fmt.Errorf("head %s: parse Last-Modified: %w", rawURL, err)
	}
	return t, nil
}

func (f *Fetcher) get(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = redact(ue.URL)
		}
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: status %d: %s", method, redact(rawURL), resp.StatusCode, snippet)
	}
	return resp, nil
}

func (f *Fetcher) retry(ctx context.Context, rawURL string, attempt func(context.Context) error) error {
	var last error
	for i := 1; i <= f.maxAttempts; i++ {
		start := f.clock.Now()
		err := attempt(ctx)
		f.metrics.FetchDuration.Observe(f.clock.Since(start).Seconds())
		if err == nil {
			f.metrics.FetchAttempts.WithLabelValues("success").Inc()
			return nil
		}
		f.metrics.FetchAttempts.WithLabelValues("error").Inc()
		last = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("fetch %s: %w", redact(rawURL), ctxErr)
		}
		if i == f.maxAttempts {
			break
		}
		f.logger.Warn("fetch attempt failed, retrying",
			"url", redact(rawURL),
			"attempt", i,
			"max_attempts", f.maxAttempts,
			"delay", f.retryDelay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch %s: %w", redact(rawURL), ctx.Err())
		case <-f.clock.After(f.retryDelay):
		}
	}
	f.logger.Error("fetch failed", "url", redact(rawURL), "attempts", f.maxAttempts, "error", last)
	return &domain.FetchError{URL: redact(rawURL), Attempts: f.maxAttempts, Err: last}
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact drops the query string so API keys never reach logs or errors.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}
