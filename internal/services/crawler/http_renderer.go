package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
)

// HTTPRenderer fetches pages with plain GET requests, rate limited per host
// and retried on transient failures.
type HTTPRenderer struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	limiter     *HostLimiter
	retry       *RetryPolicy
	logger      arbor.ILogger
}

type HTTPRendererOption func(*HTTPRenderer)

func WithHTTPClient(client *http.Client) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if client != nil {
			r.client = client
		}
	}
}

func WithRetryPolicy(policy *RetryPolicy) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if policy != nil {
			r.retry = policy
		}
	}
}

func WithHostLimiter(limiter *HostLimiter) HTTPRendererOption {
	return func(r *HTTPRenderer) {
		if limiter != nil {
			r.limiter = limiter
		}
	}
}

func NewHTTPRenderer(config common.CrawlerConfig, logger arbor.ILogger, opts ...HTTPRendererOption) *HTTPRenderer {
	r := &HTTPRenderer{
		client:      &http.Client{Timeout: config.RequestTimeoutDuration()},
		userAgent:   config.UserAgent,
		maxBodySize: config.MaxBodySize,
		limiter:     NewHostLimiter(config.RequestsPerSecond, config.Burst),
		retry:       NewRetryPolicy(config.MaxAttempts),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPRenderer) Render(ctx context.Context, url string) (string, error) {
	var body string
	status, err := r.retry.ExecuteWithRetry(ctx, r.logger, func() (int, error) {
		if err := r.limiter.Wait(ctx, url); err != nil {
			return 0, err
		}
		b, status, err := r.get(ctx, url)
		if err != nil {
			return status, err
		}
		body = b
		return status, nil
	})
	if err != nil {
		return "", err
	}

	r.logger.Debug().Str("url", url).Int("status_code", status).Int("bytes", len(body)).Msg("Page fetched")
	return body, nil
}

func (r *HTTPRenderer) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return "", resp.StatusCode, fmt.Errorf("%w: %s returned %d", ErrFetchStatus, url, resp.StatusCode)
	}

	reader := io.Reader(resp.Body)
	if r.maxBodySize > 0 {
		// One extra byte tells a body of exactly maxBodySize from a longer one.
		reader = io.LimitReader(resp.Body, r.maxBodySize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read body: %w", err)
	}
	if r.maxBodySize > 0 && int64(len(data)) > r.maxBodySize {
		r.logger.Warn().Str("url", url).Int64("max_body_size", r.maxBodySize).Msg("Response body exceeds limit")
		return "", resp.StatusCode, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, url, r.maxBodySize)
	}
	return string(data), resp.StatusCode, nil
}
