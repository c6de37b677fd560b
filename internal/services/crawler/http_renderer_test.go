package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
)

func testCrawlerConfig() common.CrawlerConfig {
	cfg := common.NewDefaultConfig().Crawler
	cfg.RequestsPerSecond = 0
	cfg.RequestTimeout = "2s"
	return cfg
}

func fastRetry(attempts int) *RetryPolicy {
	p := NewRetryPolicy(attempts)
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = 5 * time.Millisecond
	return p
}

func TestHTTPRenderer_Render(t *testing.T) {
	var userAgent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, jsonLDPage)
	}))
	defer server.Close()

	cfg := testCrawlerConfig()
	r := NewHTTPRenderer(cfg, arbor.NewLogger())

	html, err := r.Render(context.Background(), server.URL+"/products/alpha-tee")
	require.NoError(t, err)
	assert.Equal(t, jsonLDPage, html)
	assert.Equal(t, cfg.UserAgent, userAgent.Load())
}

func TestHTTPRenderer_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	r := NewHTTPRenderer(testCrawlerConfig(), arbor.NewLogger(), WithRetryPolicy(fastRetry(3)))

	html, err := r.Render(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", html)
	assert.EqualValues(t, 3, calls.Load())
}

func TestHTTPRenderer_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	r := NewHTTPRenderer(testCrawlerConfig(), arbor.NewLogger(), WithRetryPolicy(fastRetry(3)))

	_, err := r.Render(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrFetchStatus)
	assert.EqualValues(t, 1, calls.Load())
}

func TestHTTPRenderer_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	r := NewHTTPRenderer(testCrawlerConfig(), arbor.NewLogger(), WithRetryPolicy(fastRetry(2)))

	_, err := r.Render(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrFetchStatus)
}

func TestHTTPRenderer_MaxBodySize(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	tests := []struct {
		name    string
		max     int64
		want    string
		wantErr error
	}{
		{"below body size", 4, "", ErrBodyTooLarge},
		{"exactly body size", 10, "0123456789", nil},
		{"above body size", 11, "0123456789", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits.Store(0)
			cfg := testCrawlerConfig()
			cfg.MaxBodySize = tt.max
			r := NewHTTPRenderer(cfg, arbor.NewLogger(), WithRetryPolicy(fastRetry(3)))

			html, err := r.Render(context.Background(), server.URL)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.EqualValues(t, 1, hits.Load(), "oversized bodies are not retried")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, html)
		})
	}
}

func TestHTTPRenderer_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewHTTPRenderer(testCrawlerConfig(), arbor.NewLogger(), WithRetryPolicy(fastRetry(3)))
	_, err := r.Render(ctx, server.URL)
	assert.Error(t, err)
}

func TestFetcher_FetchStockAndCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products/alpha-tee", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, jsonLDPage)
	})
	mux.HandleFunc("/products/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>Coming soon</body></html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	logger := arbor.NewLogger()
	f := NewFetcher(NewHTTPRenderer(testCrawlerConfig(), logger), logger)
	ctx := context.Background()

	variants, err := f.FetchStock(ctx, server.URL+"/products/alpha-tee")
	require.NoError(t, err)
	assert.Len(t, variants, 3)

	available, err := f.CheckAvailable(ctx, server.URL+"/products/alpha-tee")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.FetchStock(ctx, server.URL+"/products/empty")
	assert.ErrorIs(t, err, ErrNoStockData)

	available, err = f.CheckAvailable(ctx, server.URL+"/products/empty")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = f.CheckAvailable(ctx, server.URL+"/products/missing")
	assert.ErrorIs(t, err, ErrFetchStatus)
}

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := NewRetryPolicy(3)

	assert.True(t, p.ShouldRetry(0, 503, nil))
	assert.True(t, p.ShouldRetry(0, 429, nil))
	assert.False(t, p.ShouldRetry(0, 404, nil))
	assert.False(t, p.ShouldRetry(2, 503, nil), "last attempt is never retried")
	assert.True(t, p.ShouldRetry(0, 0, context.DeadlineExceeded))
	assert.False(t, p.ShouldRetry(0, 0, fmt.Errorf("parse error")))
}

func TestRetryPolicy_CalculateBackoff(t *testing.T) {
	p := NewRetryPolicy(5)
	for attempt := 0; attempt < 10; attempt++ {
		b := p.CalculateBackoff(attempt)
		assert.Greater(t, b, time.Duration(0))
		assert.LessOrEqual(t, b, p.MaxBackoff+p.MaxBackoff/4)
	}
}

func TestHostLimiter(t *testing.T) {
	unlimited := NewHostLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Wait(context.Background(), "https://a.test/x"))
	}

	limited := NewHostLimiter(1, 1)
	require.NoError(t, limited.Wait(context.Background(), "https://a.test/x"))
	require.NoError(t, limited.Wait(context.Background(), "https://b.test/x"), "hosts have separate buckets")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limited.Wait(ctx, "https://a.test/y"))
}
