package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
)

// ChromeRenderer renders pages in a shared headless Chrome, one tab per
// request, for storefronts that build their product data in the browser.
type ChromeRenderer struct {
	userAgent string
	wait      time.Duration
	timeout   time.Duration
	limiter   *HostLimiter
	logger    arbor.ILogger

	once           sync.Once
	startErr       error
	browserCtx     context.Context
	browserCancel  context.CancelFunc
	allocatorClose context.CancelFunc
}

func NewChromeRenderer(config common.CrawlerConfig, logger arbor.ILogger) *ChromeRenderer {
	return &ChromeRenderer{
		userAgent: config.UserAgent,
		wait:      config.JavaScriptWaitDuration(),
		timeout:   config.RequestTimeoutDuration(),
		limiter:   NewHostLimiter(config.RequestsPerSecond, config.Burst),
		logger:    logger,
	}
}

// start launches the browser on first use.
func (r *ChromeRenderer) start() error {
	r.once.Do(func() {
		allocatorOpts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.UserAgent(r.userAgent),
		)
		allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
		browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

		if err := chromedp.Run(browserCtx, chromedp.Navigate("about:blank")); err != nil {
			browserCancel()
			allocatorCancel()
			r.startErr = fmt.Errorf("failed to start headless browser: %w", err)
			return
		}

		r.browserCtx = browserCtx
		r.browserCancel = browserCancel
		r.allocatorClose = allocatorCancel
		r.logger.Debug().Msg("Headless browser started")
	})
	return r.startErr
}

func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	if err := r.start(); err != nil {
		return "", err
	}
	if err := r.limiter.Wait(ctx, url); err != nil {
		return "", err
	}

	tabCtx, tabCancel := chromedp.NewContext(r.browserCtx)
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		tabCtx, cancel = context.WithTimeout(tabCtx, r.timeout)
		defer cancel()
	}

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": "en-US,en;q=0.9",
		}),
		chromedp.Navigate(url),
		chromedp.Sleep(r.wait),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("render %s: %w", url, err)
	}

	r.logger.Debug().Str("url", url).Int("bytes", len(html)).Msg("Page rendered")
	return html, nil
}

// Close shuts the browser down. Safe to call when it never started.
func (r *ChromeRenderer) Close() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocatorClose != nil {
		r.allocatorClose()
	}
}
