// Package crawler loads storefront product pages and extracts per-variant
// stock from them.
package crawler

import (
	"context"
	"errors"
)

var (
	// ErrFetchStatus wraps HTTP responses with status >= 400.
	ErrFetchStatus = errors.New("unexpected http status")

	// ErrBodyTooLarge means a response body exceeded crawler.max_body_size.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrNoStockData means the page had neither JSON-LD offers nor product JSON.
	ErrNoStockData = errors.New("no stock data on page")
)

// Renderer returns the HTML of a page. HTTPRenderer fetches the raw
// response; ChromeRenderer returns the DOM after scripts ran.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}
