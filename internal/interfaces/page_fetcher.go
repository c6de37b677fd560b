package interfaces

import (
	"context"

	"github.com/ternarybob/stockscope/internal/models"
)

// PageFetcher retrieves stock data from a single storefront product page.
// Implementations may fail, time out or be slow; callers must never assume
// a fetch succeeds.
type PageFetcher interface {
	// FetchStock returns every color/size variant found on the page at url.
	FetchStock(ctx context.Context, url string) ([]models.RawVariant, error)

	// CheckAvailable is the cheaper boolean pass: true if anything on the page
	// is in stock.
	CheckAvailable(ctx context.Context, url string) (bool, error)
}
