package crawler

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

// Fetcher implements interfaces.PageFetcher by rendering a page and
// extracting its variants.
type Fetcher struct {
	renderer Renderer
	logger   arbor.ILogger
}

var _ interfaces.PageFetcher = (*Fetcher)(nil)

func NewFetcher(renderer Renderer, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		renderer: renderer,
		logger:   logger,
	}
}

func (f *Fetcher) FetchStock(ctx context.Context, url string) ([]models.RawVariant, error) {
	html, err := f.renderer.Render(ctx, url)
	if err != nil {
		return nil, err
	}

	variants, err := ExtractStock(html)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().Str("url", url).Int("variants", len(variants)).Msg("Stock extracted")
	return variants, nil
}

// CheckAvailable is true when any variant on the page is in stock. A page
// that loads but carries no stock data counts as unavailable.
func (f *Fetcher) CheckAvailable(ctx context.Context, url string) (bool, error) {
	variants, err := f.FetchStock(ctx, url)
	if errors.Is(err, ErrNoStockData) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return HasAvailable(variants), nil
}
