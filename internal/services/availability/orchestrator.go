package availability

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

// Orchestrator queries every configured region concurrently. A region that
// fails is replaced by an empty record so one bad storefront never sinks the report.
type Orchestrator struct {
	regions *models.RegionSet
	fetcher interfaces.PageFetcher
	logger  arbor.ILogger
}

func NewOrchestrator(regions *models.RegionSet, fetcher interfaces.PageFetcher, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		regions: regions,
		fetcher: fetcher,
		logger:  logger,
	}
}

// FetchAllRegions returns one record per region in declaration order,
// regardless of completion order.
func (o *Orchestrator) FetchAllRegions(ctx context.Context, productPath string) []models.RegionStock {
	regions := o.regions.Regions()
	results := make([]models.RegionStock, len(regions))
	for i, r := range regions {
		results[i] = models.EmptyRegionStock(r.Code)
	}

	var wg sync.WaitGroup
	for i, r := range regions {
		wg.Add(1)
		i, code := i, r.Code
		common.SafeGo(o.logger, "fetch-region-"+code, func() {
			defer wg.Done()
			if stock, ok := o.fetchRegion(ctx, code, productPath); ok {
				results[i] = stock
			}
		})
	}
	wg.Wait()

	return results
}

func (o *Orchestrator) fetchRegion(ctx context.Context, code, productPath string) (models.RegionStock, bool) {
	url, err := o.regions.ProductURL(code, productPath)
	if err != nil {
		o.logger.Warn().Err(err).Str("region", code).Str("url", url).Msg("Cannot build region product URL")
		return models.RegionStock{}, false
	}
	if err := ctx.Err(); err != nil {
		o.logger.Warn().Err(err).Str("region", code).Str("url", url).Msg("Region fetch cancelled")
		return models.RegionStock{}, false
	}

	variants, err := o.fetcher.FetchStock(ctx, url)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		o.logger.Warn().Err(err).Str("region", code).Str("url", url).Msg("Region fetch failed, using empty stock")
		return models.RegionStock{}, false
	}

	stock, skipped := models.NewRegionStockFromRaw(code, variants)
	if skipped > 0 {
		o.logger.Debug().Str("region", code).Int("skipped", skipped).Msg("Skipped variants without color or size")
	}
	o.logger.Debug().Str("region", code).Int("entries", stock.Len()).Msg("Region stock fetched")
	return stock, true
}

// CheckRegions runs the boolean-only pass. Failed regions are reported as
// unavailable with Failed set.
func (o *Orchestrator) CheckRegions(ctx context.Context, productPath string) []models.RegionCheck {
	regions := o.regions.Regions()
	results := make([]models.RegionCheck, len(regions))
	for i, r := range regions {
		results[i] = models.RegionCheck{RegionCode: r.Code, Failed: true}
	}

	var wg sync.WaitGroup
	for i, r := range regions {
		wg.Add(1)
		i, code := i, r.Code
		common.SafeGo(o.logger, "check-region-"+code, func() {
			defer wg.Done()
			url, available, err := o.checkRegion(ctx, code, productPath)
			if err != nil {
				o.logger.Warn().Err(err).Str("region", code).Str("url", url).Msg("Region check failed")
				return
			}
			results[i] = models.RegionCheck{RegionCode: code, Available: available}
		})
	}
	wg.Wait()

	return results
}

// checkRegion returns the region URL it checked alongside the result, so
// failures can be logged against the storefront that failed.
func (o *Orchestrator) checkRegion(ctx context.Context, code, productPath string) (string, bool, error) {
	url, err := o.regions.ProductURL(code, productPath)
	if err != nil {
		return url, false, err
	}
	if err := ctx.Err(); err != nil {
		return url, false, err
	}
	available, err := o.fetcher.CheckAvailable(ctx, url)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return url, false, err
	}
	return url, available, nil
}
