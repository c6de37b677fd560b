// Package availability builds cross-region stock reports for a product:
// concurrent region fetch, tri-state merge, text rendering and caching.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/cache"
	"github.com/ternarybob/stockscope/internal/services/metrics"
)

// ErrReportTimeout is returned by ProcessURL and ProcessPath when the report is not ready
// within the configured timeout.
var ErrReportTimeout = errors.New("availability report timed out")

// Service is the outbound entry point used by callers that need reports.
type Service struct {
	orchestrator  *Orchestrator
	aggregator    *Aggregator
	formatter     *Formatter
	cache         *cache.ReportCache
	logger        arbor.ILogger
	metrics       *metrics.Recorder
	reportTimeout time.Duration
	now           func() time.Time
}

type ServiceOption func(*Service)

// WithReportTimeout bounds ProcessURL and ProcessPath. Zero disables the bound.
func WithReportTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.reportTimeout = d
	}
}

// WithMetrics records build latency on r.
func WithMetrics(r *metrics.Recorder) ServiceOption {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithClock sets the clock used to stamp GeneratedAt.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	orchestrator *Orchestrator,
	aggregator *Aggregator,
	formatter *Formatter,
	reportCache *cache.ReportCache,
	logger arbor.ILogger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		orchestrator: orchestrator,
		aggregator:   aggregator,
		formatter:    formatter,
		cache:        reportCache,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetAvailabilityReport returns the full reports for productPath, from cache
// when a live complete entry exists. Region failures never surface as
// errors; only an invalid path or the caller's cancellation does.
func (s *Service) GetAvailabilityReport(ctx context.Context, productPath string) (models.Reports, error) {
	key, err := common.CanonicalProductPath(productPath)
	if err != nil {
		return models.Reports{}, err
	}

	return s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (models.Reports, error) {
		return s.buildReports(ctx, key), nil
	})
}

func (s *Service) buildReports(ctx context.Context, key string) models.Reports {
	logger := s.logger.WithCorrelationId(uuid.New().String())
	started := s.now()
	logger.Info().Str("product_path", key).Msg("Building availability report")

	records := s.orchestrator.FetchAllRegions(ctx, key)
	report := s.aggregator.CreateReport(records)
	checks := models.RegionChecksFromStock(records)

	reports := models.Reports{
		ProductPath:  key,
		RegionChecks: s.formatter.FormatRegionSummary(checks),
		Public:       s.formatter.FormatPublic(report),
		Admin:        s.formatter.FormatAdmin(report, s.formatter.DisplayRegions()),
		GeneratedAt:  s.now(),
		Complete:     true,
	}

	empty := 0
	for _, r := range records {
		if r.IsEmpty() {
			empty++
		}
	}
	elapsed := reports.GeneratedAt.Sub(started)
	s.metrics.ReportBuilt(ctx, elapsed, empty)
	logger.Info().
		Str("product_path", key).
		Int("regions", len(records)).
		Int("empty_regions", empty).
		Int("colors", len(report.Colors)).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("Availability report built")

	return reports
}

// CheckSimpleAvailability returns the region summary only. A live cache entry
// of any kind is reused; otherwise regions are checked and the summary is
// stored as a partial entry when nothing live exists for the path.
func (s *Service) CheckSimpleAvailability(ctx context.Context, productPath string) (string, error) {
	key, err := common.CanonicalProductPath(productPath)
	if err != nil {
		return "", err
	}

	if entry, ok := s.cache.Get(key); ok && entry.RegionChecks != "" {
		return entry.RegionChecks, nil
	}

	checks := s.orchestrator.CheckRegions(ctx, key)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	summary := s.formatter.FormatRegionSummary(checks)

	stored := s.cache.PutIfAbsent(key, models.Reports{
		ProductPath:  key,
		RegionChecks: summary,
		GeneratedAt:  s.now(),
		Complete:     false,
	})
	s.logger.Debug().Str("product_path", key).Bool("cached", stored).Msg("Simple availability checked")

	return summary, nil
}

// ProcessURL resolves a storefront URL to its product path and builds the
// report, bounded by the report timeout.
func (s *Service) ProcessURL(ctx context.Context, rawURL string) (models.Reports, error) {
	productPath, err := common.ProductPathFromURL(rawURL)
	if err != nil {
		return models.Reports{}, err
	}
	return s.ProcessPath(ctx, productPath)
}

// ProcessPath builds the report for an already resolved product path,
// bounded by the report timeout. Cancellation reaches the region fetches once
// no caller is left waiting on the build.
func (s *Service) ProcessPath(ctx context.Context, productPath string) (models.Reports, error) {
	reportCtx := ctx
	if s.reportTimeout > 0 {
		var cancel context.CancelFunc
		reportCtx, cancel = context.WithTimeout(ctx, s.reportTimeout)
		defer cancel()
	}

	reports, err := s.GetAvailabilityReport(reportCtx, productPath)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.logger.Warn().Str("product_path", productPath).Msg("Availability report timed out")
			return models.Reports{}, fmt.Errorf("%w after %s", ErrReportTimeout, s.reportTimeout)
		}
		return models.Reports{}, err
	}
	return reports, nil
}

// Invalidate drops the cached reports for productPath.
func (s *Service) Invalidate(productPath string) error {
	key, err := common.CanonicalProductPath(productPath)
	if err != nil {
		return err
	}
	s.cache.Invalidate(key)
	return nil
}

func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
