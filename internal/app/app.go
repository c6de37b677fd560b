package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/availability"
	"github.com/ternarybob/stockscope/internal/services/cache"
	"github.com/ternarybob/stockscope/internal/services/crawler"
	"github.com/ternarybob/stockscope/internal/services/metrics"
	"github.com/ternarybob/stockscope/internal/storage/badger"
	"go.opentelemetry.io/otel/metric"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Regions *models.RegionSet

	// Storage (nil unless storage.badger.enabled)
	DB            *badger.BadgerDB
	ReportStorage interfaces.ReportStorage

	// Services
	PageFetcher         interfaces.PageFetcher
	Metrics             *metrics.Recorder
	ReportCache         *cache.ReportCache
	PruneScheduler      *cache.PruneScheduler
	AvailabilityService *availability.Service

	chrome        *crawler.ChromeRenderer
	meterProvider metric.MeterProvider
}

type Option func(*App)

// WithPageFetcher replaces the crawler-backed page fetcher.
func WithPageFetcher(fetcher interfaces.PageFetcher) Option {
	return func(a *App) {
		a.PageFetcher = fetcher
	}
}

// WithMeterProvider sends availability metrics to provider instead of the
// global OpenTelemetry MeterProvider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(a *App) {
		a.meterProvider = provider
	}
}

// New validates cfg and wires storage, cache, fetcher and the availability service.
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	regions, err := models.NewRegionSet(cfg.RegionModels())
	if err != nil {
		return nil, fmt.Errorf("failed to build region table: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Regions: regions,
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		a.Close()
		return nil, err
	}

	logger.Info().
		Strs("regions", regions.Codes()).
		Str("cache_ttl", cfg.Availability.CacheTTL).
		Bool("persistent_cache", a.ReportStorage != nil).
		Bool("javascript", cfg.Crawler.EnableJavaScript).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	badgerCfg := a.Config.Storage.Badger
	if !badgerCfg.Enabled {
		return nil
	}

	db, err := badger.NewBadgerDB(a.Logger, &badgerCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize report storage: %w", err)
	}
	a.DB = db
	a.ReportStorage = badger.NewReportStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	recorder, err := metrics.NewRecorder(a.meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create metric instruments: %w", err)
	}
	a.Metrics = recorder

	a.ReportCache = cache.NewReportCache(cache.Options{
		TTL:      cfg.Availability.CacheTTLDuration(),
		MaxItems: cfg.Availability.MaxCacheItems,
		Storage:  a.ReportStorage,
		Metrics:  recorder,
	}, a.Logger)

	if schedule := cfg.Availability.PruneSchedule; schedule != "" {
		a.PruneScheduler = cache.NewPruneScheduler(a.ReportCache, a.Logger)
		if err := a.PruneScheduler.Start(schedule); err != nil {
			a.PruneScheduler = nil
			return fmt.Errorf("failed to start cache prune scheduler: %w", err)
		}
	}

	if a.PageFetcher == nil {
		var renderer crawler.Renderer
		if cfg.Crawler.EnableJavaScript {
			a.chrome = crawler.NewChromeRenderer(cfg.Crawler, a.Logger)
			renderer = a.chrome
		} else {
			renderer = crawler.NewHTTPRenderer(cfg.Crawler, a.Logger)
		}
		a.PageFetcher = crawler.NewFetcher(renderer, a.Logger)
	}

	home := cfg.HomeMarketModel()
	a.AvailabilityService = availability.NewService(
		availability.NewOrchestrator(a.Regions, a.PageFetcher, a.Logger),
		availability.NewAggregator(),
		availability.NewFormatter(a.Regions, home),
		a.ReportCache,
		a.Logger,
		availability.WithReportTimeout(cfg.Availability.ReportTimeoutDuration()),
		availability.WithMetrics(recorder),
	)
	return nil
}

// Close stops background work and releases the browser and database.
func (a *App) Close() error {
	if a.PruneScheduler != nil {
		a.PruneScheduler.Stop()
	}
	if a.chrome != nil {
		a.chrome.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close report storage")
			return err
		}
	}
	return nil
}
