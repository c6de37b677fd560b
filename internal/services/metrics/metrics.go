// Package metrics holds the OpenTelemetry instruments for availability
// reports: cache hit, miss and eviction counters plus a build latency
// histogram. Instruments are created from the global MeterProvider unless one
// is supplied, so nothing is exported until the process installs a provider.
package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/ternarybob/stockscope"

const (
	CacheHitsName      = "availability_cache_hits"
	CacheMissesName    = "availability_cache_misses"
	CacheEvictionsName = "availability_cache_evictions"
	ReportSecondsName  = "availability_report_seconds"
)

// Recorder records availability metrics. A nil *Recorder records nothing.
type Recorder struct {
	cacheHits      metric.Int64Counter
	cacheMisses    metric.Int64Counter
	cacheEvictions metric.Int64Counter
	reportSeconds  metric.Float64Histogram
}

// NewRecorder creates the instruments on provider, or on the global
// MeterProvider when provider is nil.
func NewRecorder(provider metric.MeterProvider) (*Recorder, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	var (
		r   Recorder
		err error
	)
	if r.cacheHits, err = meter.Int64Counter(CacheHitsName,
		metric.WithDescription("Cache hits for availability reports")); err != nil {
		return nil, fmt.Errorf("create %s: %w", CacheHitsName, err)
	}
	if r.cacheMisses, err = meter.Int64Counter(CacheMissesName,
		metric.WithDescription("Cache misses for availability reports")); err != nil {
		return nil, fmt.Errorf("create %s: %w", CacheMissesName, err)
	}
	if r.cacheEvictions, err = meter.Int64Counter(CacheEvictionsName,
		metric.WithDescription("Entries evicted to honour the cache size bound")); err != nil {
		return nil, fmt.Errorf("create %s: %w", CacheEvictionsName, err)
	}
	if r.reportSeconds, err = meter.Float64Histogram(ReportSecondsName,
		metric.WithDescription("Time to build availability report"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create %s: %w", ReportSecondsName, err)
	}
	return &r, nil
}

func (r *Recorder) CacheHit(ctx context.Context) {
	if r == nil {
		return
	}
	r.cacheHits.Add(ctx, 1)
}

func (r *Recorder) CacheMiss(ctx context.Context) {
	if r == nil {
		return
	}
	r.cacheMisses.Add(ctx, 1)
}

func (r *Recorder) CacheEvicted(ctx context.Context, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cacheEvictions.Add(ctx, int64(n))
}

// ReportBuilt records one report build. emptyRegions is attached so a
// dashboard can separate degraded builds.
func (r *Recorder) ReportBuilt(ctx context.Context, elapsed time.Duration, emptyRegions int) {
	if r == nil {
		return
	}
	r.reportSeconds.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("degraded", emptyRegions > 0)))
}
