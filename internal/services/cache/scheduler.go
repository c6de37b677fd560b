package cache

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/common"
)

// DefaultPruneSchedule runs every ten minutes (seconds-enabled cron syntax).
const DefaultPruneSchedule = "0 */10 * * * *"

// PruneScheduler periodically drops expired reports from a ReportCache.
type PruneScheduler struct {
	cache  *ReportCache
	cron   *cron.Cron
	logger arbor.ILogger
}

func NewPruneScheduler(cache *ReportCache, logger arbor.ILogger) *PruneScheduler {
	return &PruneScheduler{
		cache:  cache,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// ValidateSchedule parses a seconds-enabled cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return nil
}

// Start registers the prune job and starts the cron runner.
func (s *PruneScheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return fmt.Errorf("schedule cache prune: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Report cache prune scheduler started")
	return nil
}

// Stop stops the cron runner and waits for a running prune to finish.
func (s *PruneScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Report cache prune scheduler stopped")
}

// RunNow prunes synchronously.
func (s *PruneScheduler) RunNow() {
	removed := s.cache.PruneExpired()
	stats := s.cache.Stats()
	s.logger.Debug().
		Int("removed", removed).
		Int("items", stats.Items).
		Int64("hits", stats.Hits).
		Int64("misses", stats.Misses).
		Int64("goroutines_spawned", common.GetGoroutineCount()).
		Msg("Report cache pruned")
}
