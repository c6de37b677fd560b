package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ReportRecord is the persisted form of models.Reports.
type ReportRecord struct {
	ProductPath  string `badgerhold:"key"`
	RegionChecks string
	Public       string
	Admin        string
	GeneratedAt  time.Time `badgerhold:"index"`
	Complete     bool
}

func recordFromReports(r models.Reports) ReportRecord {
	return ReportRecord{
		ProductPath:  r.ProductPath,
		RegionChecks: r.RegionChecks,
		Public:       r.Public,
		Admin:        r.Admin,
		GeneratedAt:  r.GeneratedAt,
		Complete:     r.Complete,
	}
}

func (r ReportRecord) toReports() models.Reports {
	return models.Reports{
		ProductPath:  r.ProductPath,
		RegionChecks: r.RegionChecks,
		Public:       r.Public,
		Admin:        r.Admin,
		GeneratedAt:  r.GeneratedAt,
		Complete:     r.Complete,
	}
}

// ReportStorage implements interfaces.ReportStorage on badgerhold
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ReportStorage {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) SaveReports(ctx context.Context, reports models.Reports) error {
	if reports.ProductPath == "" {
		return fmt.Errorf("save reports: empty product path")
	}
	record := recordFromReports(reports)
	if err := s.db.Store().Upsert(record.ProductPath, &record); err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}
	return nil
}

func (s *ReportStorage) GetReports(ctx context.Context, productPath string) (models.Reports, error) {
	var record ReportRecord
	err := s.db.Store().Get(productPath, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return models.Reports{}, interfaces.ErrReportNotFound
	}
	if err != nil {
		return models.Reports{}, fmt.Errorf("failed to get reports: %w", err)
	}
	return record.toReports(), nil
}

func (s *ReportStorage) DeleteReports(ctx context.Context, productPath string) error {
	err := s.db.Store().Delete(productPath, &ReportRecord{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete reports: %w", err)
	}
	return nil
}

func (s *ReportStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var records []ReportRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("GeneratedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find expired reports: %w", err)
	}

	deleted := 0
	for _, r := range records {
		if err := s.db.Store().Delete(r.ProductPath, &ReportRecord{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			s.logger.Warn().Err(err).Str("product_path", r.ProductPath).Msg("Failed to delete expired report")
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *ReportStorage) Count(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&ReportRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return int(count), nil
}
