package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/stockscope/internal/models"
)

// ErrReportNotFound is returned when no stored report exists for a product path
var ErrReportNotFound = errors.New("report not found")

// ReportStorage persists rendered availability reports keyed by canonical product path.
// It backs the in-memory report cache so warm entries survive restarts.
type ReportStorage interface {
	// SaveReports inserts or replaces the reports for reports.ProductPath
	SaveReports(ctx context.Context, reports models.Reports) error

	// GetReports returns ErrReportNotFound when nothing is stored for productPath
	GetReports(ctx context.Context, productPath string) (models.Reports, error)

	// DeleteReports removes the stored reports; missing keys are not an error
	DeleteReports(ctx context.Context, productPath string) error

	// DeleteOlderThan removes every report generated before cutoff and returns the count
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of stored reports
	Count(ctx context.Context) (int, error)
}
