package availability

import (
	"github.com/ternarybob/stockscope/internal/models"
)

// Aggregator combines per-region stock records into an AvailabilityReport.
// It performs no I/O and is safe for concurrent use.
type Aggregator struct {
	sizeKey SizeKey
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithSizeKey replaces the display ordering of sizes. A nil key keeps the default.
func WithSizeKey(key SizeKey) AggregatorOption {
	return func(a *Aggregator) {
		if key != nil {
			a.sizeKey = key
		}
	}
}

func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{sizeKey: DefaultSizeKey}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GroupByRegion walks records in input order and returns the first-seen color
// order, the YES sizes per color and region, and the dedup'd union of sizes per
// color in first-seen order (unsorted).
func (a *Aggregator) GroupByRegion(records []models.RegionStock) ([]string, map[string]map[string][]string, map[string][]string) {
	var colors []string
	byRegion := make(map[string]map[string][]string)
	allSizes := make(map[string][]string)
	seen := make(map[string]map[string]bool)

	for _, record := range records {
		for _, e := range record.Entries() {
			sizes, ok := seen[e.Color]
			if !ok {
				sizes = make(map[string]bool)
				seen[e.Color] = sizes
				colors = append(colors, e.Color)
			}
			if !sizes[e.Size] {
				sizes[e.Size] = true
				allSizes[e.Color] = append(allSizes[e.Color], e.Size)
			}

			if e.Status.IsAvailable() {
				regions, ok := byRegion[e.Color]
				if !ok {
					regions = make(map[string][]string)
					byRegion[e.Color] = regions
				}
				regions[record.RegionCode] = append(regions[record.RegionCode], e.Size)
			}
		}
	}
	return colors, byRegion, allSizes
}

// MergeStock folds every region's status for each observed color/size with
// MergeStatus. Regions that never reported a pair count as UNKNOWN, so a pair
// is YES iff some region says YES, else NO iff some region says NO.
func (a *Aggregator) MergeStock(records []models.RegionStock) map[string]map[string]models.AvailabilityStatus {
	merged := make(map[string]map[string]models.AvailabilityStatus)
	for _, record := range records {
		for _, e := range record.Entries() {
			sizes, ok := merged[e.Color]
			if !ok {
				sizes = make(map[string]models.AvailabilityStatus)
				merged[e.Color] = sizes
			}
			current, ok := sizes[e.Size]
			if !ok {
				current = models.StatusUnknown
			}
			sizes[e.Size] = models.MergeStatus(current, e.Status)
		}
	}
	return merged
}

// CreateReport groups, merges and finally sorts each color's size list for display.
func (a *Aggregator) CreateReport(records []models.RegionStock) models.AvailabilityReport {
	colors, byRegion, allSizes := a.GroupByRegion(records)
	merged := a.MergeStock(records)

	for color, sizes := range allSizes {
		allSizes[color] = SortSizes(sizes, a.sizeKey)
	}

	return models.AvailabilityReport{
		Colors:               colors,
		AvailabilityByRegion: byRegion,
		AllSizes:             allSizes,
		Merged:               merged,
	}
}
