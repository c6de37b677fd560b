package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockscope/internal/models"
)

// blackScenario is the reference two-region case: S only in us, M only in eu,
// L sold out everywhere it is listed.
func blackScenario() []models.RegionStock {
	return []models.RegionStock{
		models.NewStockBuilder("us").
			SetBool("Black", "S", true).
			SetBool("Black", "M", false).
			Build(),
		models.NewStockBuilder("eu").
			SetBool("Black", "S", false).
			SetBool("Black", "M", true).
			SetBool("Black", "L", false).
			Build(),
	}
}

func TestAggregator_GroupByRegion(t *testing.T) {
	records := []models.RegionStock{
		models.NewStockBuilder("us").
			SetBool("White", "L", true).
			SetBool("Black", "S", true).
			Build(),
		models.NewStockBuilder("eu").
			SetBool("Black", "M", true).
			SetBool("Black", "S", false).
			SetBool("Red", "XS", false).
			Build(),
	}

	colors, byRegion, allSizes := NewAggregator().GroupByRegion(records)

	assert.Equal(t, []string{"White", "Black", "Red"}, colors)
	assert.Equal(t, []string{"S"}, byRegion["Black"]["us"])
	assert.Equal(t, []string{"M"}, byRegion["Black"]["eu"])
	assert.Equal(t, []string{"L"}, byRegion["White"]["us"])
	assert.NotContains(t, byRegion, "Red")
	assert.Equal(t, []string{"S", "M"}, allSizes["Black"])
	assert.Equal(t, []string{"XS"}, allSizes["Red"])
}

func TestAggregator_MergeStock(t *testing.T) {
	merged := NewAggregator().MergeStock(blackScenario())

	assert.Equal(t, models.StatusYes, merged["Black"]["S"])
	assert.Equal(t, models.StatusYes, merged["Black"]["M"])
	assert.Equal(t, models.StatusNo, merged["Black"]["L"])
}

func TestAggregator_MergeStock_UnknownOnly(t *testing.T) {
	records := []models.RegionStock{
		models.NewStockBuilder("us").Set("Black", "S", models.StatusUnknown).Build(),
		models.EmptyRegionStock("eu"),
	}
	merged := NewAggregator().MergeStock(records)
	assert.Equal(t, models.StatusUnknown, merged["Black"]["S"])
}

func TestAggregator_CreateReport(t *testing.T) {
	report := NewAggregator().CreateReport(blackScenario())

	assert.Equal(t, []string{"Black"}, report.Colors)
	assert.Equal(t, []string{"S", "M", "L"}, report.AllSizes["Black"])
	assert.Equal(t, []string{"S", "M"}, report.AvailableSizes("Black"))
	assert.True(t, report.InRegion("Black", "us", "S"))
	assert.False(t, report.InRegion("Black", "us", "M"))
	assert.True(t, report.InRegion("Black", "eu", "M"))
}

func TestAggregator_CreateReport_Invariants(t *testing.T) {
	records := append(blackScenario(),
		models.NewStockBuilder("uk").
			SetBool("Grey", "XL", true).
			SetBool("Black", "XS", false).
			Build(),
		models.EmptyRegionStock("ca"),
	)
	report := NewAggregator().CreateReport(records)

	for color, regions := range report.AvailabilityByRegion {
		for _, sizes := range regions {
			for _, size := range sizes {
				assert.Contains(t, report.AllSizes[color], size)
			}
		}
	}

	for color, sizes := range report.Merged {
		for size, status := range sizes {
			assert.Contains(t, report.AllSizes[color], size)

			var perRegion []models.AvailabilityStatus
			for _, r := range records {
				perRegion = append(perRegion, r.Status(color, size))
			}
			assert.Equal(t, models.CombineStatuses(perRegion...), status, "%s/%s", color, size)
		}
	}
}

func TestAggregator_FailedRegionEqualsEmptyRegion(t *testing.T) {
	agg := NewAggregator()
	withFailure := append(blackScenario(), models.EmptyRegionStock("uk"))

	assert.Equal(t, agg.CreateReport(blackScenario()), agg.CreateReport(withFailure))
}

func TestAggregator_Deterministic(t *testing.T) {
	agg := NewAggregator()
	f := NewFormatter(nil, models.HomeMarket{})

	first := agg.CreateReport(blackScenario())
	second := agg.CreateReport(blackScenario())
	require.Equal(t, first, second)
	assert.Equal(t, f.FormatPublic(first), f.FormatPublic(second))
	assert.Equal(t, f.FormatAdmin(first, []string{"us", "eu"}), f.FormatAdmin(second, []string{"us", "eu"}))
}

func TestAggregator_WithSizeKey(t *testing.T) {
	byText := func(label string) SizeSortKey { return SizeSortKey{Text: label} }

	report := NewAggregator(WithSizeKey(byText)).CreateReport(blackScenario())
	assert.Equal(t, []string{"L", "M", "S"}, report.AllSizes["Black"])

	report = NewAggregator(WithSizeKey(nil)).CreateReport(blackScenario())
	assert.Equal(t, []string{"S", "M", "L"}, report.AllSizes["Black"])
}

func TestAggregator_EmptyInput(t *testing.T) {
	report := NewAggregator().CreateReport(nil)

	assert.Empty(t, report.Colors)
	assert.Empty(t, report.AllSizes)
	assert.Empty(t, report.Merged)
}
