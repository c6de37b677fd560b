package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/stockscope/internal/models"
)

func newTestRegions(t *testing.T, codes ...string) *models.RegionSet {
	t.Helper()
	regions := make([]models.Region, len(codes))
	for i, c := range codes {
		regions[i] = models.Region{Code: c, BaseURL: "https://" + c + ".shop.test"}
	}
	set, err := models.NewRegionSet(regions)
	require.NoError(t, err)
	return set
}

var homeUA = models.HomeMarket{Code: "ua", Enabled: true}

func TestFormatter_Flag(t *testing.T) {
	regions, err := models.NewRegionSet([]models.Region{
		{Code: "us", BaseURL: "https://us.shop.test"},
		{Code: "xx", BaseURL: "https://xx.shop.test", Flag: "🏴"},
	})
	require.NoError(t, err)
	f := NewFormatter(regions, homeUA)

	tests := map[string]string{
		"us":   "🇺🇸",
		"EU":   "🇪🇺",
		"uk":   "🇬🇧",
		"ua":   "🇺🇦",
		"jp":   "🇯🇵",
		"xx":   "🏴",
		"e1":   "E1",
		"intl": "INTL",
	}
	for code, want := range tests {
		t.Run(code, func(t *testing.T) {
			assert.Equal(t, want, f.Flag(code))
		})
	}
}

func TestFormatter_FlagFallsBackToLabel(t *testing.T) {
	regions, err := models.NewRegionSet([]models.Region{
		{Code: "us", BaseURL: "https://us.shop.test", Label: "United States"},
		{Code: "intl", BaseURL: "https://intl.shop.test", Label: "International"},
		{Code: "asia", BaseURL: "https://asia.shop.test"},
	})
	require.NoError(t, err)
	f := NewFormatter(regions, models.HomeMarket{Code: "home", Label: "Home", Enabled: true})

	assert.Equal(t, "🇺🇸", f.Flag("us"), "a flag wins over the label")
	assert.Equal(t, "International", f.Flag("intl"))
	assert.Equal(t, "Home", f.Flag("home"))
	assert.Equal(t, "ASIA", f.Flag("asia"))

	summary := f.FormatRegionSummary([]models.RegionCheck{
		{RegionCode: "us", Available: true},
		{RegionCode: "intl", Available: true},
		{RegionCode: "asia"},
	})
	assert.Equal(t, "🇺🇸 - ✅\nInternational - ✅\nASIA - ❌\nHome - ❌", summary)
}

func TestFormatter_FormatPublic(t *testing.T) {
	report := models.AvailabilityReport{
		Colors: []string{"Black", "White"},
		AllSizes: map[string][]string{
			"Black": {"S", "M", "L"},
			"White": {"M"},
		},
		Merged: map[string]map[string]models.AvailabilityStatus{
			"Black": {"S": models.StatusYes, "M": models.StatusNo, "L": models.StatusYes},
			"White": {"M": models.StatusNo},
		},
	}

	f := NewFormatter(nil, homeUA)
	assert.Equal(t, "• Black: S, L\n• White: 🚫", f.FormatPublic(report))
}

func TestFormatter_FormatPublic_Empty(t *testing.T) {
	f := NewFormatter(nil, homeUA)
	assert.Equal(t, "", f.FormatPublic(models.AvailabilityReport{}))
}

func TestFormatter_BlackScenario(t *testing.T) {
	regions := newTestRegions(t, "us", "eu")
	f := NewFormatter(regions, homeUA)
	report := NewAggregator().CreateReport(blackScenario())

	assert.Equal(t, "• Black: S, M", f.FormatPublic(report))

	assert.Equal(t, []string{"us", "eu", "ua"}, f.DisplayRegions())
	want := "• Black\n" +
		"S: 🇺🇸 - ✅ 🇪🇺 - 🚫 🇺🇦 - 🚫;\n" +
		"M: 🇺🇸 - 🚫 🇪🇺 - ✅ 🇺🇦 - 🚫;\n" +
		"L: 🇺🇸 - 🚫 🇪🇺 - 🚫 🇺🇦 - 🚫;\n"
	assert.Equal(t, want, f.FormatAdmin(report, f.DisplayRegions()))
}

func TestFormatter_FormatAdmin_BlankLineBetweenColors(t *testing.T) {
	records := []models.RegionStock{
		models.NewStockBuilder("us").
			SetBool("Black", "S", true).
			SetBool("White", "M", false).
			Build(),
	}
	f := NewFormatter(newTestRegions(t, "us"), models.HomeMarket{})
	report := NewAggregator().CreateReport(records)

	want := "• Black\nS: 🇺🇸 - ✅;\n\n• White\nM: 🇺🇸 - 🚫;\n"
	assert.Equal(t, want, f.FormatAdmin(report, f.DisplayRegions()))
}

func TestFormatter_FormatRegionSummary(t *testing.T) {
	f := NewFormatter(newTestRegions(t, "us", "eu", "uk"), homeUA)
	checks := []models.RegionCheck{
		{RegionCode: "us", Available: true},
		{RegionCode: "eu", Available: false},
		{RegionCode: "uk", Available: false, Failed: true},
	}

	assert.Equal(t, "🇺🇸 - ✅\n🇪🇺 - ❌\n🇬🇧 - ❌\n🇺🇦 - ❌", f.FormatRegionSummary(checks))
}

func TestFormatter_HomeMarketDisabled(t *testing.T) {
	f := NewFormatter(newTestRegions(t, "us"), models.HomeMarket{Code: "ua", Enabled: false})

	assert.Equal(t, "🇺🇸 - ✅", f.FormatRegionSummary([]models.RegionCheck{{RegionCode: "us", Available: true}}))
	assert.Equal(t, []string{"us"}, f.DisplayRegions())
}

func TestFormatter_TotalFailure(t *testing.T) {
	regions := newTestRegions(t, "us", "eu")
	f := NewFormatter(regions, homeUA)
	records := []models.RegionStock{models.EmptyRegionStock("us"), models.EmptyRegionStock("eu")}

	report := NewAggregator().CreateReport(records)

	assert.Equal(t, "", f.FormatPublic(report))
	assert.Equal(t, "", f.FormatAdmin(report, f.DisplayRegions()))
	assert.Equal(t, "🇺🇸 - ❌\n🇪🇺 - ❌\n🇺🇦 - ❌", f.FormatRegionSummary(models.RegionChecksFromStock(records)))
}
