package availability

import (
	"strings"
	"unicode"

	"github.com/ternarybob/stockscope/internal/models"
)

const (
	markYes         = "✅"
	markNo          = "🚫"
	markRegionNo    = "❌"
	markNoneInColor = "🚫"
)

// builtinFlags covers codes whose flag is not the regional-indicator pair of
// the code itself (eu, uk) plus the common markets.
var builtinFlags = map[string]string{
	"us": "🇺🇸",
	"eu": "🇪🇺",
	"uk": "🇬🇧",
	"ua": "🇺🇦",
	"ca": "🇨🇦",
	"au": "🇦🇺",
}

// Formatter renders reports as plain text. Region flags come from the region
// table, then the built-in table, then are derived from the code. Codes with
// no flag fall back to their configured label.
type Formatter struct {
	regions *models.RegionSet
	home    models.HomeMarket
	flags   map[string]string
	labels  map[string]string
}

func NewFormatter(regions *models.RegionSet, home models.HomeMarket) *Formatter {
	flags := make(map[string]string)
	labels := make(map[string]string)
	if regions != nil {
		for _, r := range regions.Regions() {
			code := strings.ToLower(r.Code)
			if r.Flag != "" {
				flags[code] = r.Flag
			}
			if label := strings.TrimSpace(r.Label); label != "" {
				labels[code] = label
			}
		}
	}
	home.Code = strings.ToLower(strings.TrimSpace(home.Code))
	if home.Code != "" {
		if home.Flag != "" {
			flags[home.Code] = home.Flag
		}
		if label := strings.TrimSpace(home.Label); label != "" {
			labels[home.Code] = label
		}
	}
	return &Formatter{regions: regions, home: home, flags: flags, labels: labels}
}

// Flag returns a display label for a region code. Unknown two-letter codes
// become regional-indicator flags; anything else shows its configured label,
// or the upper-cased code when it has none.
func (f *Formatter) Flag(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if flag, ok := f.flags[code]; ok {
		return flag
	}
	if flag, ok := builtinFlags[code]; ok {
		return flag
	}
	if len(code) == 2 && isASCIILetter(rune(code[0])) && isASCIILetter(rune(code[1])) {
		var b strings.Builder
		for _, ch := range strings.ToUpper(code) {
			b.WriteRune(0x1F1E6 + (ch - 'A'))
		}
		return b.String()
	}
	if label, ok := f.labels[code]; ok {
		return label
	}
	return strings.ToUpper(code)
}

// DisplayRegions returns the admin grid columns: configured regions in
// declaration order followed by the home market when enabled.
func (f *Formatter) DisplayRegions() []string {
	var codes []string
	if f.regions != nil {
		codes = f.regions.Codes()
	}
	if f.home.Enabled && f.home.Code != "" {
		codes = append(codes, f.home.Code)
	}
	return codes
}

// FormatPublic renders one line per color with its merged YES sizes.
func (f *Formatter) FormatPublic(report models.AvailabilityReport) string {
	lines := make([]string, 0, len(report.Colors))
	for _, color := range report.Colors {
		available := report.AvailableSizes(color)
		if len(available) == 0 {
			lines = append(lines, "• "+color+": "+markNoneInColor)
			continue
		}
		lines = append(lines, "• "+color+": "+strings.Join(available, ", "))
	}
	return strings.Join(lines, "\n")
}

// FormatAdmin renders a color block with one line per size and a ✅/🚫 per
// region. A size is ✅ for a region iff the region reported it as YES; the
// home market never has stock.
func (f *Formatter) FormatAdmin(report models.AvailabilityReport, regionCodes []string) string {
	var lines []string
	for _, color := range report.Colors {
		lines = append(lines, "• "+color)
		for _, size := range report.AllSizes[color] {
			parts := []string{size + ":"}
			for _, region := range regionCodes {
				mark := markNo
				if report.InRegion(color, region, size) {
					mark = markYes
				}
				parts = append(parts, f.Flag(region)+" - "+mark)
			}
			lines = append(lines, strings.Join(parts, " ")+";")
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// FormatRegionSummary renders one line per region in the given order followed
// by the home market line.
func (f *Formatter) FormatRegionSummary(checks []models.RegionCheck) string {
	lines := make([]string, 0, len(checks)+1)
	for _, c := range checks {
		mark := markRegionNo
		if c.Available {
			mark = markYes
		}
		lines = append(lines, f.Flag(c.RegionCode)+" - "+mark)
	}
	if f.home.Enabled && f.home.Code != "" {
		lines = append(lines, f.Flag(f.home.Code)+" - "+markRegionNo)
	}
	return strings.Join(lines, "\n")
}

func isASCIILetter(r rune) bool {
	return r < unicode.MaxASCII && unicode.IsLetter(r)
}
