package models

import (
	"strings"
	"time"
)

// AvailabilityReport is the cross-region view derived from a list of RegionStock.
// Colors preserves first-seen order; the maps are keyed by color.
type AvailabilityReport struct {
	Colors []string `json:"colors"`

	// AvailabilityByRegion: color -> region code -> sizes that are YES in that region.
	AvailabilityByRegion map[string]map[string][]string `json:"availability_by_region"`

	// AllSizes: color -> every size observed in any region, sorted for display.
	AllSizes map[string][]string `json:"all_sizes"`

	// Merged: color -> size -> status folded across regions (YES > NO > UNKNOWN).
	Merged map[string]map[string]AvailabilityStatus `json:"merged"`
}

// MergedSizes returns the merged status of every size of color in display order.
func (r AvailabilityReport) MergedSizes(color string) []SizeStatus {
	sizes := r.AllSizes[color]
	out := make([]SizeStatus, 0, len(sizes))
	for _, size := range sizes {
		status, ok := r.Merged[color][size]
		if !ok {
			status = StatusUnknown
		}
		out = append(out, SizeStatus{Size: size, Status: status})
	}
	return out
}

// AvailableSizes returns the merged YES sizes of color in display order.
func (r AvailabilityReport) AvailableSizes(color string) []string {
	var out []string
	for _, s := range r.MergedSizes(color) {
		if s.Status.IsAvailable() {
			out = append(out, s.Size)
		}
	}
	return out
}

// InRegion reports whether size is YES for color in the given region.
func (r AvailabilityReport) InRegion(color, region, size string) bool {
	for _, s := range r.AvailabilityByRegion[color][region] {
		if s == size {
			return true
		}
	}
	return false
}

// Reports is the rendered, cacheable output for one product path.
type Reports struct {
	ProductPath  string    `json:"product_path"`
	RegionChecks string    `json:"region_checks"`
	Public       string    `json:"public"`
	Admin        string    `json:"admin"`
	GeneratedAt  time.Time `json:"generated_at"`
	// Complete is false for entries produced by the quick region check,
	// which only carry RegionChecks.
	Complete bool `json:"complete"`
}

const (
	publicHeader = "🎨 AVAILABLE COLORS AND SIZES:"
	adminHeader  = "👨‍🎓 Per-region breakdown:"
)

// IsBlank reports whether both public and admin texts are empty after trimming.
func (r Reports) IsBlank() bool {
	return strings.TrimSpace(r.Public) == "" && strings.TrimSpace(r.Admin) == ""
}

// PublicMessage is the user-facing message: region checks followed by the
// public color/size list.
func (r Reports) PublicMessage() string {
	return r.RegionChecks + "\n\n" + publicHeader + "\n" + r.Public
}

func (r Reports) AdminMessage() string {
	return adminHeader + "\n" + r.Admin
}

// WithPrefix returns a copy with prefix prepended to the public and admin texts.
func (r Reports) WithPrefix(prefix string) Reports {
	if prefix == "" {
		return r
	}
	r.Public = prefix + r.Public
	r.Admin = prefix + r.Admin
	return r
}

// Age is the time elapsed between GeneratedAt and now.
func (r Reports) Age(now time.Time) time.Duration {
	return now.Sub(r.GeneratedAt)
}
