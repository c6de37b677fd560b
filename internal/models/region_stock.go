package models

import "strings"

// RawVariant is one color/size observation as extracted from a storefront page.
// Available is whatever the page yielded: bool, *bool, a string marker or nil.
type RawVariant struct {
	Color     string      `json:"color"`
	Size      string      `json:"size"`
	Available interface{} `json:"available"`
}

// StockEntry is a single color/size status inside a RegionStock.
type StockEntry struct {
	Color  string             `json:"color"`
	Size   string             `json:"size"`
	Status AvailabilityStatus `json:"status"`
}

// SizeStatus pairs a size label with its status.
type SizeStatus struct {
	Size   string             `json:"size"`
	Status AvailabilityStatus `json:"status"`
}

// RegionStock is an immutable per-region snapshot of color -> size -> status.
// Entry order is the order in which pairs were first observed on the page.
type RegionStock struct {
	RegionCode string
	entries    []StockEntry
	index      map[string]map[string]int
}

// EmptyRegionStock is the record used for a region whose fetch failed.
func EmptyRegionStock(regionCode string) RegionStock {
	return RegionStock{RegionCode: regionCode}
}

// NewRegionStockFromRaw builds a RegionStock from fetcher output. Variants with
// a blank color or size are skipped; malformed availability values become
// UNKNOWN. The second return value is the number of skipped variants.
func NewRegionStockFromRaw(regionCode string, variants []RawVariant) (RegionStock, int) {
	b := NewStockBuilder(regionCode)
	skipped := 0
	for _, v := range variants {
		if strings.TrimSpace(v.Color) == "" || strings.TrimSpace(v.Size) == "" {
			skipped++
			continue
		}
		b.Set(v.Color, v.Size, StatusFromValue(v.Available))
	}
	return b.Build(), skipped
}

// Entries returns a copy of the entries in observation order.
func (r RegionStock) Entries() []StockEntry {
	out := make([]StockEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Colors returns colors in first-seen order.
func (r RegionStock) Colors() []string {
	seen := make(map[string]bool, len(r.index))
	colors := make([]string, 0, len(r.index))
	for _, e := range r.entries {
		if !seen[e.Color] {
			seen[e.Color] = true
			colors = append(colors, e.Color)
		}
	}
	return colors
}

// Sizes returns the sizes recorded for color, in observation order.
func (r RegionStock) Sizes(color string) []SizeStatus {
	var out []SizeStatus
	for _, e := range r.entries {
		if e.Color == color {
			out = append(out, SizeStatus{Size: e.Size, Status: e.Status})
		}
	}
	return out
}

// Status returns UNKNOWN for pairs the region never reported.
func (r RegionStock) Status(color, size string) AvailabilityStatus {
	sizes, ok := r.index[color]
	if !ok {
		return StatusUnknown
	}
	i, ok := sizes[size]
	if !ok {
		return StatusUnknown
	}
	return r.entries[i].Status
}

func (r RegionStock) Len() int {
	return len(r.entries)
}

func (r RegionStock) IsEmpty() bool {
	return len(r.entries) == 0
}

// HasAvailable reports whether any color/size is YES in this region.
func (r RegionStock) HasAvailable() bool {
	for _, e := range r.entries {
		if e.Status.IsAvailable() {
			return true
		}
	}
	return false
}

// StockBuilder accumulates entries for a RegionStock. Setting an existing
// color/size replaces its status but keeps its original position.
type StockBuilder struct {
	regionCode string
	entries    []StockEntry
	index      map[string]map[string]int
}

func NewStockBuilder(regionCode string) *StockBuilder {
	return &StockBuilder{
		regionCode: regionCode,
		index:      make(map[string]map[string]int),
	}
}

func (b *StockBuilder) Set(color, size string, status AvailabilityStatus) *StockBuilder {
	status = StatusFromValue(status)
	sizes, ok := b.index[color]
	if !ok {
		sizes = make(map[string]int)
		b.index[color] = sizes
	}
	if i, ok := sizes[size]; ok {
		b.entries[i].Status = status
		return b
	}
	sizes[size] = len(b.entries)
	b.entries = append(b.entries, StockEntry{Color: color, Size: size, Status: status})
	return b
}

// SetBool is a convenience for fetchers that only know true/false.
func (b *StockBuilder) SetBool(color, size string, available bool) *StockBuilder {
	return b.Set(color, size, StatusFromBool(available))
}

// Build returns an immutable snapshot; the builder may keep being used.
func (b *StockBuilder) Build() RegionStock {
	entries := make([]StockEntry, len(b.entries))
	copy(entries, b.entries)
	index := make(map[string]map[string]int, len(b.index))
	for color, sizes := range b.index {
		cp := make(map[string]int, len(sizes))
		for size, i := range sizes {
			cp[size] = i
		}
		index[color] = cp
	}
	return RegionStock{RegionCode: b.regionCode, entries: entries, index: index}
}
