package models

// RegionCheck is the boolean outcome of a quick availability check for one region.
// Failed marks regions whose page could not be loaded; they are never Available.
type RegionCheck struct {
	RegionCode string `json:"region_code"`
	Available  bool   `json:"available"`
	Failed     bool   `json:"failed,omitempty"`
}

// RegionChecksFromStock derives per-region checks from full stock records:
// a region is available iff any of its color/size pairs is YES.
func RegionChecksFromStock(records []RegionStock) []RegionCheck {
	checks := make([]RegionCheck, len(records))
	for i, r := range records {
		checks[i] = RegionCheck{RegionCode: r.RegionCode, Available: r.HasAvailable()}
	}
	return checks
}
