package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoRegions       = errors.New("no regions configured")
	ErrDuplicateRegion = errors.New("duplicate region code")
	ErrUnknownRegion   = errors.New("unknown region")
)

// Region is one storefront market.
type Region struct {
	Code     string `json:"code"`
	BaseURL  string `json:"base_url"`
	Currency string `json:"currency,omitempty"`
	Label    string `json:"label,omitempty"`
	Flag     string `json:"flag,omitempty"`
}

// HomeMarket is the synthetic market without a direct storefront. It is listed
// after the fetched regions and is always reported as unavailable.
type HomeMarket struct {
	Code    string `json:"code"`
	Label   string `json:"label,omitempty"`
	Flag    string `json:"flag,omitempty"`
	Enabled bool   `json:"enabled"`
}

// RegionSet is the ordered, read-only region table built once at startup.
type RegionSet struct {
	regions []Region
	byCode  map[string]int
}

// NewRegionSet validates and freezes regions in declaration order.
// Codes are lower-cased and must be unique and non-empty.
func NewRegionSet(regions []Region) (*RegionSet, error) {
	if len(regions) == 0 {
		return nil, ErrNoRegions
	}

	set := &RegionSet{
		regions: make([]Region, 0, len(regions)),
		byCode:  make(map[string]int, len(regions)),
	}
	for i, r := range regions {
		code := strings.ToLower(strings.TrimSpace(r.Code))
		if code == "" {
			return nil, fmt.Errorf("region %d: empty code", i)
		}
		if _, exists := set.byCode[code]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegion, code)
		}
		r.Code = code
		r.BaseURL = strings.TrimRight(strings.TrimSpace(r.BaseURL), "/")
		set.byCode[code] = len(set.regions)
		set.regions = append(set.regions, r)
	}
	return set, nil
}

// Regions returns a copy of the regions in declaration order.
func (s *RegionSet) Regions() []Region {
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Codes returns region codes in declaration order.
func (s *RegionSet) Codes() []string {
	codes := make([]string, len(s.regions))
	for i, r := range s.regions {
		codes[i] = r.Code
	}
	return codes
}

func (s *RegionSet) Get(code string) (Region, bool) {
	i, ok := s.byCode[strings.ToLower(code)]
	if !ok {
		return Region{}, false
	}
	return s.regions[i], true
}

func (s *RegionSet) Len() int {
	return len(s.regions)
}

// ProductURL joins the region's base URL with a canonical product path.
func (s *RegionSet) ProductURL(code, productPath string) (string, error) {
	r, ok := s.Get(code)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRegion, code)
	}
	if r.BaseURL == "" {
		return "", fmt.Errorf("region %s: empty base url", code)
	}
	if !strings.HasPrefix(productPath, "/") {
		productPath = "/" + productPath
	}
	return r.BaseURL + productPath, nil
}
