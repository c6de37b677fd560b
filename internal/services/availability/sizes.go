package availability

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Size tiers: letter sizes first, then numeric sizes, then everything else.
const (
	tierLetter = iota
	tierNumeric
	tierOther
)

// letterSizes is the canonical letter-size order. XXXS and XXXXL are extensions.
var letterSizes = []string{"XXXS", "XXS", "XS", "S", "M", "L", "XL", "XXL", "XXXL", "XXXXL"}

var letterIndex = func() map[string]int {
	m := make(map[string]int, len(letterSizes))
	for i, s := range letterSizes {
		m[s] = i
	}
	return m
}()

// SizeSortKey orders size labels for display.
type SizeSortKey struct {
	Tier   int
	Index  int
	Number float64
	Text   string
}

// Less compares two keys: tier, then table index / numeric value, then text.
func (k SizeSortKey) Less(other SizeSortKey) bool {
	if k.Tier != other.Tier {
		return k.Tier < other.Tier
	}
	switch k.Tier {
	case tierLetter:
		if k.Index != other.Index {
			return k.Index < other.Index
		}
	case tierNumeric:
		if k.Number != other.Number {
			return k.Number < other.Number
		}
	}
	return k.Text < other.Text
}

// SizeKey maps a size label to its sort key. It is the injectable ordering strategy.
type SizeKey func(label string) SizeSortKey

// numericSize is a plain decimal size. NaN, Inf, exponents and hex floats
// are free text even though strconv would parse them.
var numericSize = regexp.MustCompile(`^\d+([.,]\d+)?$`)

// DefaultSizeKey classifies a label as a known letter size, a number
// ("42.5" and "42,5" are equal) or free text.
func DefaultSizeKey(label string) SizeSortKey {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return SizeSortKey{Tier: tierOther, Text: ""}
	}

	if i, ok := letterIndex[NormalizeSizeToken(trimmed)]; ok {
		return SizeSortKey{Tier: tierLetter, Index: i, Text: trimmed}
	}

	if numericSize.MatchString(trimmed) {
		if n, err := strconv.ParseFloat(strings.Replace(trimmed, ",", ".", 1), 64); err == nil {
			return SizeSortKey{Tier: tierNumeric, Number: n, Text: trimmed}
		}
	}

	return SizeSortKey{Tier: tierOther, Text: trimmed}
}

// SortSizes returns a sorted copy of sizes. The sort is stable so labels with
// equal keys keep their first-seen order. A nil key uses DefaultSizeKey.
func SortSizes(sizes []string, key SizeKey) []string {
	if key == nil {
		key = DefaultSizeKey
	}
	keys := make([]SizeSortKey, len(sizes))
	for i, s := range sizes {
		keys[i] = key(s)
	}
	idx := make([]int, len(sizes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Less(keys[idx[b]])
	})
	out := make([]string, len(sizes))
	for i, j := range idx {
		out[i] = sizes[j]
	}
	return out
}

var (
	multiXL      = regexp.MustCompile(`^([2-4])xl$`)
	xTail        = regexp.MustCompile(`^(x{1,4})(s|l)$`)
	xWordTail    = regexp.MustCompile(`^(x{0,4})(small|large)$`)
	nonSizeRunes = regexp.MustCompile(`[^0-9a-z]`)
)

// NormalizeSizeToken maps storefront size spellings onto canonical labels:
// "XSmall" -> "XS", "2XL" -> "XXL", "medium" -> "M", Cyrillic "х" -> "X".
// Numbers and unrecognised tokens are returned trimmed and otherwise unchanged.
func NormalizeSizeToken(raw string) string {
	trimmed := strings.TrimSpace(raw)
	cleaned := strings.ToLower(trimmed)
	cleaned = strings.ReplaceAll(cleaned, "х", "x")
	cleaned = nonSizeRunes.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return trimmed
	}

	switch cleaned {
	case "s", "m", "l":
		return strings.ToUpper(cleaned)
	case "medium":
		return "M"
	}

	if m := multiXL.FindStringSubmatch(cleaned); m != nil {
		n, _ := strconv.Atoi(m[1])
		return strings.Repeat("X", n) + "L"
	}
	if m := xTail.FindStringSubmatch(cleaned); m != nil {
		return strings.ToUpper(m[1] + m[2])
	}
	if m := xWordTail.FindStringSubmatch(cleaned); m != nil {
		tail := "S"
		if m[2] == "large" {
			tail = "L"
		}
		return strings.ToUpper(m[1]) + tail
	}
	return trimmed
}
