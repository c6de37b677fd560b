package models

import (
	"fmt"
	"strings"
)

// AvailabilityStatus is the tri-state stock status of a single color/size pair.
// The zero value is StatusUnknown.
type AvailabilityStatus string

const (
	StatusUnknown AvailabilityStatus = "unknown"
	StatusNo      AvailabilityStatus = "no"
	StatusYes     AvailabilityStatus = "yes"
)

var (
	yesTokens = map[string]bool{
		"yes": true, "true": true, "1": true, "y": true,
		"available": true, "in_stock": true, "instock": true, "ok": true,
	}
	noTokens = map[string]bool{
		"no": true, "false": true, "0": true, "n": true,
		"unavailable": true, "out_of_stock": true, "outofstock": true,
	}
)

// StatusFromBool maps true to YES and false to NO.
func StatusFromBool(available bool) AvailabilityStatus {
	if available {
		return StatusYes
	}
	return StatusNo
}

// StatusFromString parses loose textual availability markers (case-insensitive).
// Anything unrecognised is UNKNOWN.
func StatusFromString(value string) AvailabilityStatus {
	token := strings.ToLower(strings.TrimSpace(value))
	switch {
	case yesTokens[token]:
		return StatusYes
	case noTokens[token]:
		return StatusNo
	default:
		return StatusUnknown
	}
}

// StatusFromValue converts a raw availability value as delivered by a page
// fetcher. Unexpected shapes degrade to UNKNOWN instead of failing.
func StatusFromValue(value interface{}) AvailabilityStatus {
	switch v := value.(type) {
	case nil:
		return StatusUnknown
	case AvailabilityStatus:
		return v.normalized()
	case bool:
		return StatusFromBool(v)
	case *bool:
		if v == nil {
			return StatusUnknown
		}
		return StatusFromBool(*v)
	case string:
		return StatusFromString(v)
	default:
		return StatusUnknown
	}
}

// MergeStatus returns the higher-priority status under YES > NO > UNKNOWN.
func MergeStatus(a, b AvailabilityStatus) AvailabilityStatus {
	a, b = a.normalized(), b.normalized()
	if a == StatusYes || b == StatusYes {
		return StatusYes
	}
	if a == StatusNo || b == StatusNo {
		return StatusNo
	}
	return StatusUnknown
}

// CombineStatuses folds any number of statuses with MergeStatus.
// An empty input is UNKNOWN.
func CombineStatuses(statuses ...AvailabilityStatus) AvailabilityStatus {
	result := StatusUnknown
	for _, s := range statuses {
		result = MergeStatus(result, s)
		if result == StatusYes {
			return result
		}
	}
	return result
}

// IsAvailable reports whether the status is YES.
func (s AvailabilityStatus) IsAvailable() bool {
	return s.normalized() == StatusYes
}

// Priority orders statuses for sorting, lower is better: YES 0, NO 1, UNKNOWN 2.
func (s AvailabilityStatus) Priority() int {
	switch s.normalized() {
	case StatusYes:
		return 0
	case StatusNo:
		return 1
	default:
		return 2
	}
}

// ToBool returns nil for UNKNOWN.
func (s AvailabilityStatus) ToBool() *bool {
	var b bool
	switch s.normalized() {
	case StatusYes:
		b = true
	case StatusNo:
		b = false
	default:
		return nil
	}
	return &b
}

func (s AvailabilityStatus) Emoji() string {
	switch s.normalized() {
	case StatusYes:
		return "✅"
	case StatusNo:
		return "🚫"
	default:
		return "❔"
	}
}

func (s AvailabilityStatus) String() string {
	return string(s.normalized())
}

// MarshalText implements encoding.TextMarshaler.
func (s AvailabilityStatus) MarshalText() ([]byte, error) {
	return []byte(s.normalized()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It is strict: only the
// three canonical values are accepted.
func (s *AvailabilityStatus) UnmarshalText(text []byte) error {
	switch v := AvailabilityStatus(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case StatusYes, StatusNo, StatusUnknown:
		*s = v
		return nil
	case "":
		*s = StatusUnknown
		return nil
	default:
		return fmt.Errorf("invalid availability status %q", string(text))
	}
}

// normalized folds the zero value and foreign strings into StatusUnknown.
func (s AvailabilityStatus) normalized() AvailabilityStatus {
	switch s {
	case StatusYes, StatusNo:
		return s
	default:
		return StatusUnknown
	}
}
