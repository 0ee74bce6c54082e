// Package conditions implements the deterministic core of the condition suggestion engine:
// severity scoring, combination detection, name validation, scoring, filtering and ranking.
//
// Every function here is pure and total. Failures are encoded as zero scores, empty slices or
// false flags, never as errors or panics, so callers can chain the stages freely and run them
// concurrently for independent members.
package conditions

import (
	"math"
	"regexp"
	"strconv"

	"github.com/condition-suggestion-engine/internal/domain"
)

var (
	// nonNumericChars strips everything a numeric value string may carry besides the number.
	nonNumericChars = regexp.MustCompile(`[^0-9.\-]`)

	// rangePattern matches "<min><dash><max>" with hyphen, en-dash or em-dash.
	rangePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[-\x{2013}\x{2014}]\s*(\d+(?:\.\d+)?)`)
)

// ParseNumericValue parses a lab value after dropping every character other than digits,
// '.' and '-'. The second result is false when nothing parsable remains.
func ParseNumericValue(value string) (float64, bool) {
	cleaned := nonNumericChars.ReplaceAllString(value, "")
	if cleaned == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseNormalRange extracts min and max from a free-text reference range like "70-100".
func ParseNormalRange(normalRange string) (low, high float64, ok bool) {
	m := rangePattern.FindStringSubmatch(normalRange)
	if m == nil {
		return 0, 0, false
	}
	low, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	high, err = strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}
	return low, high, true
}

// CalculateSeverity normalizes the deviation of value from the center of normalRange into
// [0,1]. The midpoint scores 0 and either boundary scores 1; values past a boundary saturate
// at 1. Unparsable input or an empty range scores 0.
func CalculateSeverity(value, normalRange string) float64 {
	v, ok := ParseNumericValue(value)
	if !ok {
		return 0
	}
	low, high, ok := ParseNormalRange(normalRange)
	if !ok {
		return 0
	}

	width := high - low
	if width <= 0 {
		return 0
	}
	center := (low + high) / 2

	return math.Min(math.Abs(v-center)/(width/2), 1)
}

// BucketSeverity maps a numeric severity onto the mild/moderate/severe scale.
func BucketSeverity(severity float64) domain.Severity {
	switch {
	case severity > 0.5:
		return domain.SeveritySevere
	case severity > 0.2:
		return domain.SeverityModerate
	default:
		return domain.SeverityMild
	}
}
