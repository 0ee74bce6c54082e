package conditions

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minConditionNameLength = 3

var (
	leadingLabelPattern  = regexp.MustCompile(`(?i)^(diagnosis|diagnosed|condition|disease|disorder|syndrome)\s*:\s*`)
	trailingLabelPattern = regexp.MustCompile(`(?i)\s+(diagnosis|diagnosed|condition|disease|disorder|syndrome)$`)

	// measurementPattern flags lab-value strings such as "180 mg" or "5.6mmol".
	measurementPattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*(mg|ml|g|kg|cm|mm|unit|units|iu|mmol|mol)\b`)
)

// excludedTerms mark a string as a report artifact rather than a condition. They match anywhere
// in the name, so plural and derived forms are covered by the stem.
var excludedTerms = []string{
	"test", "report", "lab", "normal", "range",
	"parameter", "procedure", "screening",
	"result", "panel", "checkup", "specimen",
}

// genericDescriptors are rejected when they make up the whole name.
var genericDescriptors = map[string]bool{
	"abnormal":   true,
	"elevated":   true,
	"decreased":  true,
	"increased":  true,
	"high":       true,
	"low":        true,
	"positive":   true,
	"negative":   true,
	"borderline": true,
}

// NormalizeConditionName canonicalizes a free-text condition name: label prefixes such as
// "Diagnosis:" and trailing bare labels such as "Disorder" are removed, whitespace is collapsed
// and every word is title-cased. Applying it twice yields the same result.
func NormalizeConditionName(name string) string {
	s := strings.TrimSpace(name)

	for {
		stripped := strings.TrimSpace(leadingLabelPattern.ReplaceAllString(s, ""))
		stripped = strings.TrimSpace(trailingLabelPattern.ReplaceAllString(stripped, ""))
		if stripped == s {
			break
		}
		s = stripped
	}

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// IsValidConditionName rejects names that are too short, contain report vocabulary, look like a
// measured lab value, or consist of a bare descriptor such as "Elevated".
func IsValidConditionName(name string) bool {
	normalized := NormalizeConditionName(name)
	if utf8.RuneCountInString(normalized) < minConditionNameLength {
		return false
	}

	lower := strings.ToLower(normalized)
	for _, term := range excludedTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}

	if measurementPattern.MatchString(normalized) {
		return false
	}

	return !genericDescriptors[lower]
}
