package conditions

import "strings"

// adultOnsetAge is the age under which adult-onset conditions raise a warning.
const adultOnsetAge = 40

var (
	adultOnsetKeywords = []string{"menopause", "andropause", "prostate", "osteoporosis"}
	femaleOnlyKeywords = []string{"pcos", "endometriosis", "fibroids", "menopause", "pregnancy"}
	maleOnlyKeywords   = []string{"prostate", "andropause", "testicular"}
)

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsAgeAppropriate reports false for adult-onset conditions in members younger than 40. It is a
// soft check: callers attach a warning and never invalidate on it.
func IsAgeAppropriate(condition string, age int) bool {
	if age >= adultOnsetAge {
		return true
	}
	return !containsAny(condition, adultOnsetKeywords)
}

// IsGenderAppropriate reports false when a sex-specific condition is attached to a member of
// another gender. Unrecognized genders count as neither female nor male.
func IsGenderAppropriate(condition, gender string) bool {
	g := normalizeGender(gender)
	if g != "female" && containsAny(condition, femaleOnlyKeywords) {
		return false
	}
	if g != "male" && containsAny(condition, maleOnlyKeywords) {
		return false
	}
	return true
}

func normalizeGender(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "female", "f", "woman":
		return "female"
	case "male", "m", "man":
		return "male"
	default:
		return strings.ToLower(strings.TrimSpace(gender))
	}
}
