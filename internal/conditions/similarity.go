package conditions

import "strings"

// DefaultDuplicateThreshold is the similarity at which a candidate counts as already present.
const DefaultDuplicateThreshold = 0.7

// containmentSimilarity is the score for one name containing the other.
const containmentSimilarity = 0.8

func similarityKey(name string) string {
	return strings.ToLower(NormalizeConditionName(name))
}

// CalculateSimilarity scores two condition names in [0,1]: 1 for identical normalized names,
// 0.8 when one contains the other, otherwise the Jaccard index of their word sets.
func CalculateSimilarity(a, b string) float64 {
	na, nb := similarityKey(a), similarityKey(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return containmentSimilarity
	}

	setA := wordSet(na)
	setB := wordSet(nb)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// IsDuplicate reports whether candidate is at least threshold-similar to any existing condition.
func IsDuplicate(candidate string, existing []string, threshold float64) bool {
	for _, e := range existing {
		if CalculateSimilarity(candidate, e) >= threshold {
			return true
		}
	}
	return false
}
