package conditions

import (
	"sort"
	"strings"

	"github.com/condition-suggestion-engine/internal/domain"
)

// MinFilterScore is the lowest validation score a suggestion can carry and still be kept.
const MinFilterScore = 30

// FilterConditions validates, scores and deduplicates raw suggestions and returns the survivors
// ordered by validation score, highest first. Within a batch the first suggestion for a given
// normalized name wins; later ones with the exact same name (ignoring case) are dropped.
// Similarity against the member's existing conditions is handled by validation as a warning.
func FilterConditions(suggestions []domain.ConditionSuggestion, ctx domain.ValidationContext) []domain.FilteredCondition {
	threshold := ctx.Threshold()
	filtered := make([]domain.FilteredCondition, 0, len(suggestions))
	seen := make(map[string]bool)

	for _, s := range suggestions {
		validation := ValidateCondition(s.Condition, ctx)
		if !validation.IsValid {
			continue
		}

		score := scoreWithValidation(s, validation)
		if score < MinFilterScore {
			continue
		}

		key := strings.ToLower(validation.NormalizedName)
		if seen[key] {
			continue
		}
		seen[key] = true

		filtered = append(filtered, domain.FilteredCondition{
			ConditionSuggestion: s,
			NormalizedName:      validation.NormalizedName,
			ValidationScore:     score,
			ShouldAutoAdd:       ShouldAutoAdd(s, score, threshold),
		})
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].ValidationScore > filtered[j].ValidationScore
	})
	return filtered
}

// SeparateConditions partitions filtered conditions into the auto-add and manual-review sets,
// preserving order within each.
func SeparateConditions(filtered []domain.FilteredCondition) domain.SeparatedConditions {
	out := domain.SeparatedConditions{
		AutoAdd:      []domain.FilteredCondition{},
		ManualReview: []domain.FilteredCondition{},
	}
	for _, f := range filtered {
		if f.ShouldAutoAdd {
			out.AutoAdd = append(out.AutoAdd, f)
		} else {
			out.ManualReview = append(out.ManualReview, f)
		}
	}
	return out
}

// MergeSuggestions keeps every oracle suggestion and appends local ones whose condition name is
// not already claimed by the oracle, compared case-insensitively.
func MergeSuggestions(oracle, local []domain.ConditionSuggestion) []domain.ConditionSuggestion {
	merged := make([]domain.ConditionSuggestion, 0, len(oracle)+len(local))
	claimed := make(map[string]bool, len(oracle))

	for _, s := range oracle {
		merged = append(merged, s)
		claimed[strings.ToLower(strings.TrimSpace(s.Condition))] = true
	}
	for _, s := range local {
		if claimed[strings.ToLower(strings.TrimSpace(s.Condition))] {
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
