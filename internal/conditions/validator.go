package conditions

import (
	"fmt"

	"github.com/condition-suggestion-engine/internal/domain"
)

// Validation messages surfaced in ValidationResult.
const (
	ReasonInvalidName       = "Invalid condition name format"
	WarningSimilarCondition = "Similar condition already exists"
)

// ValidateCondition checks a condition name against the member context. An invalid name or a
// gender mismatch invalidates the condition; age and existing-condition overlap only add
// warnings.
func ValidateCondition(condition string, ctx domain.ValidationContext) domain.ValidationResult {
	result := domain.ValidationResult{
		IsValid:        true,
		NormalizedName: NormalizeConditionName(condition),
		Reasons:        []string{},
		Warnings:       []string{},
	}

	if !IsValidConditionName(condition) {
		result.IsValid = false
		result.Reasons = append(result.Reasons, ReasonInvalidName)
		return result
	}

	// TODO: age only warns today; decide with clinical owners whether adult-onset conditions
	// in young members should be rejected outright.
	if ctx.Age != nil && !IsAgeAppropriate(condition, *ctx.Age) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Condition is uncommon for age %d", *ctx.Age))
	}

	if ctx.Gender != "" && !IsGenderAppropriate(condition, ctx.Gender) {
		result.IsValid = false
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("Condition is not gender-appropriate for %s", ctx.Gender))
		return result
	}

	existing := domain.ExistingConditionNames(ctx.ExistingConditions)
	if len(existing) > 0 && IsDuplicate(condition, existing, DefaultDuplicateThreshold) {
		result.Warnings = append(result.Warnings, WarningSimilarCondition)
	}

	return result
}
