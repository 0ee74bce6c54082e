package conditions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condition-suggestion-engine/internal/domain"
)

func abnormal(name, value, unit, normalRange string) domain.Parameter {
	flag := true
	return domain.Parameter{
		Name:        name,
		Value:       domain.ParameterValue(value),
		Unit:        unit,
		NormalRange: normalRange,
		IsAbnormal:  &flag,
	}
}

func TestDetectCombinations_Diabetes(t *testing.T) {
	params := []domain.Parameter{
		abnormal("Fasting Glucose", "180", "mg/dL", "70-100"),
		abnormal("HbA1c", "8.2", "%", "4-5.6"),
	}

	suggestions := DetectCombinations(params)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.Equal(t, "Diabetes", s.Condition)
	assert.Equal(t, domain.ConfidenceHigh, s.Confidence)
	assert.Equal(t, domain.SourceParameterAnalysis, s.Source)
	assert.Equal(t, []string{"Fasting Glucose: 180 mg/dL", "HbA1c: 8.2 %"}, s.Evidence)
	assert.NotEmpty(t, s.Reasoning)
	require.NotNil(t, s.Severity)
	assert.Equal(t, domain.SeveritySevere, *s.Severity)
}

func TestDetectCombinations_SingleParameterIsNotEnough(t *testing.T) {
	params := []domain.Parameter{
		{Name: "Sodium", Value: "142", NormalRange: "136-145"},
	}

	assert.Empty(t, DetectCombinations(params))
	assert.Empty(t, FindCombinations(params))
}

func TestFindCombinations_SkipsParametersFlaggedNormal(t *testing.T) {
	normal := false
	params := []domain.Parameter{
		abnormal("Glucose", "180", "mg/dL", "70-100"),
		{Name: "HbA1c", Value: "5.1", Unit: "%", NormalRange: "4-5.6", IsAbnormal: &normal},
	}

	assert.Empty(t, FindCombinations(params))
}

func TestFindCombinations_CountsDistinctParameters(t *testing.T) {
	params := []domain.Parameter{
		abnormal("Glucose", "180", "mg/dL", "70-100"),
		abnormal("glucose", "190", "mg/dL", "70-100"),
	}

	assert.Empty(t, FindCombinations(params))
}

func TestFindCombinations_UnparsableValueStillMatches(t *testing.T) {
	params := []domain.Parameter{
		abnormal("Glucose", "pending", "mg/dL", "70-100"),
		abnormal("HbA1c", "8.2", "%", "4-5.6"),
	}

	matches := FindCombinations(params)
	require.Len(t, matches, 1)
	assert.Equal(t, "Diabetes", matches[0].Condition)
	assert.Len(t, matches[0].Parameters, 2)
	assert.InDelta(t, 0.5, matches[0].Severity, 1e-9)
	assert.Equal(t, domain.SeverityModerate, BucketSeverity(matches[0].Severity))
}

func TestFindCombinations_SortedBySeverity(t *testing.T) {
	params := []domain.Parameter{
		abnormal("Hemoglobin", "13.5", "g/dL", "12-16"),
		abnormal("Hematocrit", "42", "%", "36-46"),
		abnormal("Fasting Glucose", "180", "mg/dL", "70-100"),
		abnormal("HbA1c", "8.2", "%", "4-5.6"),
	}

	matches := FindCombinations(params)
	require.Len(t, matches, 2)
	assert.Equal(t, "Diabetes", matches[0].Condition)
	assert.Equal(t, "Anemia", matches[1].Condition)
	assert.InDelta(t, 0.225, matches[1].Severity, 1e-9)

	suggestions := DetectCombinations(params)
	require.Len(t, suggestions, 2)
	assert.Equal(t, domain.SeverityModerate, *suggestions[1].Severity)
}

func TestKeywordMatches(t *testing.T) {
	assert.True(t, keywordMatches("Serum Creatinine", "creatinine"))
	assert.True(t, keywordMatches("LDL", "ldl"))
	assert.True(t, keywordMatches("Iron", "serum iron"))
	assert.False(t, keywordMatches("Albumin", "glucose"))
	assert.False(t, keywordMatches("", "glucose"))
}

func TestFormatEvidence(t *testing.T) {
	assert.Equal(t, "HbA1c: 8.2 %", FormatEvidence(abnormal("HbA1c", "8.2", "%", "")))
	assert.Equal(t, "TSH: 7.1", FormatEvidence(abnormal("TSH", "7.1", "", "")))
}

func TestCombinations_ReturnsCopy(t *testing.T) {
	registry := Combinations()
	require.NotEmpty(t, registry)
	registry[0].Keywords[0] = "changed"
	registry[0].Condition = "changed"

	again := Combinations()
	assert.NotEqual(t, "changed", again[0].Keywords[0])
	assert.NotEqual(t, "changed", again[0].Condition)
}

func TestCombinations_NamesSurviveValidation(t *testing.T) {
	for _, c := range Combinations() {
		assert.True(t, IsValidConditionName(c.Condition), c.Condition)
		assert.Equal(t, c.Condition, NormalizeConditionName(c.Condition))
	}
}
