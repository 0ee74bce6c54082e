package conditions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condition-suggestion-engine/internal/domain"
)

func TestFilterConditions(t *testing.T) {
	severe := domain.SeverityPtr(domain.SeveritySevere)
	input := []domain.ConditionSuggestion{
		suggestion("Gout", domain.ConfidenceLow, domain.SourceReportType, 0, nil),
		suggestion("Test Report", domain.ConfidenceHigh, domain.SourceExplicitMention, 3, severe),
		suggestion("diabetes", domain.ConfidenceMedium, domain.SourceAIAnalysis, 1, nil),
		suggestion("Diabetes", domain.ConfidenceHigh, domain.SourceParameterAnalysis, 2, severe),
		suggestion("Hypertension", domain.ConfidenceHigh, domain.SourceExplicitMention, 1, nil),
	}

	out := FilterConditions(input, domain.ValidationContext{})
	require.Len(t, out, 2)

	assert.Equal(t, "Hypertension", out[0].NormalizedName)
	assert.Equal(t, 85, out[0].ValidationScore)
	assert.True(t, out[0].ShouldAutoAdd)

	// The first "diabetes" in the batch wins over the stronger later one.
	assert.Equal(t, "Diabetes", out[1].NormalizedName)
	assert.Equal(t, domain.SourceAIAnalysis, out[1].Source)
	assert.Equal(t, 55, out[1].ValidationScore)
	assert.False(t, out[1].ShouldAutoAdd)
}

func TestFilterConditions_Scenario(t *testing.T) {
	params := []domain.Parameter{
		abnormal("Fasting Glucose", "180", "mg/dL", "70-100"),
		abnormal("HbA1c", "8.2", "%", "4-5.6"),
	}

	out := FilterConditions(DetectCombinations(params), domain.ValidationContext{Age: domain.IntPtr(52), Gender: "male"})
	require.Len(t, out, 1)
	assert.Equal(t, "Diabetes", out[0].Condition)
	assert.Equal(t, 95, out[0].ValidationScore)
	assert.True(t, out[0].ShouldAutoAdd)

	separated := SeparateConditions(out)
	assert.Len(t, separated.AutoAdd, 1)
	assert.Empty(t, separated.ManualReview)
}

func TestFilterConditions_ExistingConditionOnlyWarns(t *testing.T) {
	severe := domain.SeverityPtr(domain.SeveritySevere)
	sug := suggestion("Type 2 Diabetes", domain.ConfidenceHigh, domain.SourceParameterAnalysis, 2, severe)

	without := FilterConditions([]domain.ConditionSuggestion{sug}, domain.ValidationContext{})
	with := FilterConditions([]domain.ConditionSuggestion{sug}, domain.ValidationContext{
		ExistingConditions: existing("Diabetes"),
	})

	require.Len(t, without, 1)
	require.Len(t, with, 1)
	assert.Equal(t, without[0].ValidationScore-5, with[0].ValidationScore)
}

func TestFilterConditions_IntraBatchDedupIsExact(t *testing.T) {
	severe := domain.SeverityPtr(domain.SeveritySevere)
	input := []domain.ConditionSuggestion{
		suggestion("Diabetes", domain.ConfidenceHigh, domain.SourceParameterAnalysis, 2, severe),
		suggestion("Type 2 Diabetes", domain.ConfidenceHigh, domain.SourceAIAnalysis, 2, severe),
		suggestion("Diagnosis: DIABETES", domain.ConfidenceHigh, domain.SourceAIAnalysis, 2, severe),
	}

	out := FilterConditions(input, domain.ValidationContext{})
	require.Len(t, out, 2)
	assert.Equal(t, "Diabetes", out[0].NormalizedName)
	assert.Equal(t, "Type 2 Diabetes", out[1].NormalizedName)
}

func TestFilterConditions_CustomThreshold(t *testing.T) {
	sug := suggestion("Hypothyroidism", domain.ConfidenceHigh, domain.SourceAIAnalysis, 2, nil)

	assert.False(t, FilterConditions([]domain.ConditionSuggestion{sug}, domain.ValidationContext{})[0].ShouldAutoAdd)
	assert.True(t, FilterConditions([]domain.ConditionSuggestion{sug}, domain.ValidationContext{AutoAddThreshold: 80})[0].ShouldAutoAdd)

	medium := suggestion("Hypothyroidism", domain.ConfidenceMedium, domain.SourceAIAnalysis, 4, domain.SeverityPtr(domain.SeverityMild))
	out := FilterConditions([]domain.ConditionSuggestion{medium}, domain.ValidationContext{AutoAddThreshold: 60})
	require.Len(t, out, 1)
	assert.Equal(t, 72, out[0].ValidationScore)
	assert.False(t, out[0].ShouldAutoAdd)
}

func TestFilterConditions_Properties(t *testing.T) {
	severe := domain.SeverityPtr(domain.SeveritySevere)
	moderate := domain.SeverityPtr(domain.SeverityModerate)
	input := []domain.ConditionSuggestion{
		suggestion("asthma", domain.ConfidenceLow, domain.SourceAIAnalysis, 2, nil),
		suggestion("Anemia", domain.ConfidenceHigh, domain.SourceParameterAnalysis, 3, moderate),
		suggestion("ASTHMA", domain.ConfidenceHigh, domain.SourceExplicitMention, 2, severe),
		suggestion("Condition: Gout", domain.ConfidenceMedium, domain.SourceReportType, 1, nil),
		suggestion("Gout Disorder", domain.ConfidenceHigh, domain.SourceAIAnalysis, 4, severe),
		suggestion("Blood Test", domain.ConfidenceHigh, domain.SourceExplicitMention, 4, severe),
		suggestion("Menopause", domain.ConfidenceHigh, domain.SourceAIAnalysis, 2, nil),
		suggestion("Migraine", domain.ConfidenceMedium, domain.SourceAIAnalysis, 2, moderate),
	}
	ctx := domain.ValidationContext{Age: domain.IntPtr(35), Gender: "male"}

	out := FilterConditions(input, ctx)
	require.NotEmpty(t, out)

	names := make(map[string]bool)
	for i, f := range out {
		key := strings.ToLower(f.NormalizedName)
		assert.False(t, names[key], "duplicate %s", f.NormalizedName)
		names[key] = true

		assert.GreaterOrEqual(t, f.ValidationScore, MinFilterScore)
		assert.LessOrEqual(t, f.ValidationScore, 100)
		if f.ShouldAutoAdd {
			assert.Equal(t, domain.ConfidenceHigh, f.Confidence)
			assert.GreaterOrEqual(t, f.ValidationScore, ctx.Threshold())
		}
		if i > 0 {
			assert.GreaterOrEqual(t, out[i-1].ValidationScore, f.ValidationScore)
		}
	}
	assert.False(t, names["menopause"])
	assert.False(t, names["blood test"])
}

func TestFilterConditions_Empty(t *testing.T) {
	out := FilterConditions(nil, domain.ValidationContext{})
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSeparateConditions(t *testing.T) {
	filtered := []domain.FilteredCondition{
		{NormalizedName: "Diabetes", ValidationScore: 95, ShouldAutoAdd: true},
		{NormalizedName: "Anemia", ValidationScore: 80},
		{NormalizedName: "Hypertension", ValidationScore: 90, ShouldAutoAdd: true},
		{NormalizedName: "Gout", ValidationScore: 40},
	}

	out := SeparateConditions(filtered)
	require.Len(t, out.AutoAdd, 2)
	require.Len(t, out.ManualReview, 2)
	assert.Equal(t, "Diabetes", out.AutoAdd[0].NormalizedName)
	assert.Equal(t, "Hypertension", out.AutoAdd[1].NormalizedName)
	assert.Equal(t, "Anemia", out.ManualReview[0].NormalizedName)
	assert.Equal(t, "Gout", out.ManualReview[1].NormalizedName)

	assert.Equal(t, len(filtered), len(out.AutoAdd)+len(out.ManualReview))
	for _, a := range out.AutoAdd {
		for _, m := range out.ManualReview {
			assert.NotEqual(t, a.NormalizedName, m.NormalizedName)
		}
	}

	empty := SeparateConditions(nil)
	assert.NotNil(t, empty.AutoAdd)
	assert.NotNil(t, empty.ManualReview)
}

func TestMergeSuggestions(t *testing.T) {
	oracle := []domain.ConditionSuggestion{
		{Condition: "Diabetes", Confidence: domain.ConfidenceMedium, Source: domain.SourceAIAnalysis},
	}
	local := []domain.ConditionSuggestion{
		{Condition: "diabetes", Confidence: domain.ConfidenceHigh, Source: domain.SourceParameterAnalysis},
		{Condition: "Anemia", Confidence: domain.ConfidenceHigh, Source: domain.SourceParameterAnalysis},
	}

	merged := MergeSuggestions(oracle, local)
	require.Len(t, merged, 2)
	assert.Equal(t, domain.SourceAIAnalysis, merged[0].Source)
	assert.Equal(t, "Anemia", merged[1].Condition)

	assert.Equal(t, local, MergeSuggestions(nil, local))
	assert.Empty(t, MergeSuggestions(nil, nil))
}
