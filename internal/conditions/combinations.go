package conditions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/condition-suggestion-engine/internal/domain"
)

// minCombinationMatches is the number of distinct parameters a signature needs before it fires.
const minCombinationMatches = 2

// combinationRegistry is the fixed set of condition signatures. It is read-only after init.
var combinationRegistry = []domain.ParameterCombination{
	{
		Keywords:    []string{"glucose", "hba1c", "a1c", "blood sugar"},
		Condition:   "Diabetes",
		Confidence:  domain.ConfidenceHigh,
		Description: "Elevated glucose together with glycated hemoglobin indicates impaired glycemic control",
	},
	{
		Keywords:    []string{"cholesterol", "ldl", "triglycerides", "hdl"},
		Condition:   "Hyperlipidemia",
		Confidence:  domain.ConfidenceHigh,
		Description: "Abnormal lipid panel values across cholesterol fractions and triglycerides",
	},
	{
		Keywords:    []string{"hemoglobin", "rbc", "red blood cell", "hematocrit", "pcv"},
		Condition:   "Anemia",
		Confidence:  domain.ConfidenceHigh,
		Description: "Low hemoglobin with reduced red cell count or hematocrit",
	},
	{
		Keywords:    []string{"tsh", "t3", "t4", "thyroxine", "triiodothyronine"},
		Condition:   "Thyroid Dysfunction",
		Confidence:  domain.ConfidenceHigh,
		Description: "Thyroid stimulating hormone out of range together with thyroid hormones",
	},
	{
		Keywords:    []string{"sgpt", "sgot", "alanine aminotransferase", "aspartate aminotransferase", "bilirubin", "alkaline phosphatase", "ggt"},
		Condition:   "Liver Dysfunction",
		Confidence:  domain.ConfidenceMedium,
		Description: "Multiple liver enzymes or bilirubin outside the reference range",
	},
	{
		Keywords:    []string{"creatinine", "urea", "bun", "egfr", "uric acid"},
		Condition:   "Kidney Dysfunction",
		Confidence:  domain.ConfidenceMedium,
		Description: "Markers of renal filtration outside the reference range",
	},
	{
		Keywords:    []string{"sodium", "potassium", "chloride", "bicarbonate"},
		Condition:   "Electrolyte Imbalance",
		Confidence:  domain.ConfidenceMedium,
		Description: "Two or more serum electrolytes outside the reference range",
	},
	{
		Keywords:    []string{"ferritin", "serum iron", "tibc", "transferrin"},
		Condition:   "Iron Deficiency",
		Confidence:  domain.ConfidenceMedium,
		Description: "Iron stores and transport markers outside the reference range",
	},
	{
		Keywords:    []string{"wbc", "white blood cell", "neutrophil", "crp", "c-reactive protein", "esr"},
		Condition:   "Infection Or Inflammation",
		Confidence:  domain.ConfidenceLow,
		Description: "Raised white cell count with inflammatory markers",
	},
	{
		Keywords:    []string{"vitamin d", "calcium", "phosphorus", "parathyroid"},
		Condition:   "Bone Mineral Imbalance",
		Confidence:  domain.ConfidenceLow,
		Description: "Vitamin D with calcium or phosphate regulation markers out of range",
	},
}

// Combinations returns a copy of the registry.
func Combinations() []domain.ParameterCombination {
	out := make([]domain.ParameterCombination, len(combinationRegistry))
	for i, c := range combinationRegistry {
		c.Keywords = append([]string(nil), c.Keywords...)
		out[i] = c
	}
	return out
}

// keywordMatches reports case-insensitive substring containment in either direction.
func keywordMatches(parameterName, keyword string) bool {
	name := strings.ToLower(strings.TrimSpace(parameterName))
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if name == "" || kw == "" {
		return false
	}
	return strings.Contains(name, kw) || strings.Contains(kw, name)
}

// FindCombinations matches abnormal parameters against the registry. A signature fires when at
// least two distinct parameters match any of its keywords. Hits are ordered by mean severity,
// highest first; ties keep registry order.
func FindCombinations(parameters []domain.Parameter) []domain.CombinationMatch {
	var matches []domain.CombinationMatch

	for _, combo := range combinationRegistry {
		var matched []domain.Parameter
		seen := make(map[string]bool)
		for _, p := range parameters {
			key := strings.ToLower(strings.TrimSpace(p.Name))
			if !p.MayBeAbnormal() || seen[key] {
				continue
			}
			for _, kw := range combo.Keywords {
				if keywordMatches(p.Name, kw) {
					matched = append(matched, p)
					seen[key] = true
					break
				}
			}
		}

		if len(matched) < minCombinationMatches {
			continue
		}

		total := 0.0
		for _, p := range matched {
			total += CalculateSeverity(p.Value.String(), p.NormalRange)
		}

		matches = append(matches, domain.CombinationMatch{
			Condition:   combo.Condition,
			Confidence:  combo.Confidence,
			Description: combo.Description,
			Parameters:  matched,
			Severity:    total / float64(len(matched)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Severity > matches[j].Severity
	})
	return matches
}

// FormatEvidence renders a parameter as "<name>: <value> <unit>".
func FormatEvidence(p domain.Parameter) string {
	return strings.TrimSpace(fmt.Sprintf("%s: %s %s", p.Name, p.Value, p.Unit))
}

// DetectCombinations converts registry hits into parameter_analysis suggestions.
func DetectCombinations(parameters []domain.Parameter) []domain.ConditionSuggestion {
	matches := FindCombinations(parameters)
	suggestions := make([]domain.ConditionSuggestion, 0, len(matches))

	for _, m := range matches {
		evidence := make([]string, 0, len(m.Parameters))
		for _, p := range m.Parameters {
			evidence = append(evidence, FormatEvidence(p))
		}
		severity := BucketSeverity(m.Severity)

		suggestions = append(suggestions, domain.ConditionSuggestion{
			Condition:  m.Condition,
			Confidence: m.Confidence,
			Source:     domain.SourceParameterAnalysis,
			Evidence:   evidence,
			Reasoning:  m.Description,
			Severity:   &severity,
		})
	}
	return suggestions
}
