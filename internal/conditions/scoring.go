package conditions

import "github.com/condition-suggestion-engine/internal/domain"

const (
	maxEvidencePoints  = 20
	pointsPerEvidence  = 5
	pointsPerWarning   = 5
	minAutoAddEvidence = 2
	minScore           = 0
	maxScore           = 100
)

var confidencePoints = map[domain.Confidence]int{
	domain.ConfidenceHigh:   50,
	domain.ConfidenceMedium: 30,
	domain.ConfidenceLow:    10,
}

var sourcePoints = map[domain.Source]int{
	domain.SourceExplicitMention:   30,
	domain.SourceParameterAnalysis: 25,
	domain.SourceAIAnalysis:        20,
	domain.SourceReportType:        15,
}

var severityPoints = map[domain.Severity]int{
	domain.SeveritySevere:   10,
	domain.SeverityModerate: 5,
	domain.SeverityMild:     2,
}

// CalculateValidationScore combines confidence, source, evidence and severity into a 0-100 score.
// A suggestion that fails validation scores 0 whatever points it accumulated; each validation
// warning costs 5 points.
func CalculateValidationScore(s domain.ConditionSuggestion, ctx domain.ValidationContext) int {
	return scoreWithValidation(s, ValidateCondition(s.Condition, ctx))
}

func scoreWithValidation(s domain.ConditionSuggestion, v domain.ValidationResult) int {
	if !v.IsValid {
		return 0
	}

	score := confidencePoints[s.Confidence] + sourcePoints[s.Source]
	score += min(len(s.Evidence)*pointsPerEvidence, maxEvidencePoints)
	if s.Severity != nil {
		score += severityPoints[*s.Severity]
	}
	score -= pointsPerWarning * len(v.Warnings)

	return max(minScore, min(score, maxScore))
}

// ShouldAutoAdd decides whether a scored suggestion may be attached without confirmation. Only
// high-confidence suggestions at or above threshold with two pieces of evidence qualify; an
// explicit mention needs just one.
func ShouldAutoAdd(s domain.ConditionSuggestion, score, threshold int) bool {
	if s.Confidence != domain.ConfidenceHigh {
		return false
	}
	if score < threshold {
		return false
	}
	if len(s.Evidence) < minAutoAddEvidence {
		return s.Source == domain.SourceExplicitMention && len(s.Evidence) >= 1
	}
	return true
}
