package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisMode names the entry point that produced an analysis.
type AnalysisMode string

const (
	AnalysisModeParameters  AnalysisMode = "parameters"
	AnalysisModeReportTypes AnalysisMode = "report_types"
)

// AnalysisRecord is the audit trail of one analysis run. Only the outcome is stored; the lab
// parameters themselves are not.
type AnalysisRecord struct {
	ID                 uuid.UUID           `json:"id"`
	MemberID           string              `json:"member_id"`
	Mode               AnalysisMode        `json:"mode"`
	InputCount         int                 `json:"input_count"`
	RawSuggestionCount int                 `json:"raw_suggestion_count"`
	AutoAdd            []FilteredCondition `json:"auto_add"`
	ManualReview       []FilteredCondition `json:"manual_review"`
	ProcessingTimeMs   int64               `json:"processing_time_ms"`
	RequestID          string              `json:"request_id,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
}
