// Package service orchestrates a full condition analysis: local combination detection, the
// advisory oracle, validation and scoring, and the auto-add split. It also records member
// decisions and an audit trail when those stores are configured.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/condition-suggestion-engine/internal/conditions"
	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/feedback"
)

// ErrFeedbackDisabled is returned by feedback operations when no store is configured.
var ErrFeedbackDisabled = errors.New("feedback store is not configured")

// AnalysisRecorder persists the outcome of an analysis.
type AnalysisRecorder interface {
	Create(ctx context.Context, record *domain.AnalysisRecord) error
}

// AnalyzeParametersRequest asks for suggestions derived from lab parameters.
type AnalyzeParametersRequest struct {
	Parameters         []domain.Parameter         `json:"parameters"`
	Member             domain.MemberInfo          `json:"member"`
	ExistingConditions []domain.ExistingCondition `json:"existingConditions,omitempty"`
	AutoAddThreshold   int                        `json:"autoAddThreshold,omitempty"`
	SkipOracle         bool                       `json:"skipOracle,omitempty"`
	RequestID          string                     `json:"-"`
}

// AnalyzeReportTypesRequest asks for suggestions derived from report-type labels. Parameters
// are optional and, when present, also run through the combination detector.
type AnalyzeReportTypesRequest struct {
	ReportTypes        []string                   `json:"reportTypes"`
	Parameters         []domain.Parameter         `json:"parameters,omitempty"`
	Member             domain.MemberInfo          `json:"member"`
	ExistingConditions []domain.ExistingCondition `json:"existingConditions,omitempty"`
	AutoAddThreshold   int                        `json:"autoAddThreshold,omitempty"`
	SkipOracle         bool                       `json:"skipOracle,omitempty"`
	RequestID          string                     `json:"-"`
}

// AnalysisResult is the outcome of one analysis.
type AnalysisResult struct {
	AutoAdd              []domain.FilteredCondition   `json:"autoAdd"`
	ManualReview         []domain.FilteredCondition   `json:"manualReview"`
	RawSuggestions       []domain.ConditionSuggestion `json:"rawSuggestions"`
	OracleSuggestions    []domain.ConditionSuggestion `json:"oracleSuggestions"`
	DetectedCombinations []domain.ConditionSuggestion `json:"detectedCombinations"`
	ProcessingTimeMs     int64                        `json:"processingTimeMs"`
}

// ValidationOutcome is a validation result together with the score and auto-add decision the
// suggestion would receive.
type ValidationOutcome struct {
	domain.ValidationResult
	ValidationScore int  `json:"validationScore"`
	ShouldAutoAdd   bool `json:"shouldAutoAdd"`
}

// SuggestionService runs condition analyses. The oracle, feedback store and recorder are all
// optional.
type SuggestionService struct {
	logger    *logrus.Logger
	oracle    domain.ConditionOracle
	feedback  feedback.Store
	recorder  AnalysisRecorder
	threshold int
}

// Option configures a SuggestionService.
type Option func(*SuggestionService)

// WithOracle attaches the advisory oracle.
func WithOracle(oracle domain.ConditionOracle) Option {
	return func(s *SuggestionService) { s.oracle = oracle }
}

// WithFeedbackStore attaches the store of member decisions.
func WithFeedbackStore(store feedback.Store) Option {
	return func(s *SuggestionService) { s.feedback = store }
}

// WithRecorder attaches the analysis audit log.
func WithRecorder(recorder AnalysisRecorder) Option {
	return func(s *SuggestionService) { s.recorder = recorder }
}

// WithAutoAddThreshold overrides the default auto-add threshold for requests that do not set one.
func WithAutoAddThreshold(threshold int) Option {
	return func(s *SuggestionService) { s.threshold = threshold }
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(logger *logrus.Logger, opts ...Option) *SuggestionService {
	if logger == nil {
		logger = logrus.New()
	}
	s := &SuggestionService{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detect runs the combination detector alone.
func (s *SuggestionService) Detect(parameters []domain.Parameter) []domain.ConditionSuggestion {
	return conditions.DetectCombinations(parameters)
}

// Validate validates and scores a single suggestion.
func (s *SuggestionService) Validate(suggestion domain.ConditionSuggestion, vctx domain.ValidationContext) ValidationOutcome {
	vctx.AutoAddThreshold = s.effectiveThreshold(vctx.AutoAddThreshold)
	score := conditions.CalculateValidationScore(suggestion, vctx)
	return ValidationOutcome{
		ValidationResult: conditions.ValidateCondition(suggestion.Condition, vctx),
		ValidationScore:  score,
		ShouldAutoAdd:    conditions.ShouldAutoAdd(suggestion, score, vctx.Threshold()),
	}
}

// Filter validates, scores, deduplicates and ranks a batch of suggestions.
func (s *SuggestionService) Filter(suggestions []domain.ConditionSuggestion, vctx domain.ValidationContext) []domain.FilteredCondition {
	vctx.AutoAddThreshold = s.effectiveThreshold(vctx.AutoAddThreshold)
	return conditions.FilterConditions(suggestions, vctx)
}

// AnalyzeParameters detects combinations in the parameters, consults the oracle and returns the
// filtered suggestions split by the auto-add decision.
func (s *SuggestionService) AnalyzeParameters(ctx context.Context, req AnalyzeParametersRequest) (*AnalysisResult, error) {
	start := time.Now()
	existing := s.existingConditions(ctx, req.Member.ID, req.ExistingConditions)

	detected := conditions.DetectCombinations(req.Parameters)

	oracleSuggestions := []domain.ConditionSuggestion{}
	if s.oracle != nil && !req.SkipOracle {
		oracleSuggestions = s.oracle.QueryForParameters(ctx, req.Parameters, req.Member, domain.ExistingConditionNames(existing))
	}

	result := s.finish(start, detected, oracleSuggestions, req.Member, existing, req.AutoAddThreshold)
	s.record(ctx, domain.AnalysisModeParameters, req.Member.ID, req.RequestID, len(req.Parameters), result)

	s.logger.WithFields(logrus.Fields{
		"member_id":       req.Member.ID,
		"parameters":      len(req.Parameters),
		"detected":        len(detected),
		"oracle":          len(oracleSuggestions),
		"auto_add":        len(result.AutoAdd),
		"manual_review":   len(result.ManualReview),
		"processing_time": result.ProcessingTimeMs,
	}).Info("Parameter analysis completed")

	return result, nil
}

// AnalyzeReportTypes consults the oracle about the report types, runs the detector over any
// supplied parameters and returns the filtered suggestions split by the auto-add decision.
func (s *SuggestionService) AnalyzeReportTypes(ctx context.Context, req AnalyzeReportTypesRequest) (*AnalysisResult, error) {
	start := time.Now()
	existing := s.existingConditions(ctx, req.Member.ID, req.ExistingConditions)

	detected := conditions.DetectCombinations(req.Parameters)

	oracleSuggestions := []domain.ConditionSuggestion{}
	if s.oracle != nil && !req.SkipOracle {
		oracleSuggestions = s.oracle.QueryForReportTypes(ctx, req.ReportTypes, req.Member, domain.ExistingConditionNames(existing))
	}

	result := s.finish(start, detected, oracleSuggestions, req.Member, existing, req.AutoAddThreshold)
	s.record(ctx, domain.AnalysisModeReportTypes, req.Member.ID, req.RequestID, len(req.ReportTypes), result)

	s.logger.WithFields(logrus.Fields{
		"member_id":       req.Member.ID,
		"report_types":    len(req.ReportTypes),
		"detected":        len(detected),
		"oracle":          len(oracleSuggestions),
		"auto_add":        len(result.AutoAdd),
		"manual_review":   len(result.ManualReview),
		"processing_time": result.ProcessingTimeMs,
	}).Info("Report type analysis completed")

	return result, nil
}

func (s *SuggestionService) finish(
	start time.Time,
	detected, oracleSuggestions []domain.ConditionSuggestion,
	member domain.MemberInfo,
	existing []domain.ExistingCondition,
	threshold int,
) *AnalysisResult {
	if oracleSuggestions == nil {
		oracleSuggestions = []domain.ConditionSuggestion{}
	}
	merged := conditions.MergeSuggestions(oracleSuggestions, detected)

	vctx := domain.ValidationContext{
		Age:                member.Age,
		Gender:             member.Gender,
		ExistingConditions: existing,
		AutoAddThreshold:   s.effectiveThreshold(threshold),
	}
	separated := conditions.SeparateConditions(conditions.FilterConditions(merged, vctx))

	return &AnalysisResult{
		AutoAdd:              separated.AutoAdd,
		ManualReview:         separated.ManualReview,
		RawSuggestions:       merged,
		OracleSuggestions:    oracleSuggestions,
		DetectedCombinations: detected,
		ProcessingTimeMs:     time.Since(start).Milliseconds(),
	}
}

func (s *SuggestionService) effectiveThreshold(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.threshold
}

// existingConditions extends the caller's list with conditions the member previously accepted.
func (s *SuggestionService) existingConditions(ctx context.Context, memberID string, supplied []domain.ExistingCondition) []domain.ExistingCondition {
	existing := append([]domain.ExistingCondition{}, supplied...)
	if s.feedback == nil || memberID == "" {
		return existing
	}

	entries, err := s.feedback.ListByMember(ctx, memberID)
	if err != nil {
		s.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to load member feedback, continuing without it")
		return existing
	}

	known := make(map[string]bool, len(existing))
	for _, e := range existing {
		known[strings.ToLower(strings.TrimSpace(e.Condition))] = true
	}
	for _, name := range feedback.AcceptedConditions(entries) {
		key := strings.ToLower(strings.TrimSpace(name))
		if known[key] {
			continue
		}
		known[key] = true
		existing = append(existing, domain.ExistingCondition{Condition: name})
	}
	return existing
}

func (s *SuggestionService) record(ctx context.Context, mode domain.AnalysisMode, memberID, requestID string, inputCount int, result *AnalysisResult) {
	if s.recorder == nil {
		return
	}
	record := &domain.AnalysisRecord{
		MemberID:           memberID,
		Mode:               mode,
		InputCount:         inputCount,
		RawSuggestionCount: len(result.RawSuggestions),
		AutoAdd:            result.AutoAdd,
		ManualReview:       result.ManualReview,
		ProcessingTimeMs:   result.ProcessingTimeMs,
		RequestID:          requestID,
	}
	if err := s.recorder.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithField("member_id", memberID).Warn("Failed to record analysis")
	}
}

// RecordFeedback stores a member's decision about a suggested condition. The normalized name is
// always derived from the condition.
func (s *SuggestionService) RecordFeedback(ctx context.Context, fb *feedback.Feedback) error {
	if s.feedback == nil {
		return ErrFeedbackDisabled
	}
	fb.NormalizedName = conditions.NormalizeConditionName(fb.Condition)
	if err := s.feedback.Save(ctx, fb); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"member_id":     fb.MemberID,
		"condition":     fb.NormalizedName,
		"user_accepted": fb.UserAccepted,
	}).Info("Feedback recorded")
	return nil
}

// MemberFeedback lists the stored decisions for a member, most recent first.
func (s *SuggestionService) MemberFeedback(ctx context.Context, memberID string) ([]*feedback.Feedback, error) {
	if s.feedback == nil {
		return nil, ErrFeedbackDisabled
	}
	entries, err := s.feedback.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return entries, nil
}
