package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/condition-suggestion-engine/internal/conditions"
	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/feedback"
	"github.com/condition-suggestion-engine/internal/middleware"
	"github.com/condition-suggestion-engine/internal/service"
)

// DetectRequest carries the parameters to run through the combination detector.
type DetectRequest struct {
	Parameters []domain.Parameter `json:"parameters"`
}

// ValidateRequest carries one suggestion and the member context it is validated against.
// Confidence defaults to low and source to explicit_mention.
type ValidateRequest struct {
	domain.ConditionSuggestion
	Context domain.ValidationContext `json:"context"`
}

// FilterRequest carries a batch of raw suggestions.
type FilterRequest struct {
	Suggestions []domain.ConditionSuggestion `json:"suggestions"`
	Context     domain.ValidationContext     `json:"context"`
}

// SeparateRequest carries already filtered conditions.
type SeparateRequest struct {
	Conditions []domain.FilteredCondition `json:"conditions"`
}

type combinationView struct {
	Condition   string            `json:"condition"`
	Confidence  domain.Confidence `json:"confidence"`
	Keywords    []string          `json:"keywords"`
	Description string            `json:"description"`
}

func (s *Server) handleListCombinations(c *gin.Context) {
	registry := conditions.Combinations()
	views := make([]combinationView, 0, len(registry))
	for _, combo := range registry {
		views = append(views, combinationView{
			Condition:   combo.Condition,
			Confidence:  combo.Confidence,
			Keywords:    combo.Keywords,
			Description: combo.Description,
		})
	}
	c.JSON(http.StatusOK, gin.H{"combinations": views})
}

func (s *Server) handleDetect(c *gin.Context) {
	var req DetectRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": s.service.Detect(req.Parameters)})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Condition) == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, "condition is required", nil)
		return
	}
	if req.Confidence == "" {
		req.Confidence = domain.ConfidenceLow
	}
	if req.Source == "" {
		req.Source = domain.SourceExplicitMention
	}
	if !req.Confidence.IsValid() || !req.Source.IsValid() {
		s.respondError(c, http.StatusBadRequest, domain.ErrValidation, "unknown confidence or source", nil)
		return
	}

	c.JSON(http.StatusOK, s.service.Validate(req.ConditionSuggestion, req.Context))
}

func (s *Server) handleFilter(c *gin.Context) {
	var req FilterRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"conditions": s.service.Filter(req.Suggestions, req.Context)})
}

func (s *Server) handleSeparate(c *gin.Context) {
	var req SeparateRequest
	if !s.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, conditions.SeparateConditions(req.Conditions))
}

func (s *Server) handleAnalyzeParameters(c *gin.Context) {
	var req service.AnalyzeParametersRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = c.GetString(middleware.CorrelationKey)

	result, err := s.service.AnalyzeParameters(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyzeReportTypes(c *gin.Context) {
	var req service.AnalyzeReportTypesRequest
	if !s.bindJSON(c, &req) {
		return
	}
	req.RequestID = c.GetString(middleware.CorrelationKey)

	result, err := s.service.AnalyzeReportTypes(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "Analysis failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRecordFeedback(c *gin.Context) {
	var fb feedback.Feedback
	if !s.bindJSON(c, &fb) {
		return
	}
	fb.ID = 0

	if err := s.service.RecordFeedback(c.Request.Context(), &fb); err != nil {
		s.feedbackError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleMemberFeedback(c *gin.Context) {
	memberID := c.Param("member_id")

	entries, err := s.service.MemberFeedback(c.Request.Context(), memberID)
	if err != nil {
		s.feedbackError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"member_id": memberID,
		"count":     len(entries),
		"feedback":  entries,
	})
}

func (s *Server) feedbackError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrFeedbackDisabled) {
		s.respondError(c, http.StatusServiceUnavailable, domain.ErrServiceUnavailable, "Feedback storage is not configured", err)
		return
	}

	code := domain.ErrorCode(err, domain.ErrStorage)
	message := "Feedback storage failed"
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		message = validationErr.Message
	}
	s.respondError(c, domain.StatusForCode(code), code, message, err)
}
