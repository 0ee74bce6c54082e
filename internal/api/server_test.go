package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/feedback"
	"github.com/condition-suggestion-engine/internal/health"
	"github.com/condition-suggestion-engine/internal/service"
)

// stubConfig is a fixed implementation of the ConfigManager interface
type stubConfig struct {
	cfg domain.Config
}

func (s *stubConfig) GetConfig() *domain.Config { return &s.cfg }
func (s *stubConfig) GetServerConfig() *domain.ServerConfig { return &s.cfg.Server }
func (s *stubConfig) GetEngineConfig() *domain.EngineConfig { return &s.cfg.Engine }
func (s *stubConfig) GetOracleConfig() *domain.OracleConfig { return &s.cfg.Oracle }
func (s *stubConfig) Reload() error { return nil }
func (s *stubConfig) Validate() error { return nil }
func (s *stubConfig) GetDatabaseConnectionString() string { return "" }
func (s *stubConfig) GetDatabaseURL() string { return "" }
func (s *stubConfig) IsProduction() bool { return false }
func (s *stubConfig) IsDevelopment() bool { return true }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newTestServer(t *testing.T, withFeedback bool, checker *health.Checker) *Server {
	t.Helper()
	logger := quietLogger()

	var opts []service.Option
	if withFeedback {
		store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		opts = append(opts, service.WithFeedbackStore(store))
	}

	svc := service.NewSuggestionService(logger, opts...)
	server := NewServer(&stubConfig{}, svc, checker, logger)
	gin.SetMode(gin.TestMode)
	return server
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

const diabetesParameters = `[
	{"name": "Fasting Glucose", "value": 180, "unit": "mg/dL", "normalRange": "70-100", "isAbnormal": true},
	{"name": "HbA1c", "value": "8.2", "unit": "%", "normalRange": "4-5.6", "isAbnormal": true}
]`

func TestHealth(t *testing.T) {
	checker := health.NewChecker(Version, 0)
	checker.Register("feedback_store", true, func(context.Context) error { return nil })
	s := newTestServer(t, false, checker)

	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var status health.Status
	decode(t, w, &status)
	assert.Equal(t, health.StateHealthy, status.Overall)
	assert.Equal(t, Version, status.Version)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestHealth_Unhealthy(t *testing.T) {
	checker := health.NewChecker(Version, 0)
	checker.Register("audit_database", true, func(context.Context) error { return errors.New("down") })
	s := newTestServer(t, false, checker)

	w := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListCombinations(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodGet, "/api/v1/combinations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Combinations []combinationView `json:"combinations"`
	}
	decode(t, w, &body)
	require.NotEmpty(t, body.Combinations)
	assert.Equal(t, "Diabetes", body.Combinations[0].Condition)
}

func TestDetect(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodPost, "/api/v1/conditions/detect", `{"parameters": `+diabetesParameters+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []domain.ConditionSuggestion `json:"suggestions"`
	}
	decode(t, w, &body)
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "Diabetes", body.Suggestions[0].Condition)
	assert.Equal(t, []string{"Fasting Glucose: 180 mg/dL", "HbA1c: 8.2 %"}, body.Suggestions[0].Evidence)
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t, false, nil)

	for _, path := range []string{
		"/api/v1/conditions/detect",
		"/api/v1/conditions/validate",
		"/api/v1/conditions/filter",
		"/api/v1/conditions/separate",
		"/api/v1/analyses/parameters",
		"/api/v1/analyses/report-types",
		"/api/v1/feedback",
	} {
		t.Run(path, func(t *testing.T) {
			w := do(t, s, http.MethodPost, path, `{"parameters": [`)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var apiErr domain.APIError
			decode(t, w, &apiErr)
			assert.Equal(t, domain.ErrInvalidInput, apiErr.Code)
			assert.NotEmpty(t, apiErr.RequestID)
		})
	}
}

func TestValidate(t *testing.T) {
	s := newTestServer(t, false, nil)

	tests := []struct {
		name      string
		body      string
		status    int
		valid     bool
		score     int
		autoAdd   bool
		errorCode string
	}{
		{
			name:   "explicit mention with evidence",
			body:   `{"condition": "diagnosis: hypertension", "confidence": "high", "evidence": ["BP 160/100"]}`,
			status: http.StatusOK, valid: true, score: 85, autoAdd: true,
		},
		{
			name:   "gender mismatch",
			body:   `{"condition": "Prostate Enlargement", "confidence": "high", "context": {"gender": "female"}}`,
			status: http.StatusOK, valid: false, score: 0,
		},
		{
			name:      "missing condition",
			body:      `{"confidence": "high"}`,
			status:    http.StatusBadRequest,
			errorCode: domain.ErrValidation,
		},
		{
			name:      "unknown confidence",
			body:      `{"condition": "Gout", "confidence": "certain"}`,
			status:    http.StatusBadRequest,
			errorCode: domain.ErrValidation,
		},
		{
			name:      "evidence not a list",
			body:      `{"condition": "Gout", "confidence": "high", "evidence": "uric acid 9.1"}`,
			status:    http.StatusBadRequest,
			errorCode: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/api/v1/conditions/validate", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			if tt.errorCode != "" {
				var apiErr domain.APIError
				decode(t, w, &apiErr)
				assert.Equal(t, tt.errorCode, apiErr.Code)
				return
			}

			var outcome service.ValidationOutcome
			decode(t, w, &outcome)
			assert.Equal(t, tt.valid, outcome.IsValid)
			assert.Equal(t, tt.score, outcome.ValidationScore)
			assert.Equal(t, tt.autoAdd, outcome.ShouldAutoAdd)
		})
	}
}

func TestFilterAndSeparate(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodPost, "/api/v1/conditions/filter", `{
		"suggestions": [
			{"condition": "Hypertension", "confidence": "high", "source": "parameter_analysis",
			 "evidence": ["BP 160/100", "BP 158/98"], "severity": "moderate"},
			{"condition": "Blood Test", "confidence": "high", "source": "ai_analysis"},
			{"condition": "Migraine", "confidence": "low", "source": "report_type"}
		],
		"context": {"age": 45, "existingConditions": ["Asthma"]}
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var filtered struct {
		Conditions []domain.FilteredCondition `json:"conditions"`
	}
	decode(t, w, &filtered)
	require.Len(t, filtered.Conditions, 1)
	assert.Equal(t, "Hypertension", filtered.Conditions[0].NormalizedName)
	assert.Equal(t, 90, filtered.Conditions[0].ValidationScore)
	assert.True(t, filtered.Conditions[0].ShouldAutoAdd)

	payload, err := json.Marshal(SeparateRequest{Conditions: filtered.Conditions})
	require.NoError(t, err)

	w = do(t, s, http.MethodPost, "/api/v1/conditions/separate", string(payload))
	require.Equal(t, http.StatusOK, w.Code)

	var separated domain.SeparatedConditions
	decode(t, w, &separated)
	assert.Len(t, separated.AutoAdd, 1)
	assert.NotNil(t, separated.ManualReview)
	assert.Empty(t, separated.ManualReview)
}

func TestAnalyzeParameters(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodPost, "/api/v1/analyses/parameters", `{
		"parameters": `+diabetesParameters+`,
		"member": {"id": "member-1", "age": 52, "gender": "male"},
		"existingConditions": [{"condition": "Asthma"}]
	}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.AnalysisResult
	decode(t, w, &result)
	require.Len(t, result.AutoAdd, 1)
	assert.Equal(t, "Diabetes", result.AutoAdd[0].NormalizedName)
	assert.Len(t, result.DetectedCombinations, 1)
	assert.Empty(t, result.OracleSuggestions)
}

func TestAnalyzeReportTypes(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodPost, "/api/v1/analyses/report-types", `{"reportTypes": ["Lipid Profile"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result service.AnalysisResult
	decode(t, w, &result)
	assert.Empty(t, result.AutoAdd)
	assert.Empty(t, result.ManualReview)
}

func TestFeedback(t *testing.T) {
	s := newTestServer(t, true, nil)

	w := do(t, s, http.MethodPost, "/api/v1/feedback", `{
		"member_id": "member-1",
		"condition": "condition: type 2 diabetes",
		"source": "parameter_analysis",
		"confidence": "high",
		"validation_score": 95,
		"auto_added": true,
		"user_accepted": true
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved feedback.Feedback
	decode(t, w, &saved)
	assert.NotZero(t, saved.ID)
	assert.Equal(t, "Type 2 Diabetes", saved.NormalizedName)

	w = do(t, s, http.MethodGet, "/api/v1/members/member-1/feedback", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		MemberID string               `json:"member_id"`
		Count    int                  `json:"count"`
		Feedback []*feedback.Feedback `json:"feedback"`
	}
	decode(t, w, &list)
	assert.Equal(t, 1, list.Count)
	assert.True(t, list.Feedback[0].UserAccepted)

	// Accepted conditions now count as existing for the member.
	w = do(t, s, http.MethodPost, "/api/v1/analyses/parameters", `{
		"parameters": `+diabetesParameters+`,
		"member": {"id": "member-1"}
	}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result service.AnalysisResult
	decode(t, w, &result)
	require.Len(t, result.AutoAdd, 1)
	assert.Equal(t, 90, result.AutoAdd[0].ValidationScore)
}

func TestFeedback_Invalid(t *testing.T) {
	s := newTestServer(t, true, nil)

	w := do(t, s, http.MethodPost, "/api/v1/feedback", `{"condition": "Gout"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr domain.APIError
	decode(t, w, &apiErr)
	assert.Equal(t, domain.ErrValidation, apiErr.Code)
}

func TestFeedback_Disabled(t *testing.T) {
	s := newTestServer(t, false, nil)

	w := do(t, s, http.MethodPost, "/api/v1/feedback", `{"member_id": "m", "condition": "Gout"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/members/m/feedback", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
