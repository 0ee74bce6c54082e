// Package domain contains the core entities of the condition suggestion engine: lab parameters,
// candidate condition suggestions, validation results and the closed enumerations shared by the
// detector, validator, scorer and oracle boundary.
//
// The engine ranks and filters candidate condition names. It does not diagnose.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Confidence represents how strongly a source believes in a suggested condition.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Source identifies where a condition suggestion came from.
type Source string

const (
	SourceParameterAnalysis Source = "parameter_analysis"
	SourceReportType        Source = "report_type"
	SourceExplicitMention   Source = "explicit_mention"
	SourceAIAnalysis        Source = "ai_analysis"
)

// Severity is the bucketed severity attached to a suggestion.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// Validation errors for enum parsing
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidConfidence = errors.New("invalid confidence level")
	ErrInvalidSource     = errors.New("invalid suggestion source")
	ErrInvalidSeverity   = errors.New("invalid severity")
)

// IsValid reports whether c is one of the known confidence levels.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence.
func (c Confidence) String() string {
	return string(c)
}

// ParseConfidence parses a case-insensitive confidence label.
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidConfidence, s)
	}
	return c, nil
}

// IsValid reports whether s is one of the known suggestion sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceParameterAnalysis, SourceReportType, SourceExplicitMention, SourceAIAnalysis:
		return true
	default:
		return false
	}
}

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a case-insensitive severity label.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
	return sev, nil
}

// ParameterValue holds a lab value as it was reported. Reports carry either JSON numbers or
// free text such as "180" or "<5.6", so the raw text is kept and parsed on demand.
type ParameterValue string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (v *ParameterValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParameterValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parameter value must be a number or string: %w", err)
	}
	*v = ParameterValue(n.String())
	return nil
}

// MarshalJSON emits the value as a number when it is one, otherwise as a string.
func (v ParameterValue) MarshalJSON() ([]byte, error) {
	var n float64
	if err := json.Unmarshal([]byte(v), &n); err == nil {
		return []byte(strconv.FormatFloat(n, 'f', -1, 64)), nil
	}
	return json.Marshal(string(v))
}

// String returns the raw value text.
func (v ParameterValue) String() string {
	return string(v)
}

// Parameter is a single lab result supplied for analysis. It is never persisted by the engine.
type Parameter struct {
	Name        string         `json:"name"`
	Value       ParameterValue `json:"value"`
	Unit        string         `json:"unit,omitempty"`
	NormalRange string         `json:"normalRange,omitempty"`
	IsAbnormal  *bool          `json:"isAbnormal,omitempty"`
	ReportName  string         `json:"reportName,omitempty"`
	ReportDate  string         `json:"reportDate,omitempty"`
}

// MayBeAbnormal reports whether the parameter is a candidate for condition analysis. Only a
// parameter explicitly flagged as within range is excluded.
func (p Parameter) MayBeAbnormal() bool {
	return p.IsAbnormal == nil || *p.IsAbnormal
}

// AbnormalParameters returns the parameters not explicitly flagged as within range.
func AbnormalParameters(parameters []Parameter) []Parameter {
	out := make([]Parameter, 0, len(parameters))
	for _, p := range parameters {
		if p.MayBeAbnormal() {
			out = append(out, p)
		}
	}
	return out
}

// ConditionSuggestion is a raw candidate condition produced by the combination detector or the
// oracle adapter.
type ConditionSuggestion struct {
	Condition  string     `json:"condition"`
	Confidence Confidence `json:"confidence"`
	Source     Source     `json:"source"`
	Evidence   []string   `json:"evidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Severity   *Severity  `json:"severity,omitempty"`
}

// ParameterCombination is an immutable registry entry: a keyword signature tied to a condition.
type ParameterCombination struct {
	Keywords    []string   `json:"keywords"`
	Condition   string     `json:"condition"`
	Confidence  Confidence `json:"confidence"`
	Description string     `json:"description"`
}

// CombinationMatch is a registry entry hit against a concrete set of parameters.
type CombinationMatch struct {
	Condition   string      `json:"condition"`
	Confidence  Confidence  `json:"confidence"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Severity    float64     `json:"severity"`
}

// ValidationResult is the outcome of validating one condition name against a member context.
type ValidationResult struct {
	IsValid        bool     `json:"isValid"`
	NormalizedName string   `json:"normalizedName"`
	Reasons        []string `json:"reasons"`
	Warnings       []string `json:"warnings"`
}

// FilteredCondition is a suggestion that survived validation, scoring and deduplication.
type FilteredCondition struct {
	ConditionSuggestion
	NormalizedName  string `json:"normalizedName"`
	ValidationScore int    `json:"validationScore"`
	ShouldAutoAdd   bool   `json:"shouldAutoAdd"`
}

// SeparatedConditions partitions filtered conditions by the auto-add decision.
type SeparatedConditions struct {
	AutoAdd      []FilteredCondition `json:"autoAdd"`
	ManualReview []FilteredCondition `json:"manualReview"`
}

// ExistingCondition is a condition already on a member profile. Callers send either a bare
// string or an object of the form {"condition": "..."}.
type ExistingCondition struct {
	Condition string `json:"condition"`
}

// UnmarshalJSON accepts both the string and the object shape.
func (e *ExistingCondition) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &e.Condition)
	}
	var obj struct {
		Condition string `json:"condition"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("existing condition must be a string or {condition}: %w", err)
	}
	e.Condition = obj.Condition
	return nil
}

// ExistingConditionNames flattens existing conditions into their names.
func ExistingConditionNames(existing []ExistingCondition) []string {
	names := make([]string, 0, len(existing))
	for _, e := range existing {
		if strings.TrimSpace(e.Condition) != "" {
			names = append(names, e.Condition)
		}
	}
	return names
}

// DefaultAutoAddThreshold is the validation score a high-confidence suggestion must reach to be
// attached without confirmation.
const DefaultAutoAddThreshold = 85

// ValidationContext carries the member attributes the validator and scorer consult.
type ValidationContext struct {
	Age                *int                `json:"age,omitempty"`
	Gender             string              `json:"gender,omitempty"`
	ExistingConditions []ExistingCondition `json:"existingConditions,omitempty"`
	// AutoAddThreshold of zero or less selects DefaultAutoAddThreshold.
	AutoAddThreshold int `json:"autoAddThreshold,omitempty"`
}

// Threshold returns the effective auto-add threshold.
func (c ValidationContext) Threshold() int {
	if c.AutoAddThreshold <= 0 {
		return DefaultAutoAddThreshold
	}
	return c.AutoAddThreshold
}

// MemberInfo is the demographic context handed to the oracle.
type MemberInfo struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// IntPtr is a helper to build optional ages in literals.
func IntPtr(i int) *int {
	return &i
}

// SeverityPtr is a helper to build optional severities in literals.
func SeverityPtr(s Severity) *Severity {
	return &s
}
