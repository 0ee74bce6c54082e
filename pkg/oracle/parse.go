package oracle

import (
	"encoding/json"
	"strings"

	"github.com/condition-suggestion-engine/internal/domain"
)

// ExtractFirstObject returns the first balanced {...} fragment of text. Braces inside JSON
// strings are ignored. The second result is false when no complete object exists.
func ExtractFirstObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseReply decodes an oracle reply into suggestions tagged with source. Any reply without a
// decodable "conditions" array yields an empty slice. Entries without a name, or that are not
// objects, are skipped.
func ParseReply(reply string, source domain.Source) []domain.ConditionSuggestion {
	fragment, ok := ExtractFirstObject(reply)
	if !ok {
		return []domain.ConditionSuggestion{}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(fragment), &envelope); err != nil {
		return []domain.ConditionSuggestion{}
	}
	rawConditions, ok := envelope["conditions"]
	if !ok {
		return []domain.ConditionSuggestion{}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(rawConditions, &entries); err != nil {
		return []domain.ConditionSuggestion{}
	}

	suggestions := make([]domain.ConditionSuggestion, 0, len(entries))
	for _, raw := range entries {
		var entry conditionEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		if s, ok := toSuggestion(entry, source); ok {
			suggestions = append(suggestions, s)
		}
	}
	return suggestions
}

func toSuggestion(entry conditionEntry, source domain.Source) (domain.ConditionSuggestion, bool) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return domain.ConditionSuggestion{}, false
	}

	confidence, err := domain.ParseConfidence(entry.Confidence)
	if err != nil {
		confidence = domain.ConfidenceLow
	}

	evidence := make([]string, 0, len(entry.Evidence))
	for _, e := range entry.Evidence {
		if e = strings.TrimSpace(e); e != "" {
			evidence = append(evidence, e)
		}
	}

	s := domain.ConditionSuggestion{
		Condition:  name,
		Confidence: confidence,
		Source:     source,
		Evidence:   evidence,
		Reasoning:  strings.TrimSpace(entry.Reasoning),
	}
	if severity, err := domain.ParseSeverity(entry.Severity); err == nil {
		s.Severity = &severity
	}
	return s, true
}
