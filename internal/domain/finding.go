package domain

import (
	"encoding/json"
	"strings"
)

// Severity represents the impact level of a finding. Models answer with
// either the 0-3 integer rubric from the prompt or a word like "high", so
// both JSON encodings are accepted and the literal value is preserved.
type Severity string

// UnmarshalJSON accepts a JSON string or number.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Severity(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = Severity(num.String())
	return nil
}

// Level maps the severity onto the 0-3 rubric used in the prompt, where 3 is
// highest. Unknown values map to 0.
func (s Severity) Level() int {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "3", "high", "critical":
		return 3
	case "2", "medium":
		return 2
	case "1", "low":
		return 1
	default:
		return 0
	}
}

// Finding represents one issue reported by the vision model. Every field is
// best-effort: the payload is untrusted model output and consumers must
// tolerate missing values.
type Finding struct {
	Title          string   `json:"title"`
	Severity       Severity `json:"severity,omitempty"`
	Description    string   `json:"description,omitempty"`
	WhyFix         string   `json:"why_fix,omitempty"`
	HowToFix       string   `json:"how_to_fix,omitempty"`
	Confidence     float64  `json:"confidence,omitempty"`
	RelatedContext string   `json:"related_context_if_any,omitempty"`
}

// IsHighPriority returns true if the finding is high severity
func (f *Finding) IsHighPriority() bool {
	return f.Severity.Level() >= 3
}
