package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// TesterResult holds one tester's contribution to a check. Issues carries
// the literal model payload: an array of findings when the reply parsed, or
// a JSON string with the raw reply text when it did not.
type TesterResult struct {
	Tester    string          `json:"tester"`
	Biography string          `json:"biography"`
	Issues    json.RawMessage `json:"issues"`
}

// Findings decodes the issues payload into typed findings. Models sometimes
// double-encode the array as a JSON string; both shapes are accepted.
func (tr *TesterResult) Findings() ([]Finding, error) {
	raw := bytes.TrimSpace(tr.Issues)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		raw = []byte(s)
	}

	var findings []Finding
	if err := json.Unmarshal(raw, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// CheckRecord is the persisted unit of one check invocation across all
// selected testers. Timestamp is an RFC 3339 string so records survive a
// write/read round trip unchanged. Error is set only on error-shaped
// records, which carry no other fields.
type CheckRecord struct {
	Timestamp      string         `json:"timestamp,omitempty"`
	URL            string         `json:"url,omitempty"`
	Screenshot     string         `json:"screenshot,omitempty"`
	TestersResults []TesterResult `json:"testers_results,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// CheckResult is returned to the caller of a page check. It is never
// persisted verbatim; RawResponse holds the record that was (or would have
// been) written to disk.
type CheckResult struct {
	Timestamp   time.Time
	URL         string
	Bugs        []Finding
	RawResponse CheckRecord
	Profile     string
	OutputFile  string // empty when the check was not saved
}

// HighCount returns the number of high severity findings
func (r *CheckResult) HighCount() int {
	return r.countLevel(3)
}

// MediumCount returns the number of medium severity findings
func (r *CheckResult) MediumCount() int {
	return r.countLevel(2)
}

// LowCount returns the number of low severity findings
func (r *CheckResult) LowCount() int {
	return r.countLevel(1)
}

func (r *CheckResult) countLevel(level int) int {
	count := 0
	for _, f := range r.Bugs {
		if f.Severity.Level() == level {
			count++
		}
	}
	return count
}

// TotalBugs returns the total number of findings
func (r *CheckResult) TotalBugs() int {
	return len(r.Bugs)
}

// HasBugs returns true if there are any findings
func (r *CheckResult) HasBugs() bool {
	return len(r.Bugs) > 0
}

// Failed reports whether the check ended with an error-shaped result.
func (r *CheckResult) Failed() bool {
	return r.RawResponse.Error != ""
}
