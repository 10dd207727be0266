package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRecordRoundTrip(t *testing.T) {
	issues, err := json.Marshal([]Finding{
		{Title: "Broken link", Severity: "high", Confidence: 0.9},
		{Title: "Typo", Severity: "1", Confidence: 0.8},
	})
	require.NoError(t, err)

	records := []CheckRecord{{
		Timestamp:  time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC).Format(time.RFC3339),
		URL:        "https://example.com",
		Screenshot: "screenshots/check_20260830_101500.png",
		TestersResults: []TesterResult{
			{Tester: "Jason", Biography: "Veteran tester.", Issues: issues},
		},
	}}

	data, err := json.MarshalIndent(records, "", "  ")
	require.NoError(t, err)

	var loaded []CheckRecord
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Len(t, loaded, 1)

	reencoded, err := json.MarshalIndent(loaded, "", "  ")
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(reencoded))

	assert.Equal(t, records[0].Timestamp, loaded[0].Timestamp)
	assert.Equal(t, records[0].URL, loaded[0].URL)
	require.Len(t, loaded[0].TestersResults, 1)

	findings, err := loaded[0].TestersResults[0].Findings()
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "Broken link", findings[0].Title)
}

func TestCheckResultCounts(t *testing.T) {
	r := CheckResult{Bugs: []Finding{
		{Severity: "high"},
		{Severity: "3"},
		{Severity: "medium"},
		{Severity: "low"},
		{Severity: "0"},
	}}
	assert.Equal(t, 2, r.HighCount())
	assert.Equal(t, 1, r.MediumCount())
	assert.Equal(t, 1, r.LowCount())
	assert.Equal(t, 5, r.TotalBugs())
	assert.True(t, r.HasBugs())
	assert.False(t, r.Failed())
}

func TestCheckResultFailed(t *testing.T) {
	r := CheckResult{RawResponse: CheckRecord{Error: "boom"}}
	assert.True(t, r.Failed())
	assert.False(t, r.HasBugs())
}
