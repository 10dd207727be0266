package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/juparave/cotestpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func writeRecords(t *testing.T, path string, records []domain.CheckRecord) {
	t.Helper()
	data, err := json.MarshalIndent(records, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestRenderAggregatesResults(t *testing.T) {
	dir := t.TempDir()

	// Screenshot referenced by the record.
	shotDir := t.TempDir()
	shotPath := filepath.Join(shotDir, "check_20260830_101500.png")
	require.NoError(t, os.WriteFile(shotPath, []byte("fake-png"), 0644))

	issues, _ := json.Marshal([]domain.Finding{
		{Title: "Contrast too low", Severity: "medium", Confidence: 0.85},
	})
	writeRecords(t, filepath.Join(dir, "ai_checks_20260830_101500_ai.json"), []domain.CheckRecord{{
		Timestamp:  "2026-08-30T10:15:00Z",
		URL:        "https://example.com",
		Screenshot: shotPath,
		TestersResults: []domain.TesterResult{
			{Tester: "Alice", Biography: "Accessibility specialist.", Issues: issues},
		},
	}})

	path, err := NewRenderer(testLogger()).Render(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ai_check_report.html"), path)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Contrast too low")
	assert.Contains(t, string(html), "https://example.com")
	assert.Contains(t, string(html), "Alice")
	// Screenshot copied next to the report and referenced relatively.
	assert.Contains(t, string(html), filepath.Join("reports", "check_20260830_101500.png"))
	copied := filepath.Join(dir, "reports", "check_20260830_101500.png")
	assert.FileExists(t, copied)
}

func TestRenderSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()

	writeRecords(t, filepath.Join(dir, "good_20260830_101500_ai.json"), []domain.CheckRecord{{
		Timestamp: "2026-08-30T10:15:00Z",
		URL:       "https://good.example.com",
	}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_20260830_101501_ai.json"), []byte("{not json"), 0644))

	path, err := NewRenderer(testLogger()).Render(dir)
	require.NoError(t, err)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "https://good.example.com")
}

func TestRenderSingleObjectFile(t *testing.T) {
	dir := t.TempDir()

	record := domain.CheckRecord{Timestamp: "2026-08-30T10:15:00Z", URL: "https://solo.example.com"}
	data, _ := json.Marshal(record)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solo_20260830_101500_ai.json"), data, 0644))

	path, err := NewRenderer(testLogger()).Render(dir)
	require.NoError(t, err)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "https://solo.example.com")
}

func TestRenderEmptyDir(t *testing.T) {
	dir := t.TempDir()

	path, err := NewRenderer(testLogger()).Render(dir)
	require.NoError(t, err)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "No check results found")
}

func TestRenderShowsErrorRecords(t *testing.T) {
	dir := t.TempDir()

	writeRecords(t, filepath.Join(dir, "ai_checks_20260830_101500_ai.json"), []domain.CheckRecord{{
		Error: "capturing screenshot: browser gone",
	}})

	path, err := NewRenderer(testLogger()).Render(dir)
	require.NoError(t, err)

	html, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "browser gone")
}
