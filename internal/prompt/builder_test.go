package prompt

import (
	"strings"
	"testing"

	"github.com/juparave/cotestpilot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildContainsPageAndPersona(t *testing.T) {
	in := Input{
		URL:      "https://example.com/pricing",
		PageText: "Plans start at $9/month",
		Tester: domain.Tester{
			Name:      "Alice",
			Biography: "Accessibility specialist with a decade of WCAG audits.",
		},
	}

	out := Build(in)

	assert.Contains(t, out, in.URL)
	assert.Contains(t, out, in.PageText)
	assert.Contains(t, out, in.Tester.Name)
	assert.Contains(t, out, in.Tester.Biography)
	assert.Contains(t, out, DefaultOutput)
	assert.Contains(t, out, "Severity levels (0-3)")
	assert.Contains(t, out, "Below 0.7 should not be reported")
}

func TestBuildAppendsCustomPrompt(t *testing.T) {
	in := Input{
		URL:          "https://example.com",
		PageText:     "hello",
		Tester:       domain.Tester{Name: "Jason", Biography: "Tester."},
		CustomPrompt: "Also verify the cookie banner can be dismissed.",
	}

	out := Build(in)
	assert.True(t, strings.HasSuffix(out, in.CustomPrompt), "custom prompt must be the verbatim tail")
}

func TestBuildCustomOutputFormat(t *testing.T) {
	in := Input{
		URL:      "https://example.com",
		PageText: "hello",
		Tester:   domain.Tester{Name: "Jason", Biography: "Tester."},
		Output:   "return a CSV table",
	}

	out := Build(in)
	assert.Contains(t, out, "Output format: return a CSV table")
	assert.NotContains(t, out, DefaultOutput)
}

func TestBuildDeterministic(t *testing.T) {
	in := Input{
		URL:      "https://example.com",
		PageText: "hello",
		Tester:   domain.Tester{Name: "Jason", Biography: "Tester."},
	}
	assert.Equal(t, Build(in), Build(in))
}
