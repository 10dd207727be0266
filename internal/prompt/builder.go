package prompt

import (
	"fmt"
	"strings"

	"github.com/juparave/cotestpilot/internal/domain"
)

// DefaultOutput is the output-format instruction used when the caller does
// not supply one.
const DefaultOutput = "return list of issues as an array of JSON objects with properties: title, severity, description, why_fix, how_to_fix, confidence (a number between 0 and 1)"

// Input carries everything a vision prompt is rendered from.
type Input struct {
	URL          string
	PageText     string
	Tester       domain.Tester
	Output       string // output-format instruction; DefaultOutput when empty
	CustomPrompt string // appended verbatim at the end when non-empty
}

// Build renders the analysis prompt for one tester. The result is
// deterministic for a given input. Page text is embedded as-is: it is
// treated as opaque signal, not sanitized against prompt injection.
func Build(in Input) string {
	output := in.Output
	if output == "" {
		output = DefaultOutput
	}

	var sb strings.Builder

	sb.WriteString(framing)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Page URL: %s\nPage Text Content:\n%s\n\n", in.URL, in.PageText)
	fmt.Fprintf(&sb, "You are %s, and this is your expertise and background:\n%s\n\n", in.Tester.Name, in.Tester.Biography)
	sb.WriteString(checklist)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Output format: %s\n\n", output)
	sb.WriteString(example)

	if in.CustomPrompt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(in.CustomPrompt)
	}

	return sb.String()
}

const framing = `Please analyze this webpage for any errors, issues, or problems.

IMPORTANT: Only return high-confidence issues. It is perfectly acceptable to return no issues if none are found with high confidence.
For each issue found, include a confidence score between 0 and 1, where:
- 1.0 means absolutely certain this is an issue
- 0.8-0.9 means very confident
- 0.7-0.8 means reasonably confident
- Below 0.7 should not be reported

Severity levels (0-3):
0 = Cosmetic: Minor visual or text issues that don't impact functionality or understanding
1 = Low: Issues that cause minor inconvenience but don't prevent core functionality
2 = Medium: Issues that significantly impact user experience or partially break functionality
3 = High: Critical issues that prevent core functionality or severely impact user experience or the business.`

const checklist = `Please identify any:
1. Visual errors or layout issues
2. Content errors or inconsistencies
3. Functionality problems that are visible
4. Any other issues that might affect user experience`

const example = `Example format:
[
    {
        "title": "Broken image link",
        "severity": "high",
        "description": "Image on homepage fails to load",
        "why_fix": "Impacts user experience and site professionalism",
        "how_to_fix": "Update image source URL or replace missing image",
        "confidence": 0.95,
        "related_context_if_any": "The image is a logo and its url is 'https://www.google.com/images/branding/googlelogo/2x/googlelogo_light_color_272x92dp.png' and is used in the header"
    }
]

return only the JSON array, no other text or comments.`
