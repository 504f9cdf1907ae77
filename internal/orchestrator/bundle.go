// internal/orchestrator/bundle.go
package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

const systemPrompt = "You are an expert software debugger and code analyst. " +
	"You are given an error report together with the relevant source code, " +
	"already gathered for you. Analyze the root cause, not just the symptom."

const missionPrompt = `## Your Task
Produce a root cause analysis with the following sections:

1. Error location and immediate cause
2. Business logic analysis: what the failing code is trying to do
3. Root cause: why this situation occurred at all
4. Fix: concrete change, with a code example
5. Prevention: how to stop this class of error from recurring

End with a numbered list of concrete suggestions.`

// suggestionRegex recognizes the markers of an enumerated or bulleted item:
// "- x", "* x", "1. x", "1) x".
var suggestionRegex = regexp.MustCompile(`^\s*(?:[-*]|\d+[.)])\s+(.+)$`)

// buildBundle assembles the textual context handed to the LLM. Sections with
// nothing to say are omitted rather than rendered empty.
func buildBundle(
	report schemas.ErrorReport,
	frames []schemas.StackFrame,
	insights schemas.TraceInsights,
	cc *schemas.CodeContext,
	matches []schemas.SearchMatch,
	flow []schemas.VariableEvent,
	degradations []string,
) string {
	var b strings.Builder

	b.WriteString("## Error\n")
	fmt.Fprintf(&b, "- Type: %s\n", report.ErrorType)
	fmt.Fprintf(&b, "- Message: %s\n", report.ErrorMessage)

	b.WriteString("\n## Stack Trace\n```\n")
	b.WriteString(strings.TrimSpace(report.StackTrace))
	b.WriteString("\n```\n")

	if report.InputParams != "" {
		b.WriteString("\n## Input Parameters\n")
		b.WriteString(report.InputParams)
		b.WriteString("\n")
	}

	if len(frames) > 0 {
		b.WriteString("\n## Parsed Frames (innermost first)\n")
		for _, f := range frames {
			if f.FunctionName != "" {
				fmt.Fprintf(&b, "- %s:%d in %s\n", f.FilePath, f.LineNumber, f.FunctionName)
			} else {
				fmt.Fprintf(&b, "- %s:%d\n", f.FilePath, f.LineNumber)
			}
		}
	}

	if len(insights.CallSites) > 0 || insights.TypeMismatch != nil {
		b.WriteString("\n## Trace Insights\n")
		if insights.TypeMismatch != nil {
			fmt.Fprintf(&b, "- Declared type mismatch: expected %s, got %s\n",
				insights.TypeMismatch.Expected, insights.TypeMismatch.Given)
		}
		for _, cs := range insights.CallSites {
			fmt.Fprintf(&b, "- Call %s(%s)\n", cs.Function, cs.Arguments)
		}
	}

	if cc != nil {
		fmt.Fprintf(&b, "\n## Code Context: %s (lines %d-%d, via %s)\n```\n",
			cc.FilePath, cc.StartLine, cc.EndLine, cc.Backend)
		b.WriteString(cc.Render())
		b.WriteString("```\n")
	}

	if len(matches) > 0 {
		b.WriteString("\n## Related Code (keyword search)\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s:%d: %s\n", m.FilePath, m.LineNumber, strings.TrimSpace(m.LineText))
		}
	}

	if len(flow) > 0 {
		b.WriteString("\n## Variable Flow\n")
		for _, ev := range flow {
			fmt.Fprintf(&b, "- line %d (%s): %s\n", ev.LineNumber, ev.Kind, ev.Snippet)
		}
	}

	if len(degradations) > 0 {
		b.WriteString("\n## Missing Context\n")
		b.WriteString("The following could not be gathered; account for the gaps:\n")
		for _, d := range degradations {
			fmt.Fprintf(&b, "- %s\n", d)
		}
	}

	b.WriteString("\n")
	b.WriteString(missionPrompt)
	return b.String()
}

// parseSuggestions extracts the enumerated or bulleted lines from the LLM's
// free-text response. The analysis text itself is returned verbatim elsewhere;
// this is a marker scan, never a re-analysis.
func parseSuggestions(analysis string) []string {
	var suggestions []string
	for _, line := range strings.Split(analysis, "\n") {
		if m := suggestionRegex.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[1])
			if text != "" {
				suggestions = append(suggestions, text)
			}
		}
	}
	return suggestions
}
