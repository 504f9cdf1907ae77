// api/schemas/schemas.go
package schemas

import (
	"fmt"
	"strings"
)

// StackFrame identifies a single location in a stack trace. Frames produced by
// the stacktrace parser are ordered innermost-first regardless of the
// convention of the source format (Python tracebacks are reversed during
// parsing so that index 0 is always the site closest to the error).
type StackFrame struct {
	FilePath     string `json:"file_path"`
	LineNumber   int    `json:"line_number"`
	FunctionName string `json:"function_name,omitempty"`
	// Language is the trace dialect the frame was parsed from ("php",
	// "python", "go"). Informational only.
	Language string `json:"language,omitempty"`
}

// ErrorReport is the inbound payload for one analysis request. It is immutable
// once received.
type ErrorReport struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	StackTrace   string `json:"stack_trace"`
	// InputParams is an opaque, possibly JSON-encoded string describing the
	// request parameters that triggered the error. It is passed through to the
	// LLM verbatim and never parsed.
	InputParams string `json:"input_params,omitempty"`
	// ServerBasePath optionally overrides the configured base path of the
	// environment the stack trace was captured in.
	ServerBasePath string `json:"server_base_path,omitempty"`
}

// Line is a single line of source text paired with its 1-based line number.
type Line struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// CodeContext is a bounded window of source code around a stack frame. The
// window is always clipped to the real extent of the file, so StartLine >= 1
// and EndLine never exceeds the file's line count. Contexts are produced fresh
// per request and never cached; the underlying file may change between
// requests.
type CodeContext struct {
	FilePath   string `json:"file_path"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	TargetLine int    `json:"target_line"`
	// Backend names the adapter that produced the window ("github", "local").
	Backend string `json:"backend"`
	Lines   []Line `json:"lines"`
}

// SearchMatch is one matching line found by the pattern search engine.
type SearchMatch struct {
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
	LineText   string `json:"line_text"`
}

// VariableEventKind classifies an occurrence of a variable within its scope.
type VariableEventKind string

const (
	EventDeclaration VariableEventKind = "declaration"
	EventAssignment  VariableEventKind = "assignment"
	EventRead        VariableEventKind = "read"
)

// VariableEvent is one entry in a variable's flow history. Events are emitted
// in non-decreasing line order; within a line, reads on the right-hand side of
// an assignment precede the assignment event for the left-hand target.
type VariableEvent struct {
	LineNumber int               `json:"line_number"`
	Kind       VariableEventKind `json:"kind"`
	Snippet    string            `json:"snippet"`
}

// CallSite is a function invocation with its literal argument text, lifted
// straight out of a stack trace line.
type CallSite struct {
	Function  string `json:"function"`
	Arguments string `json:"arguments"`
}

// TypeMismatch captures an "expected X, got Y" clause found in an error
// message or trace.
type TypeMismatch struct {
	Expected string `json:"expected"`
	Given    string `json:"given"`
}

// TraceInsights holds secondary signals mined from the raw stack trace text:
// the concrete argument values visible in call frames, and any declared type
// mismatch. These frequently identify the offending value before any code is
// read.
type TraceInsights struct {
	CallSites    []CallSite    `json:"call_sites,omitempty"`
	TypeMismatch *TypeMismatch `json:"type_mismatch,omitempty"`
}

// AnalysisResult is the terminal output of one analysis request.
type AnalysisResult struct {
	RequestID string `json:"request_id"`
	// Analysis is the LLM's response text, verbatim.
	Analysis string `json:"analysis"`
	// Suggestions are the enumerated or bulleted items extracted from the
	// analysis text. Empty when the response carries no recognizable markers.
	Suggestions []string `json:"suggestions"`
	// FileLocations are the frames that were parsed out of the stack trace,
	// innermost first.
	FileLocations []StackFrame `json:"file_locations,omitempty"`
	// Degradations lists the context-gathering steps that failed and were
	// skipped. A non-empty list means the LLM saw less context than usual, not
	// that the analysis failed.
	Degradations []string `json:"degradations,omitempty"`
}

// CompletionRequest is the contract handed to an LLM client.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Render formats the code window for inclusion in an LLM context bundle,
// marking the target line.
func (c *CodeContext) Render() string {
	var b strings.Builder
	for _, ln := range c.Lines {
		marker := "    "
		if ln.Number == c.TargetLine {
			marker = ">>> "
		}
		fmt.Fprintf(&b, "%s%5d | %s\n", marker, ln.Number, ln.Text)
	}
	return b.String()
}
