// internal/vartrace/tracer.go

// Package vartrace builds an ordered history of a variable's declaration,
// assignments and reads within one source file. It is a heuristic text scanner,
// not a parser: scope boundaries come from indentation and function-definition
// markers, and string literals and comments are stripped line by line before
// matching. Shadowed bindings in nested scopes are reported as occurrences of
// the outer variable; distinguishing them is a documented limitation.
package vartrace

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

// funcDefRegex matches the function-definition markers of the languages the
// service sees in practice (PHP, Python, Go, JS).
var funcDefRegex = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|abstract|final|async)\s+)*(?:def|function|func|fn)\b`)

// bindingKeywords introduce a fresh binding when they immediately precede the
// variable.
var bindingKeywords = map[string]bool{
	"var": true, "let": true, "const": true,
	"my": true, "local": true, "global": true, "static": true,
}

// Tracer scans source text for the flow of a single variable.
type Tracer struct {
	logger *zap.Logger
}

// NewTracer creates a variable flow tracer.
func NewTracer(logger *zap.Logger) *Tracer {
	return &Tracer{logger: logger.Named("vartrace")}
}

// Trace reads filePath through backend and returns the events for variable
// inside the scope enclosing startLine. Events are emitted in non-decreasing
// line order; within an assignment line, reads on the right-hand side precede
// the assignment event for the target, because that is the order the program
// evaluates them in.
func (t *Tracer) Trace(ctx context.Context, backend schemas.SourceBackend, filePath, variable string, startLine int) ([]schemas.VariableEvent, error) {
	variable = strings.TrimSpace(strings.TrimPrefix(variable, "$"))
	if variable == "" {
		return nil, fmt.Errorf("empty variable name")
	}
	if startLine < 1 {
		startLine = 1
	}

	lines, err := backend.ReadFile(ctx, filePath, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", filePath, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	scopeStart, scopeEnd := findScope(lines, startLine)
	t.logger.Debug("Tracing variable",
		zap.String("file", filePath),
		zap.String("variable", variable),
		zap.Int("scope_start", scopeStart),
		zap.Int("scope_end", scopeEnd))

	var events []schemas.VariableEvent
	declared := false

	for _, ln := range lines {
		if ln.Number < scopeStart || ln.Number > scopeEnd {
			continue
		}
		code := stripLiterals(ln.Text)
		occurrences := findOccurrences(code, variable)
		if len(occurrences) == 0 {
			continue
		}
		snippet := strings.TrimSpace(ln.Text)

		// On a signature line every occurrence is a parameter: an implicit
		// declaration at the signature.
		if ln.Number == scopeStart && funcDefRegex.MatchString(code) {
			events = append(events, schemas.VariableEvent{
				LineNumber: ln.Number,
				Kind:       schemas.EventDeclaration,
				Snippet:    snippet,
			})
			declared = true
			continue
		}

		var target *occurrence
		var reads []occurrence
		for i, occ := range occurrences {
			if target == nil && isAssignmentTarget(code, occ) {
				target = &occurrences[i]
				continue
			}
			reads = append(reads, occ)
		}

		for range reads {
			events = append(events, schemas.VariableEvent{
				LineNumber: ln.Number,
				Kind:       schemas.EventRead,
				Snippet:    snippet,
			})
		}
		if target != nil {
			kind := schemas.EventAssignment
			if !declared || hasBindingKeyword(code, *target) {
				kind = schemas.EventDeclaration
				declared = true
			}
			events = append(events, schemas.VariableEvent{
				LineNumber: ln.Number,
				Kind:       kind,
				Snippet:    snippet,
			})
		}
	}
	return events, nil
}

type occurrence struct {
	start int // index of the first name character (after any $ sigil)
	end   int // index just past the name
}

// findOccurrences returns the word-boundary occurrences of name in code,
// left to right. A $ sigil counts as part of the word.
func findOccurrences(code, name string) []occurrence {
	var occs []occurrence
	for i := 0; ; {
		idx := strings.Index(code[i:], name)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(name)
		i = start + 1

		boundaryStart := start
		if boundaryStart > 0 && code[boundaryStart-1] == '$' {
			boundaryStart--
		}
		if boundaryStart > 0 && isWordByte(code[boundaryStart-1]) {
			continue
		}
		if end < len(code) && isWordByte(code[end]) {
			continue
		}
		occs = append(occs, occurrence{start: start, end: end})
	}
	return occs
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isAssignmentTarget reports whether the occurrence is followed by an
// assignment operator rather than a comparison.
func isAssignmentTarget(code string, occ occurrence) bool {
	rest := strings.TrimLeft(code[occ.end:], " \t")
	switch {
	case strings.HasPrefix(rest, "=="), strings.HasPrefix(rest, "=>"):
		return false
	case strings.HasPrefix(rest, ":="), strings.HasPrefix(rest, "="):
		return true
	}
	if len(rest) >= 2 && rest[1] == '=' && strings.IndexByte("+-*/.%&|^", rest[0]) >= 0 {
		// Compound assignment, but not <=, >=, !=.
		return len(rest) < 3 || rest[2] != '='
	}
	return false
}

// hasBindingKeyword reports whether a fresh-binding keyword immediately
// precedes the occurrence.
func hasBindingKeyword(code string, occ occurrence) bool {
	prefix := strings.TrimRight(code[:occ.start], "$ \t")
	j := len(prefix)
	for j > 0 && isWordByte(prefix[j-1]) {
		j--
	}
	return bindingKeywords[prefix[j:]]
}

// findScope returns the inclusive line range of the function body enclosing
// startLine: the nearest preceding definition marker through the next sibling
// definition (or closing brace) at the same or shallower indentation. When no
// marker precedes startLine, or the detected scope does not actually contain
// it, the whole file is the scope.
func findScope(lines []schemas.Line, startLine int) (int, int) {
	wholeFile := func() (int, int) {
		return lines[0].Number, lines[len(lines)-1].Number
	}

	defIdx := -1
	for i, ln := range lines {
		if ln.Number > startLine {
			break
		}
		if funcDefRegex.MatchString(ln.Text) {
			defIdx = i
		}
	}
	if defIdx < 0 {
		return wholeFile()
	}

	defIndent := indentOf(lines[defIdx].Text)
	end := lines[len(lines)-1].Number
	for i := defIdx + 1; i < len(lines); i++ {
		text := lines[i].Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		indent := indentOf(text)
		if indent > defIndent {
			continue
		}
		if funcDefRegex.MatchString(text) {
			end = lines[i].Number - 1
			break
		}
		if strings.TrimSpace(text) == "}" {
			end = lines[i].Number
			break
		}
	}
	if startLine > end {
		return wholeFile()
	}
	return lines[defIdx].Number, end
}

func indentOf(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// stripLiterals blanks out string literals and trailing comments so the
// matcher never fires inside them. It handles single and double quotes with
// backslash escapes, line comments (#, //) and within-line block comments;
// multi-line strings and block comments are outside its reach.
func stripLiterals(s string) string {
	out := []byte(s)
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		if quote != 0 {
			if c == '\\' && i+1 < len(out) {
				out[i], out[i+1] = ' ', ' '
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			out[i] = ' '
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			out[i] = ' '
		case c == '#':
			return string(out[:i])
		case c == '/' && i+1 < len(out) && out[i+1] == '/':
			return string(out[:i])
		case c == '/' && i+1 < len(out) && out[i+1] == '*':
			close := strings.Index(string(out[i+2:]), "*/")
			if close < 0 {
				return string(out[:i])
			}
			for j := i; j < i+2+close+2; j++ {
				out[j] = ' '
			}
			i += 2 + close + 1
		}
	}
	return string(out)
}
