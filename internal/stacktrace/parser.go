// internal/stacktrace/parser.go

// Package stacktrace turns raw stack-trace text into ordered StackFrame
// sequences. It understands the PHP exception format (`#0 /path/File.php(828):
// foo()`), Python tracebacks (`File "x.py", line 10, in fn`) and Go panic
// output. Frames are always returned innermost-first: PHP and Go traces
// already read that way, Python tracebacks are reversed during parsing.
package stacktrace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

var (
	// #0 /home/x/app/Post.php(828): Post->view('10738')
	phpFrameRegex = regexp.MustCompile(`#\d+\s+([/\w\-. ]+\.php)\((\d+)\):\s*([^\s(]+)?`)
	// ... thrown in /home/x/app/Post.php on line 828
	phpThrownRegex = regexp.MustCompile(`thrown in\s+([/\w\-. ]+\.php)\s+on line\s+(\d+)`)
	// File "/app/main.py", line 42, in handler
	pythonFrameRegex = regexp.MustCompile(`File\s+"([^"]+)",\s+line\s+(\d+)(?:,\s+in\s+(\w+))?`)
	// Go panic location lines are indented under a function line.
	goFuncRegex     = regexp.MustCompile(`^([a-zA-Z0-9_\-./()*]+)\(.*\)$`)
	goLocationRegex = regexp.MustCompile(`^\s+(.*\.go):(\d+)(?: .*)?$`)
)

// Parser extracts structured frames from raw stack-trace text.
type Parser struct{}

// NewParser creates a stack trace parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse returns the frames found in raw, innermost first. When no frame can be
// extracted it returns a *schemas.TraceParseError; callers treat that as a
// degradation, not a failure.
func (p *Parser) Parse(raw string) ([]schemas.StackFrame, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &schemas.TraceParseError{Reason: "empty stack trace"}
	}

	frames := p.parsePHP(raw)
	frames = append(frames, p.parseGo(raw)...)

	if py := p.parsePython(raw); len(py) > 0 {
		// Python prints outermost-first; reverse so index 0 is the error site.
		for i, j := 0, len(py)-1; i < j; i, j = i+1, j-1 {
			py[i], py[j] = py[j], py[i]
		}
		frames = append(frames, py...)
	}

	if len(frames) == 0 {
		return nil, &schemas.TraceParseError{Reason: "no recognizable frames"}
	}
	return frames, nil
}

func (p *Parser) parsePHP(raw string) []schemas.StackFrame {
	var frames []schemas.StackFrame
	for _, m := range phpFrameRegex.FindAllStringSubmatch(raw, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil || line <= 0 {
			continue
		}
		fn := m[3]
		if fn == "{main}" {
			fn = ""
		}
		frames = append(frames, schemas.StackFrame{
			FilePath:     m[1],
			LineNumber:   line,
			FunctionName: fn,
			Language:     "php",
		})
	}
	// "thrown in X on line N" is the actual error site; it comes first.
	if m := phpThrownRegex.FindStringSubmatch(raw); m != nil {
		if line, err := strconv.Atoi(m[2]); err == nil && line > 0 {
			site := schemas.StackFrame{FilePath: m[1], LineNumber: line, Language: "php"}
			duplicate := len(frames) > 0 &&
				frames[0].FilePath == site.FilePath && frames[0].LineNumber == site.LineNumber
			if !duplicate {
				frames = append([]schemas.StackFrame{site}, frames...)
			}
		}
	}
	return frames
}

func (p *Parser) parsePython(raw string) []schemas.StackFrame {
	var frames []schemas.StackFrame
	for _, m := range pythonFrameRegex.FindAllStringSubmatch(raw, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil || line <= 0 {
			continue
		}
		frames = append(frames, schemas.StackFrame{
			FilePath:     m[1],
			LineNumber:   line,
			FunctionName: m[3],
			Language:     "python",
		})
	}
	return frames
}

// parseGo pairs function-signature lines with the indented file:line that
// follows, skipping runtime and standard-library frames.
func (p *Parser) parseGo(raw string) []schemas.StackFrame {
	lines := strings.Split(raw, "\n")
	var frames []schemas.StackFrame
	for i := 0; i+1 < len(lines); i++ {
		fm := goFuncRegex.FindStringSubmatch(lines[i])
		if fm == nil {
			continue
		}
		lm := goLocationRegex.FindStringSubmatch(lines[i+1])
		if lm == nil {
			continue
		}
		funcName := fm[1]
		filePath := lm[1]
		if strings.HasPrefix(funcName, "runtime.") || strings.HasPrefix(funcName, "panic") {
			continue
		}
		if strings.Contains(filePath, "go/src/") {
			continue
		}
		line, err := strconv.Atoi(lm[2])
		if err != nil || line <= 0 {
			continue
		}
		frames = append(frames, schemas.StackFrame{
			FilePath:     filePath,
			LineNumber:   line,
			FunctionName: funcName,
			Language:     "go",
		})
	}
	return frames
}
