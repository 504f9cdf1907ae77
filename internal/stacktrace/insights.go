// internal/stacktrace/insights.go
package stacktrace

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

var (
	// Post->__construct('POST_10738', '1746', 'yes')
	callSiteRegex = regexp.MustCompile(`(\w+)\(([^()]+)\)`)
	// "must be of the type int, string given"
	typeMismatchRegex = regexp.MustCompile(`must be of (?:the )?type (\w+), (\w+) given`)
)

// highValueCalls are the invocation names whose literal arguments most often
// identify the offending value.
var highValueCalls = map[string]bool{
	"__construct":    true,
	"new":            true,
	"call_user_func": true,
}

// ExtractInsights mines secondary signals from a raw stack trace: the literal
// argument values visible in call frames and any declared type mismatch. This
// is text mining, not parsing; it surfaces what the trace already says so the
// analysis does not have to rediscover it from source.
func (p *Parser) ExtractInsights(raw string) schemas.TraceInsights {
	var insights schemas.TraceInsights

	for _, m := range callSiteRegex.FindAllStringSubmatch(raw, -1) {
		args := strings.TrimSpace(m[2])
		if args == "" {
			continue
		}
		// Skip path-like pseudo matches such as Post.php(828).
		if _, err := strconv.Atoi(args); err == nil {
			continue
		}
		insights.CallSites = append(insights.CallSites, schemas.CallSite{
			Function:  m[1],
			Arguments: args,
		})
	}

	// High-value constructors float to the front.
	sortCallSites(insights.CallSites)

	if m := typeMismatchRegex.FindStringSubmatch(raw); m != nil {
		insights.TypeMismatch = &schemas.TypeMismatch{Expected: m[1], Given: m[2]}
	}
	return insights
}

func sortCallSites(sites []schemas.CallSite) {
	// Stable partition: high-value calls first, original order otherwise.
	front := 0
	for i, s := range sites {
		if highValueCalls[s.Function] {
			site := sites[i]
			copy(sites[front+1:i+1], sites[front:i])
			sites[front] = site
			front++
		}
	}
}
