// api/schemas/errors.go
package schemas

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the backend error taxonomy. Adapters wrap these with
// fmt.Errorf("...: %w", ...) so callers classify with errors.Is.
var (
	// ErrBackendUnavailable means the backend could not be reached at all
	// (network failure, timeout, bad credentials at the transport level). It
	// is what drives the resolver's fallback chain and is never surfaced raw
	// to the API caller.
	ErrBackendUnavailable = errors.New("source backend unavailable")

	// ErrNotFound means the backend was reachable but the path does not exist
	// under it.
	ErrNotFound = errors.New("file not found")

	// ErrAccessDenied means credentials or permissions were insufficient for
	// the specific path.
	ErrAccessDenied = errors.New("access denied")
)

// ContextUnresolvedError is returned by the resolver when every backend in the
// fallback chain has been exhausted for a frame. It carries the frame and the
// underlying error from each tier so the orchestrator can log both while
// degrading gracefully.
type ContextUnresolvedError struct {
	Frame     StackFrame
	RemoteErr error
	LocalErr  error
}

func (e *ContextUnresolvedError) Error() string {
	return fmt.Sprintf("context unresolved for %s:%d (remote: %v, local: %v)",
		e.Frame.FilePath, e.Frame.LineNumber, e.RemoteErr, e.LocalErr)
}

// TraceParseError indicates the raw stack trace yielded no usable frames. The
// orchestrator treats it as non-fatal and proceeds with an empty frame list.
type TraceParseError struct {
	Reason string
}

func (e *TraceParseError) Error() string {
	return "stack trace parse failed: " + e.Reason
}

// AnalysisBackendError is the only fatal error of an analysis request: the LLM
// call itself failed or timed out. It is surfaced to the caller as a
// structured failure, never as a crash.
type AnalysisBackendError struct {
	Cause error
}

func (e *AnalysisBackendError) Error() string {
	return fmt.Sprintf("analysis backend failed: %v", e.Cause)
}

func (e *AnalysisBackendError) Unwrap() error { return e.Cause }
