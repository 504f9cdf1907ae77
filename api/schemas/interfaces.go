// api/schemas/interfaces.go
package schemas

import "context"

// SourceBackend is a source of file content and listings. Two implementations
// exist: a remote GitHub-backed adapter and a local filesystem adapter.
// Implementations are stateless beyond their configuration and safe for
// concurrent use; every potentially blocking call takes a context so callers
// can bound it with a timeout.
type SourceBackend interface {
	// Name identifies the backend in logs and CodeContext results.
	Name() string

	// ReadFile returns the numbered lines of path. When startLine and endLine
	// are both positive the result is restricted to that inclusive range,
	// clipped to the real extent of the file; passing 0, 0 reads the whole
	// file. Errors are ErrNotFound, ErrAccessDenied or ErrBackendUnavailable
	// (possibly wrapped).
	ReadFile(ctx context.Context, path string, startLine, endLine int) ([]Line, error)

	// ListFiles walks the tree rooted at root and returns the paths of files
	// whose extension is in extensions (empty means all files). The result is
	// sorted lexicographically so traversal order is reproducible across
	// backends and runs.
	ListFiles(ctx context.Context, root string, extensions []string) ([]string, error)
}

// LLMClient is the external collaborator that turns a context bundle into a
// free-text analysis. Implementations live in internal/llmclient.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
