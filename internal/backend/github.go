// internal/backend/github.go
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v58/github"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

// GitHub fetches file content and tree listings from one configured
// repository through the GitHub REST API. Stack-trace paths are made
// repository-relative by stripping the configured deployment base path.
//
// Every API call is bounded by the configured timeout and throttled by a
// client-side rate limiter so a burst of analysis requests cannot trip the
// API's abuse detection.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	ref     string
	base    string
	cfg     config.GitHubConfig
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewGitHub creates the remote repository adapter from configuration.
func NewGitHub(cfg config.GitHubConfig, logger *zap.Logger) *GitHub {
	client := github.NewClient(nil)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	return NewGitHubWithClient(cfg, client, logger)
}

// NewGitHubWithClient wires an explicit API client; tests use this with an
// httptest-backed client.
func NewGitHubWithClient(cfg config.GitHubConfig, client *github.Client, logger *zap.Logger) *GitHub {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &GitHub{
		client:  client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		ref:     cfg.Ref,
		base:    cfg.BasePath,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:  logger.Named("backend.github"),
	}
}

// Name implements schemas.SourceBackend.
func (g *GitHub) Name() string { return "github" }

// Probe performs the single cheap availability check the resolver relies on:
// one repository-metadata GET under the configured timeout. A failure here
// commits the resolver to the local fallback.
func (g *GitHub) Probe(ctx context.Context) error {
	ctx, cancel := g.callContext(ctx)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}
	_, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		g.logger.Warn("Remote repository probe failed", zap.Error(err))
		return g.classify("", err)
	}
	return nil
}

// ReadFile implements schemas.SourceBackend via the Contents API. The whole
// file is fetched (the API has no line granularity); the range is applied
// locally with the same clipping rules as the local adapter.
func (g *GitHub) ReadFile(ctx context.Context, path string, startLine, endLine int) ([]schemas.Line, error) {
	repoPath := g.repoRelative(path)

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}

	fileContent, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, repoPath,
		&github.RepositoryContentGetOptions{Ref: g.ref})
	if err != nil {
		return nil, g.classify(repoPath, err)
	}
	if fileContent == nil {
		// The path named a directory.
		return nil, fmt.Errorf("%w: %s is not a file", schemas.ErrNotFound, repoPath)
	}

	content, err := fileContent.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", repoPath, err)
	}

	return sliceLines(content, startLine, endLine), nil
}

// ListFiles implements schemas.SourceBackend via a single recursive Git tree
// fetch, filtered to blobs under root with a matching extension.
func (g *GitHub) ListFiles(ctx context.Context, root string, extensions []string) ([]string, error) {
	repoRoot := strings.Trim(g.repoRelative(root), "/")

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}

	tree, _, err := g.client.Git.GetTree(ctx, g.owner, g.repo, g.ref, true)
	if err != nil {
		return nil, g.classify(repoRoot, err)
	}

	var paths []string
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		p := entry.GetPath()
		if repoRoot != "" && !hasPathPrefix(p, repoRoot) {
			continue
		}
		if matchesExtension(baseName(p), extensions) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// repoRelative strips the deployment base path and any leading slash, since
// the Contents API wants paths relative to the repository root.
func (g *GitHub) repoRelative(path string) string {
	if g.base != "" && hasPathPrefix(path, g.base) {
		path = path[len(g.base):]
	}
	return strings.TrimPrefix(path, "/")
}

func (g *GitHub) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, g.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// classify maps API failures onto the backend taxonomy. Anything that smells
// like "the service itself is unreachable" becomes ErrBackendUnavailable so
// the resolver falls back instead of failing the request.
func (g *GitHub) classify(path string, err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", schemas.ErrNotFound, path)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", schemas.ErrAccessDenied, path)
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: rate limited until %s", schemas.ErrBackendUnavailable, rateErr.Rate.Reset)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}
	// Network-level failures (DNS, refused connections) arrive as url.Errors.
	return fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
}

// sliceLines splits content and applies the inclusive, clipped line range.
func sliceLines(content string, startLine, endLine int) []schemas.Line {
	raw := strings.Split(content, "\n")
	// A trailing newline produces one phantom empty element.
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}

	var lines []schemas.Line
	for i, text := range raw {
		num := i + 1
		if startLine > 0 && num < startLine {
			continue
		}
		if endLine > 0 && num > endLine {
			break
		}
		lines = append(lines, schemas.Line{Number: num, Text: text})
	}
	return lines
}

func baseName(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
