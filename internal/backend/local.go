// internal/backend/local.go
package backend

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

// Local reads source files straight from a mounted filesystem rooted at a
// configured base path. Incoming paths are run through the configured path
// mappings first, so stack-trace paths captured under a different deployment
// root still resolve.
type Local struct {
	basePath string
	maps     []PathMap
	logger   *zap.Logger
}

// NewLocal creates the local filesystem adapter.
func NewLocal(basePath string, maps []PathMap, logger *zap.Logger) *Local {
	return &Local{
		basePath: basePath,
		maps:     maps,
		logger:   logger.Named("backend.local"),
	}
}

// Name implements schemas.SourceBackend.
func (l *Local) Name() string { return "local" }

// resolvePath applies path translation and anchors relative paths at the base.
func (l *Local) resolvePath(path string) string {
	translated := Translate(path, l.maps)
	if !filepath.IsAbs(translated) {
		translated = filepath.Join(l.basePath, translated)
	}
	return translated
}

// ReadFile implements schemas.SourceBackend. Line ranges are clipped to the
// file's extent; a start beyond EOF yields an empty result rather than an
// error.
func (l *Local) ReadFile(ctx context.Context, path string, startLine, endLine int) ([]schemas.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrBackendUnavailable, err)
	}

	full := l.resolvePath(path)
	f, err := os.Open(full)
	if err != nil {
		return nil, l.classify(full, err)
	}
	defer f.Close()

	var lines []schemas.Line
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		if startLine > 0 && num < startLine {
			continue
		}
		if endLine > 0 && num > endLine {
			break
		}
		lines = append(lines, schemas.Line{Number: num, Text: scanner.Text()})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", full, err)
	}
	return lines, nil
}

// ListFiles implements schemas.SourceBackend. Traversal is lexicographic
// (WalkDir guarantees sorted directory entries) and the final list is sorted
// again for a stable cross-backend contract. Extension entries may be bare
// ("php"), dotted (".php"), or glob patterns ("*_test.go").
func (l *Local) ListFiles(ctx context.Context, root string, extensions []string) ([]string, error) {
	base := l.resolvePath(root)
	if _, err := os.Stat(base); err != nil {
		return nil, l.classify(base, err)
	}

	var paths []string
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			l.logger.Debug("Skipping unreadable entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			// Hidden directories (.git and friends) are never useful context.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if matchesExtension(d.Name(), extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", schemas.ErrNotFound, base)
		}
		return nil, fmt.Errorf("failed to walk %s: %w", base, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// matchesExtension accepts a file name against the extension set. An empty set
// matches everything.
func matchesExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		switch {
		case strings.ContainsAny(ext, "*?["):
			if ok, err := doublestar.Match(ext, name); err == nil && ok {
				return true
			}
		default:
			if strings.EqualFold(strings.TrimPrefix(filepath.Ext(name), "."), strings.TrimPrefix(ext, ".")) {
				return true
			}
		}
	}
	return false
}

// classify maps an os error onto the backend taxonomy.
func (l *Local) classify(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %s", schemas.ErrNotFound, path)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %s", schemas.ErrAccessDenied, path)
	default:
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
}
