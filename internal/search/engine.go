// internal/search/engine.go

// Package search implements keyword search over the source tree served by a
// backend adapter. Matching is case-insensitive substring matching over whole
// lines; results are deterministic for a given tree regardless of the worker
// count.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

// Engine fans a query out across the files of a backend.
type Engine struct {
	cfg    config.SearchConfig
	logger *zap.Logger
}

// NewEngine creates a search engine with the given limits.
func NewEngine(cfg config.SearchConfig, logger *zap.Logger) *Engine {
	if cfg.PerFileMatches <= 0 {
		cfg.PerFileMatches = 20
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Engine{cfg: cfg, logger: logger.Named("search")}
}

// Search scans every file under root whose extension is configured and returns
// the lines containing query, ordered by file path then line number. Files are
// scanned concurrently but the result order does not depend on scheduling: the
// file list from the backend is sorted, per-file results keep their slot, and
// the global cap is applied after a final sort.
func (e *Engine) Search(ctx context.Context, backend schemas.SourceBackend, root, query string) ([]schemas.SearchMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}

	files, err := backend.ListFiles(ctx, root, e.cfg.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %q: %w", root, err)
	}
	e.logger.Debug("Search starting",
		zap.String("query", query),
		zap.String("root", root),
		zap.Int("files", len(files)))

	needle := strings.ToLower(query)
	perFile := make([][]schemas.SearchMatch, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			matches, err := e.scanFile(gctx, backend, path, needle)
			if err != nil {
				// A file that vanished or turned unreadable mid-scan is not a
				// search failure; skip it.
				e.logger.Debug("Skipping unreadable file", zap.String("file", path), zap.Error(err))
				return nil
			}
			perFile[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []schemas.SearchMatch
	for _, matches := range perFile {
		all = append(all, matches...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].FilePath != all[j].FilePath {
			return all[i].FilePath < all[j].FilePath
		}
		return all[i].LineNumber < all[j].LineNumber
	})
	if len(all) > e.cfg.MaxMatches {
		all = all[:e.cfg.MaxMatches]
	}
	return all, nil
}

func (e *Engine) scanFile(ctx context.Context, backend schemas.SourceBackend, path, needle string) ([]schemas.SearchMatch, error) {
	lines, err := backend.ReadFile(ctx, path, 0, 0)
	if err != nil {
		return nil, err
	}
	var matches []schemas.SearchMatch
	for _, ln := range lines {
		if !strings.Contains(strings.ToLower(ln.Text), needle) {
			continue
		}
		matches = append(matches, schemas.SearchMatch{
			FilePath:   path,
			LineNumber: ln.Number,
			LineText:   ln.Text,
		})
		if len(matches) >= e.cfg.PerFileMatches {
			break
		}
	}
	return matches, nil
}
