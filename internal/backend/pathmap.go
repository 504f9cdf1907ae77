// internal/backend/pathmap.go
package backend

import (
	"strings"

	"github.com/xkilldash9x/crashlens/internal/config"
)

// PathMap rewrites a path from one deployment root to another. Stack traces
// are captured wherever the application actually ran (a container, a CI
// runner, a production host); the filesystem this service can see is usually
// mounted somewhere else. A PathMap bridges the two.
type PathMap struct {
	From string
	To   string
}

// Translate replaces the From prefix with To. Paths outside From are returned
// unchanged, which makes translation idempotent: once a path carries the To
// root, applying the same mapping again is a no-op.
func (m PathMap) Translate(path string) string {
	if m.From == "" || !hasPathPrefix(path, m.From) {
		return path
	}
	return m.To + path[len(m.From):]
}

// Reverse returns the inverse mapping.
func (m PathMap) Reverse() PathMap {
	return PathMap{From: m.To, To: m.From}
}

// Translate applies the first mapping whose From root prefixes the path.
// Mappings are tried in order; at most one applies.
func Translate(path string, maps []PathMap) string {
	for _, m := range maps {
		if m.From != "" && hasPathPrefix(path, m.From) {
			return m.Translate(path)
		}
	}
	return path
}

// hasPathPrefix reports whether path sits under root at a path-segment
// boundary, so /home/xy does not match root /home/x.
func hasPathPrefix(path, root string) bool {
	if !strings.HasPrefix(path, root) {
		return false
	}
	if len(path) == len(root) {
		return true
	}
	return strings.HasSuffix(root, "/") || path[len(root)] == '/'
}

// MappingsFromConfig converts configured pairs into PathMaps.
func MappingsFromConfig(pairs []config.PathMapping) []PathMap {
	maps := make([]PathMap, 0, len(pairs))
	for _, p := range pairs {
		maps = append(maps, PathMap{From: p.From, To: p.To})
	}
	return maps
}
