// internal/search/engine_test.go
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

type fakeBackend struct {
	files map[string]string
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ReadFile(ctx context.Context, path string, startLine, endLine int) ([]schemas.Line, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", schemas.ErrNotFound, path)
	}
	var lines []schemas.Line
	for i, text := range strings.Split(content, "\n") {
		lines = append(lines, schemas.Line{Number: i + 1, Text: text})
	}
	return lines, nil
}

func (f *fakeBackend) ListFiles(ctx context.Context, root string, extensions []string) ([]string, error) {
	var paths []string
	for p := range f.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxMatches:     50,
		PerFileMatches: 20,
		Extensions:     []string{"php", "py"},
		Concurrency:    4,
	}
}

func TestEngine_Search(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{files: map[string]string{
		"app/Post.php":   "class Post {\n  public $price;\n  function view() {\n    return $this->price;\n  }\n}",
		"app/Router.php": "class Router {\n  // dispatch by price tier\n}",
		"lib/util.py":    "def price_of(post):\n    return post.price",
	}}
	engine := NewEngine(testConfig(), zap.NewNop())

	t.Run("Case Insensitive Substring", func(t *testing.T) {
		t.Parallel()
		matches, err := engine.Search(context.Background(), backend, "", "PRICE")
		require.NoError(t, err)
		require.Len(t, matches, 5)
		assert.Equal(t, "app/Post.php", matches[0].FilePath)
		assert.Equal(t, 2, matches[0].LineNumber)
	})

	t.Run("Deterministic Order", func(t *testing.T) {
		t.Parallel()
		first, err := engine.Search(context.Background(), backend, "", "price")
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := engine.Search(context.Background(), backend, "", "price")
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("No Matches", func(t *testing.T) {
		t.Parallel()
		matches, err := engine.Search(context.Background(), backend, "", "nonexistent_token")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("Empty Query Rejected", func(t *testing.T) {
		t.Parallel()
		_, err := engine.Search(context.Background(), backend, "", "   ")
		assert.Error(t, err)
	})
}

func TestEngine_Caps(t *testing.T) {
	t.Parallel()

	// One file whose every line matches, to exercise the per-file cap, plus
	// enough files to overflow the global cap.
	files := map[string]string{}
	files["big.py"] = strings.TrimSuffix(strings.Repeat("needle\n", 40), "\n")
	for i := 0; i < 30; i++ {
		files[fmt.Sprintf("f%02d.py", i)] = "needle here\nnothing"
	}
	backend := &fakeBackend{files: files}

	cfg := testConfig()
	cfg.PerFileMatches = 5
	cfg.MaxMatches = 12
	engine := NewEngine(cfg, zap.NewNop())

	matches, err := engine.Search(context.Background(), backend, "", "needle")
	require.NoError(t, err)
	require.Len(t, matches, 12)

	// "big.py" sorts first; it contributes exactly the per-file cap.
	perFile := map[string]int{}
	for _, m := range matches {
		perFile[m.FilePath]++
	}
	assert.Equal(t, 5, perFile["big.py"])

	// Remaining slots fill in path order.
	assert.Equal(t, "f00.py", matches[5].FilePath)
	assert.Equal(t, "f06.py", matches[11].FilePath)
}

func TestEngine_SkipsUnreadableFiles(t *testing.T) {
	t.Parallel()

	backend := &listsMoreBackend{fakeBackend: fakeBackend{files: map[string]string{
		"ok.py": "needle",
	}}}
	engine := NewEngine(testConfig(), zap.NewNop())

	matches, err := engine.Search(context.Background(), backend, "", "needle")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ok.py", matches[0].FilePath)
}

// listsMoreBackend advertises a file that cannot be read, simulating a file
// deleted between listing and scanning.
type listsMoreBackend struct {
	fakeBackend
}

func (b *listsMoreBackend) ListFiles(ctx context.Context, root string, extensions []string) ([]string, error) {
	paths, err := b.fakeBackend.ListFiles(ctx, root, extensions)
	if err != nil {
		return nil, err
	}
	return append(paths, "vanished.py"), nil
}
