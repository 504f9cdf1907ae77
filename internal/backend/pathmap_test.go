// internal/backend/pathmap_test.go
package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathMap_Translate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		mapping  PathMap
		input    string
		expected string
	}{
		{
			name:     "Prefix Replaced",
			mapping:  PathMap{From: "/home/x", To: "/Users/x"},
			input:    "/home/x/app/Post.php",
			expected: "/Users/x/app/Post.php",
		},
		{
			name:     "Path Outside Root Unchanged",
			mapping:  PathMap{From: "/home/x", To: "/Users/x"},
			input:    "/srv/app/Post.php",
			expected: "/srv/app/Post.php",
		},
		{
			name:     "Exact Root Match",
			mapping:  PathMap{From: "/home/x", To: "/Users/x"},
			input:    "/home/x",
			expected: "/Users/x",
		},
		{
			name:     "Segment Boundary Respected",
			mapping:  PathMap{From: "/home/x", To: "/Users/x"},
			input:    "/home/xy/app.php",
			expected: "/home/xy/app.php",
		},
		{
			name:     "Empty From Is A NoOp",
			mapping:  PathMap{From: "", To: "/Users/x"},
			input:    "/home/x/app.php",
			expected: "/home/x/app.php",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, tc.mapping.Translate(tc.input))
		})
	}
}

func TestPathMap_RoundTrip(t *testing.T) {
	t.Parallel()

	m := PathMap{From: "/home/x", To: "/Users/x"}
	original := "/home/x/application/controllers/rest/Post.php"

	translated := m.Translate(original)
	assert.Equal(t, "/Users/x/application/controllers/rest/Post.php", translated)
	assert.Equal(t, original, m.Reverse().Translate(translated))
}

func TestPathMap_Idempotent(t *testing.T) {
	t.Parallel()

	m := PathMap{From: "/home/x", To: "/Users/x"}
	once := m.Translate("/home/x/app.php")
	twice := m.Translate(once)
	assert.Equal(t, once, twice)
}

func TestTranslate_FirstMatchWins(t *testing.T) {
	t.Parallel()

	maps := []PathMap{
		{From: "/home/x", To: "/Users/x"},
		{From: "/home", To: "/mnt/home"},
	}
	assert.Equal(t, "/Users/x/a.php", Translate("/home/x/a.php", maps))
	assert.Equal(t, "/mnt/home/y/a.php", Translate("/home/y/a.php", maps))
	assert.Equal(t, "/opt/a.php", Translate("/opt/a.php", maps))
}
