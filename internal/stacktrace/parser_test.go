// internal/stacktrace/parser_test.go
package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/crashlens/api/schemas"
)

const (
	tracePHP = `PHP Fatal error:  Uncaught TypeError: Argument 1 passed to Post::__construct() must be of the type int, string given
#0 /home/x/app/Post.php(828): Post->view('10738')
#1 /home/x/app/Router.php(102): Router->dispatch()
#2 {main}
  thrown in /home/x/app/Post.php on line 851`

	tracePython = `Traceback (most recent call last):
  File "/srv/api/server.py", line 12, in main
    run()
  File "/srv/api/handlers.py", line 88, in run
    process(payload)
  File "/srv/api/post.py", line 42, in process
    return post.price * quantity
TypeError: unsupported operand type(s)`

	traceGo = `panic: runtime error: invalid memory address or nil pointer dereference

goroutine 1 [running]:
net/http.(*conn).serve.func1(0xc000168000)
	/usr/local/go/src/net/http/server.go:1850 +0x139
github.com/acme/api/internal/post.(*Handler).View(0xc000144180)
	/app/internal/post/handler.go:150 +0x5a5
main.main()
	/app/cmd/api/main.go:25 +0x27`
)

func TestParser_Parse(t *testing.T) {
	t.Parallel()
	parser := NewParser()

	t.Run("PHP Frames Innermost First", func(t *testing.T) {
		t.Parallel()
		frames, err := parser.Parse(tracePHP)
		require.NoError(t, err)
		require.Len(t, frames, 3)

		// The "thrown in" site leads, followed by frame #0.
		assert.Equal(t, "/home/x/app/Post.php", frames[0].FilePath)
		assert.Equal(t, 851, frames[0].LineNumber)
		assert.Equal(t, "/home/x/app/Post.php", frames[1].FilePath)
		assert.Equal(t, 828, frames[1].LineNumber)
		assert.Equal(t, "Post->view", frames[1].FunctionName)
		assert.Equal(t, 102, frames[2].LineNumber)
	})

	t.Run("PHP Single Frame", func(t *testing.T) {
		t.Parallel()
		frames, err := parser.Parse(`#0 /home/x/app/Post.php(828): foo()`)
		require.NoError(t, err)
		require.Len(t, frames, 1)
		assert.Equal(t, schemas.StackFrame{
			FilePath:     "/home/x/app/Post.php",
			LineNumber:   828,
			FunctionName: "foo",
			Language:     "php",
		}, frames[0])
	})

	t.Run("Python Frames Reversed To Innermost First", func(t *testing.T) {
		t.Parallel()
		frames, err := parser.Parse(tracePython)
		require.NoError(t, err)
		require.Len(t, frames, 3)
		assert.Equal(t, "/srv/api/post.py", frames[0].FilePath)
		assert.Equal(t, 42, frames[0].LineNumber)
		assert.Equal(t, "process", frames[0].FunctionName)
		assert.Equal(t, "/srv/api/server.py", frames[2].FilePath)
	})

	t.Run("Go Frames Filter Runtime And Stdlib", func(t *testing.T) {
		t.Parallel()
		frames, err := parser.Parse(traceGo)
		require.NoError(t, err)
		require.Len(t, frames, 2)
		assert.Equal(t, "/app/internal/post/handler.go", frames[0].FilePath)
		assert.Equal(t, 150, frames[0].LineNumber)
		assert.Equal(t, "main.main", frames[1].FunctionName)
	})

	t.Run("Empty Trace", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("   \n ")
		var parseErr *schemas.TraceParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("Unrecognizable Text", func(t *testing.T) {
		t.Parallel()
		_, err := parser.Parse("INFO: all good\nWARN: low memory")
		var parseErr *schemas.TraceParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestParser_ExtractInsights(t *testing.T) {
	t.Parallel()
	parser := NewParser()

	t.Run("Constructor Arguments Surface First", func(t *testing.T) {
		t.Parallel()
		raw := `#0 /home/x/app/Post.php(828): Post->view('10738')
#1 /home/x/app/Factory.php(40): __construct('POST_10738', '1746', 'yes')`
		insights := parser.ExtractInsights(raw)

		require.NotEmpty(t, insights.CallSites)
		assert.Equal(t, "__construct", insights.CallSites[0].Function)
		assert.Equal(t, "'POST_10738', '1746', 'yes'", insights.CallSites[0].Arguments)
	})

	t.Run("Type Mismatch Detected", func(t *testing.T) {
		t.Parallel()
		insights := parser.ExtractInsights(tracePHP)
		require.NotNil(t, insights.TypeMismatch)
		assert.Equal(t, "int", insights.TypeMismatch.Expected)
		assert.Equal(t, "string", insights.TypeMismatch.Given)
	})

	t.Run("Bare Line Numbers Ignored", func(t *testing.T) {
		t.Parallel()
		insights := parser.ExtractInsights(`#0 /home/x/app/Post.php(828): {main}`)
		for _, cs := range insights.CallSites {
			assert.NotEqual(t, "828", cs.Arguments)
		}
	})
}
