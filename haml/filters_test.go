package haml

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Common indentation", "    a\n      b\n    c", "a\n  b\nc"},
		{"Blank lines ignored", "  a\n\n    b", "a\n\n  b"},
		{"Whitespace lines cleared", "  a\n     \n  b", "a\n\nb"},
		{"No indentation", "a\n  b", "a\n  b"},
		{"Empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedent(tt.src))
		})
	}
}

func TestMarkdownFilter(t *testing.T) {
	got, err := NewCompiler(nil).Process("%div\n  :markdown\n    # Title\n\n    Some *text*")
	require.NoError(t, err)
	assert.Equal(t, "<div>\n<h1>Title</h1>\n<p>Some <em>text</em></p>\n</div>\n", got)
}

func TestHighlightFilter(t *testing.T) {
	got, err := NewCompiler(nil).Process(":highlight go\n  package main\n\n  func main() {}")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "<pre"), got)
	assert.Contains(t, got, "main")
	assert.True(t, strings.HasSuffix(got, "</pre>\n"), got)

	// Guessed lexer
	got, err = NewCompiler(nil).Process(":highlight\n  def f():\n      return 1")
	require.NoError(t, err)
	assert.Contains(t, got, "return")

	got, err = NewCompiler(nil).Process(":highlight")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestPythonFilter(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 is not installed")
	}
	c := NewCompiler(&Options{AllowPython: true})

	got, err := c.Process(":python\n  for i in range(3):\n      print(i)\n%p")
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n<p></p>\n", got)

	_, err = c.Process(":python\n  raise ValueError('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error whilst executing python filter node")
	assert.Contains(t, err.Error(), "ValueError: boom")

	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestPythonNotAvailable(t *testing.T) {
	c := NewCompiler(&Options{AllowPython: true, PythonInterpreter: "no-such-python-interpreter"})
	_, err := c.Process(":python\n  print(1)")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAvailable)
	assert.Equal(t, "Python is not available", err.Error())
}

func TestD2Filter(t *testing.T) {
	if testing.Short() {
		t.Skip("diagram rendering is slow")
	}
	got, err := NewCompiler(nil).Process(":d2\n  a -> b")
	require.NoError(t, err)
	assert.Contains(t, got, "<svg")
}

func TestRegisterFilter(t *testing.T) {
	RegisterFilter("reverse-lines", func(content string, ctx *FilterContext) (string, error) {
		lines := strings.Split(content, "\n")
		for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
			lines[i], lines[j] = lines[j], lines[i]
		}
		return strings.Join(lines, "\n"), nil
	})

	f, err := LookupFilter("reverse-lines")
	require.NoError(t, err)
	require.NotNil(t, f)

	got, err := NewCompiler(nil).Process(":reverse-lines\n  a\n  b")
	require.NoError(t, err)
	assert.Equal(t, "b\na\n", got)
}

func TestFilterArgs(t *testing.T) {
	var seen *FilterContext
	c := NewCompiler(&Options{Filters: map[string]Filter{
		"spy": func(content string, ctx *FilterContext) (string, error) {
			seen = ctx
			return content, nil
		},
	}})

	_, err := c.Process("%p\n  :spy some args\n    x")
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, "some args", seen.Args)
	assert.Equal(t, "  ", seen.Indent)
	assert.Equal(t, 2, seen.LineNumber)
}
