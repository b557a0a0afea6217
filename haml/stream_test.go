package haml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLine(t *testing.T) {
	s := NewStream("line1\n line2\n\nline4\n\n")

	for _, want := range []string{"line1", " line2", "", "line4", ""} {
		got, ok := s.readLine()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := s.readLine()
	assert.False(t, ok)
	assert.True(t, s.AtEOF())
}

func TestReadNumber(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"123", "123"},
		{"123.4xx", "123.4"},
		{"12.x", "12"},
		{"0.5, 3", "0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, NewStream(tt.src).readNumber())
		})
	}
}

func TestReadWord(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		extra   string
		want    string
		wantErr string
	}{
		{name: "plain", src: "foo_bar baz", want: "foo_bar"},
		{name: "no hyphen", src: "ng-repeat(", want: "ng"},
		{name: "with hyphen", src: "ng-repeat(", extra: "-", want: "ng-repeat"},
		{name: "unicode", src: "これはテストです rest", want: "これはテストです"},
		{name: "empty", src: "(x", wantErr: `Unexpected "(". @ "(" <-`},
		{name: "eof", src: "", wantErr: "Unexpected end of input."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStream(tt.src).readWord(tt.extra)
			if len(tt.wantErr) > 0 {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadQuotedString(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		want    string
		rest    string
		wantErr bool
	}{
		{name: "single", src: "'hello' x", want: "hello", rest: " x"},
		{name: "double", src: `"hello \"world\""`, want: `hello "world"`},
		{name: "escaped quote", src: `'it\'s'`, want: "it's"},
		{name: "other quote inside", src: `"it's"`, want: "it's"},
		{name: "escaped backslash", src: `'a\\' b`, want: `a\`, rest: " b"},
		{name: "newline escape", src: `'a\nb'`, want: "a\nb"},
		{name: "unknown escape", src: `'\%'`, want: `\%`},
		{name: "unterminated", src: "'hello", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream(tt.src)
			got, err := s.readQuotedString()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Unterminated string (expected ').")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rest, s.text[s.ptr:])
		})
	}
}

func TestReadSymbol(t *testing.T) {
	s := NewStream("=> 'x'")
	got, err := s.readSymbol("=>", ":")
	require.NoError(t, err)
	assert.Equal(t, "=>", got)

	s = NewStream(": 'x'")
	got, err = s.readSymbol("=>", ":")
	require.NoError(t, err)
	assert.Equal(t, ":", got)

	_, err = NewStream("x").readSymbol("=>", ":")
	require.Error(t, err)
	assert.Equal(t, `Expected "=>" or ":". @ "x" <-`, err.Error())
}

func TestReadWhitespace(t *testing.T) {
	s := NewStream(" \t\n x")
	assert.Equal(t, " \t", s.readWhitespace(false))
	assert.Equal(t, "\n ", s.readWhitespace(true))
	assert.Equal(t, byte('x'), s.Peek())
}

func TestPeekIndentation(t *testing.T) {
	tests := []struct {
		src    string
		want   int
		wantOk bool
	}{
		{"    abc", 4, true},
		{"abc", 0, true},
		{"\tabc", 1, true},
		{"   \nabc", 0, false},
		{"   ", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			s := NewStream(tt.src)
			got, ok := s.peekIndentation()
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 0, s.ptr)
		})
	}
}

func TestErrorPosition(t *testing.T) {
	s := NewStream("first\nsecond line\nthird")
	s.readLine()
	s.ptr += 7

	err := s.unexpected()
	assert.Equal(t, 2, err.Line)
	assert.Equal(t, 8, err.Column)
	assert.Equal(t, "Unexpected \"l\". @ \"first\nsecond l\" <-", err.Error())
}

func TestErrorContextIsLimited(t *testing.T) {
	text := "0123456789012345678901234567890123456789x"
	s := NewStream(text)
	s.ptr = len(text) - 1

	err := s.unexpected()
	assert.Equal(t, text[len(text)-1-contextSize:], err.Context)
}
