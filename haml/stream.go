package haml

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// contextSize is the number of bytes before the cursor included in error messages
const contextSize = 31

// Stream is a cursor over the source text, shared by all the readers.
// The invariant 0 <= ptr <= length always holds.
type Stream struct {
	text   string
	ptr    int
	length int

	// Cache to compute line numbers incrementally
	linePos int
	line    int
}

func NewStream(text string) *Stream {
	return &Stream{
		text:   text,
		length: len(text),
		line:   1,
	}
}

// AtEOF returns true when the whole text has been consumed
func (s *Stream) AtEOF() bool {
	return s.ptr >= s.length
}

// Peek returns the byte at the cursor, or zero at the end of the input
func (s *Stream) Peek() byte {
	if s.ptr >= s.length {
		return 0
	}
	return s.text[s.ptr]
}

// PeekRune returns the rune at offset bytes after the cursor
func (s *Stream) PeekRune(offset int) rune {
	if s.ptr+offset >= s.length {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.text[s.ptr+offset:])
	return r
}

func (s *Stream) HasPrefix(prefix string) bool {
	return strings.HasPrefix(s.text[s.ptr:], prefix)
}

// Line returns the 1-based line number of the cursor
func (s *Stream) Line() int {
	if s.ptr < s.linePos {
		s.linePos, s.line = 0, 1
	}
	s.line += strings.Count(s.text[s.linePos:s.ptr], "\n")
	s.linePos = s.ptr
	return s.line
}

// Column returns the 1-based byte column of the cursor
func (s *Stream) Column() int {
	return s.ptr - strings.LastIndexByte(s.text[:s.ptr], '\n')
}

// context returns the text surrounding the cursor, ending with the character at the cursor
func (s *Stream) context() string {
	start := s.ptr - contextSize
	if start < 0 {
		start = 0
	}
	for start < s.ptr && !utf8.RuneStart(s.text[start]) {
		start++
	}
	end := s.ptr
	if end < s.length {
		_, size := utf8.DecodeRuneInString(s.text[end:])
		end += size
	}
	return s.text[start:end]
}

// errorf builds a ParseError at the cursor position
func (s *Stream) errorf(format string, args ...any) *ParseError {
	return &ParseError{
		Msg:     fmt.Sprintf(format, args...),
		Context: s.context(),
		Line:    s.Line(),
		Column:  s.Column(),
	}
}

// unexpected reports the character at the cursor as a syntax error
func (s *Stream) unexpected() *ParseError {
	if s.AtEOF() {
		return s.errorf("Unexpected end of input.")
	}
	r, _ := utf8.DecodeRuneInString(s.text[s.ptr:])
	return s.errorf("Unexpected \"%c\".", r)
}

func (s *Stream) expectInput() error {
	if s.AtEOF() {
		return s.errorf("Unexpected end of input.")
	}
	return nil
}

func isWhitespace(ch byte, includeNewlines bool) bool {
	return ch == ' ' || ch == '\t' || (includeNewlines && (ch == '\n' || ch == '\r'))
}

func isQuote(ch byte) bool {
	return ch == '\'' || ch == '"'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordRune(r rune, extra string) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || (r < utf8.RuneSelf && strings.ContainsRune(extra, r))
}

// readWhitespace consumes spaces and tabs (and newlines if requested) and returns them
func (s *Stream) readWhitespace(includeNewlines bool) string {
	start := s.ptr
	for s.ptr < s.length && isWhitespace(s.text[s.ptr], includeNewlines) {
		s.ptr++
	}
	return s.text[start:s.ptr]
}

// readQuotedString reads a single or double quoted string, returning it unescaped.
// The cursor must be on the opening quote.
func (s *Stream) readQuotedString() (string, error) {
	terminator := s.text[s.ptr]
	s.ptr++
	start := s.ptr

	escaped := false
	for {
		if s.AtEOF() {
			return "", s.errorf("Unterminated string (expected %c).", terminator)
		}
		ch := s.text[s.ptr]
		if !escaped && ch == terminator {
			break
		}
		escaped = !escaped && ch == '\\'
		s.ptr++
	}

	value := unescape(s.text[start:s.ptr])
	s.ptr++
	return value, nil
}

// unescape resolves the backslash sequences of a quoted string.
// Unknown sequences are kept as they are.
func unescape(str string) string {
	if !strings.Contains(str, `\`) {
		return str
	}

	var sb strings.Builder
	for i := 0; i < len(str); i++ {
		ch := str[i]
		if ch != '\\' || i+1 == len(str) {
			sb.WriteByte(ch)
			continue
		}
		i++
		switch str[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\', '\'', '"':
			sb.WriteByte(str[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(str[i])
		}
	}
	return sb.String()
}

// readNumber reads an integer or decimal literal, returned as text
func (s *Stream) readNumber() string {
	start := s.ptr
	for s.ptr < s.length && isDigit(s.text[s.ptr]) {
		s.ptr++
	}
	if s.ptr+1 < s.length && s.text[s.ptr] == '.' && isDigit(s.text[s.ptr+1]) {
		s.ptr++
		for s.ptr < s.length && isDigit(s.text[s.ptr]) {
			s.ptr++
		}
	}
	return s.text[start:s.ptr]
}

// readSymbol consumes the first of the candidates found at the cursor.
// Longer candidates sharing a prefix with shorter ones must come first.
func (s *Stream) readSymbol(candidates ...string) (string, error) {
	for _, c := range candidates {
		if s.HasPrefix(c) {
			s.ptr += len(c)
			return c, nil
		}
	}

	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = `"` + c + `"`
	}
	return "", s.errorf("Expected %s.", strings.Join(quoted, " or "))
}

// readWord reads letters, digits, underscores and any of the extra characters.
// A zero-length word is an error.
func (s *Stream) readWord(extra string) (string, error) {
	if err := s.expectInput(); err != nil {
		return "", err
	}

	start := s.ptr
	s.skipWord(extra)
	if start == s.ptr {
		return "", s.unexpected()
	}
	return s.text[start:s.ptr], nil
}

func (s *Stream) skipWord(extra string) {
	for s.ptr < s.length {
		r, size := utf8.DecodeRuneInString(s.text[s.ptr:])
		if !isWordRune(r, extra) {
			return
		}
		s.ptr += size
	}
}

// readLine reads up to the end of the line, consuming the newline.
// It returns false only when the cursor is already at the end of the input.
func (s *Stream) readLine() (string, bool) {
	if s.AtEOF() {
		return "", false
	}

	start := s.ptr
	i := strings.IndexByte(s.text[s.ptr:], '\n')
	if i < 0 {
		s.ptr = s.length
		return s.text[start:], true
	}
	s.ptr += i + 1
	return s.text[start : start+i], true
}

// peekIndentation returns the indentation of the line at the cursor without consuming it.
// The second value is false if the line is blank.
func (s *Stream) peekIndentation() (int, bool) {
	i := s.ptr
	for i < s.length && isWhitespace(s.text[i], false) {
		i++
	}
	if i >= s.length || s.text[i] == '\n' || s.text[i] == '\r' {
		return 0, false
	}
	return i - s.ptr, true
}
