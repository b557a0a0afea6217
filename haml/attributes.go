package haml

import (
	"errors"
	"regexp"
	"strings"

	"github.com/hesusruiz/hamlgo/sliceedit"
)

// ValueKind tells how an attribute value was written
type ValueKind uint32

const (
	NoValue ValueKind = iota
	StringValue
	ListValue
	TupleValue
	BoolValue
)

// Value is the value of an attribute. Numbers, bare words and nested Haml blocks
// are all stored as StringValue, already in their textual output form.
type Value struct {
	Kind  ValueKind
	Str   string
	Items []string
	Bool  bool
}

// Strings returns the value as a list of strings, for the merging of ids and classes
func (v Value) Strings() []string {
	switch v.Kind {
	case StringValue:
		return []string{v.Str}
	case ListValue, TupleValue:
		return v.Items
	}
	return nil
}

type Attribute struct {
	Key string
	Val Value
}

// Attributes is an ordered mapping, in the order the keys appear in the source
type Attributes []Attribute

func (a Attributes) Get(key string) (Value, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return Value{}, false
}

func (a Attributes) has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Merge adds the entries of other, overriding in place the keys already present
func (a Attributes) Merge(other Attributes) Attributes {
	for _, attr := range other {
		replaced := false
		for i := range a {
			if a[i].Key == attr.Key {
				a[i].Val = attr.Val
				replaced = true
				break
			}
		}
		if !replaced {
			a = append(a, attr)
		}
	}
	return a
}

// dictSyntax describes one of the two dictionary styles
type dictSyntax struct {
	assignment []string
	separator  byte
	terminator byte
}

var (
	rubySyntax = dictSyntax{assignment: []string{"=>", ":"}, separator: ',', terminator: '}'}
	htmlSyntax = dictSyntax{assignment: []string{"="}, terminator: ')'}
)

// readAttributeDict parses a dictionary starting at the cursor, which must be on '{' or '('.
// On return the cursor is just past the closing delimiter.
func (p *Parser) readAttributeDict() (Attributes, error) {
	s := p.s

	var syntax dictSyntax
	switch s.Peek() {
	case '{':
		syntax = rubySyntax
	case '(':
		syntax = htmlSyntax
	default:
		return nil, s.unexpected()
	}
	s.ptr++

	attrs := Attributes{}

	for {
		s.readWhitespace(true)
		if s.AtEOF() {
			return nil, s.errorf("Unterminated attribute dictionary (expected %c).", syntax.terminator)
		}

		if s.Peek() == syntax.terminator {
			s.ptr++
			return attrs, nil
		}

		attr, multiline, err := p.readAttribute(syntax)
		if err != nil {
			return nil, err
		}

		if attrs.has(attr.Key) {
			return nil, s.errorf("Duplicate attribute: \"%s\".", attr.Key)
		}
		attrs = append(attrs, attr)

		s.readWhitespace(true)
		if s.AtEOF() {
			return nil, s.errorf("Unterminated attribute dictionary (expected %c).", syntax.terminator)
		}

		if syntax.separator == 0 || s.Peek() == syntax.terminator {
			continue
		}

		// A nested Haml block ends at a line break, so the separator is optional after it
		if multiline && s.Peek() != syntax.separator {
			continue
		}
		if _, err := s.readSymbol(string(syntax.separator)); err != nil {
			return nil, err
		}
	}
}

// readAttribute parses a single dictionary entry.
// The second return value tells if the value was a nested Haml block.
func (p *Parser) readAttribute(syntax dictSyntax) (Attribute, bool, error) {
	s := p.s

	key, err := p.readAttributeKey()
	if err != nil {
		return Attribute{}, false, err
	}

	ws := s.readWhitespace(false)
	if s.AtEOF() {
		return Attribute{}, false, s.errorf("Unterminated attribute dictionary (expected %c).", syntax.terminator)
	}

	// Valueless attribute, like 'required' or 'disabled'
	ch := s.Peek()
	if ch == syntax.terminator || (syntax.separator != 0 && ch == syntax.separator) {
		return Attribute{Key: key}, false, nil
	}
	if syntax.separator == 0 && ch == ',' {
		return Attribute{}, false, s.unexpected()
	}
	if syntax.separator == 0 && ch != '=' && (len(ws) > 0 || ch == '\n' || ch == '\r') {
		return Attribute{Key: key}, false, nil
	}
	if ch == '\n' || ch == '\r' {
		// The entry may continue on the next line only with a separator or the terminator
		save := s.ptr
		s.readWhitespace(true)
		if next := s.Peek(); next == syntax.terminator || next == syntax.separator {
			return Attribute{Key: key}, false, nil
		}
		s.ptr = save
	}

	if _, err := s.readSymbol(syntax.assignment...); err != nil {
		return Attribute{}, false, err
	}
	s.readWhitespace(false)

	if ch := s.Peek(); ch == '\n' || ch == '\r' {
		html, err := p.readHamlValue()
		if err != nil {
			return Attribute{}, false, err
		}
		return Attribute{Key: key, Val: Value{Kind: StringValue, Str: html}}, true, nil
	}

	val, err := p.readAttributeValue()
	if err != nil {
		return Attribute{}, false, err
	}
	return Attribute{Key: key, Val: val}, false, nil
}

func (p *Parser) readAttributeKey() (string, error) {
	s := p.s

	if isQuote(s.Peek()) {
		key, err := s.readQuotedString()
		if err != nil {
			return "", err
		}
		if len(key) == 0 {
			return "", s.errorf("Empty attribute key.")
		}
		return key, nil
	}

	// Keys may be prefixed with ':', which is ignored
	prefixed := false
	if s.Peek() == ':' {
		s.ptr++
		prefixed = true
	}

	start := s.ptr
	s.skipWord("-")
	if start == s.ptr {
		if prefixed || s.AtEOF() {
			return "", s.errorf("Empty attribute key.")
		}
		return "", s.unexpected()
	}
	return s.text[start:s.ptr], nil
}

// readAttributeValue parses a single line value (not a nested Haml block)
func (p *Parser) readAttributeValue() (Value, error) {
	s := p.s

	ch := s.Peek()
	switch {
	case s.AtEOF():
		return Value{}, s.unexpected()

	case ch == '(' || ch == '[':
		return p.readAttributeList()
	}

	str, isNone, err := p.readLiteral()
	if err != nil {
		return Value{}, err
	}
	if isNone {
		return Value{}, nil
	}

	switch strings.ToLower(str) {
	case "true":
		return Value{Kind: BoolValue, Bool: true}, nil
	case "false":
		return Value{Kind: BoolValue, Bool: false}, nil
	}
	return Value{Kind: StringValue, Str: str}, nil
}

// readLiteral reads a quoted string, a number or a bare word.
// Bare words other than keywords become template variables.
func (p *Parser) readLiteral() (str string, isNone bool, err error) {
	s := p.s

	ch := s.Peek()
	switch {
	case isQuote(ch):
		str, err = s.readQuotedString()
		return str, false, err

	case isDigit(ch):
		return s.readNumber(), false, nil
	}

	word, err := s.readWord(".|")
	if err != nil {
		return "", false, err
	}

	switch strings.ToLower(word) {
	case "none":
		return "", true, nil
	case "true", "false":
		return word, false, nil
	}
	return "{{ " + word + " }}", false, nil
}

// readAttributeList reads a list '[...]' or a tuple '(...)' of literals
func (p *Parser) readAttributeList() (Value, error) {
	s := p.s

	kind, closing := ListValue, byte(']')
	if s.Peek() == '(' {
		kind, closing = TupleValue, ')'
	}
	s.ptr++

	items := []string{}
	for {
		s.readWhitespace(true)
		if s.AtEOF() {
			return Value{}, s.errorf("Unterminated list (expected %c).", closing)
		}
		if s.Peek() == closing {
			s.ptr++
			return Value{Kind: kind, Items: items}, nil
		}

		item, isNone, err := p.readLiteral()
		if err != nil {
			return Value{}, err
		}
		if !isNone {
			items = append(items, item)
		}

		s.readWhitespace(true)
		if s.Peek() != closing {
			if _, err := s.readSymbol(","); err != nil {
				return Value{}, err
			}
		}
	}
}

var reLeadingSpace = regexp.MustCompile(`(?m)^\s+`)

// readHamlValue reads the lines following the cursor which are at least as indented as the first
// of them, compiles them as Haml and returns the result collapsed into a single line.
func (p *Parser) readHamlValue() (string, error) {
	s := p.s

	// Skip the rest of the line with the assignment
	s.readLine()

	// Skip blank lines before the block
	for !s.AtEOF() {
		if _, ok := s.peekIndentation(); ok {
			break
		}
		s.readLine()
	}

	indentation, ok := s.peekIndentation()
	if !ok || indentation == 0 {
		return "", s.unexpected()
	}

	start, startLine := s.ptr, s.Line()
	for !s.AtEOF() {
		if ind, ok := s.peekIndentation(); ok && ind < indentation {
			break
		}
		s.readLine()
	}
	fragment := s.text[start:s.ptr]

	html, err := p.c.process(fragment, p.depth+1)
	if err != nil {
		// Positions inside the fragment are made relative to the whole text
		var pe *ParseError
		if errors.As(err, &pe) {
			if pe.Line > 0 {
				pe.Line += startLine - 1
			} else {
				pe.Line, pe.Column = startLine, indentation+1
			}
		}
		return "", err
	}

	html = reLeadingSpace.ReplaceAllString(html, " ")
	b := sliceedit.NewBuffer([]byte(html))
	b.DeleteAllString("\n")
	return strings.TrimSpace(b.String()), nil
}
