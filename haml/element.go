package haml

import (
	"strings"
)

// selfClosingElements are rendered without closing tag unless they have content
var selfClosingElements = []string{
	"meta", "img", "link", "br", "hr", "input", "source", "track", "area", "base",
	"col", "command", "embed", "keygen", "param", "wbr",
}

func contains(set []string, name string) bool {
	for _, s := range set {
		if s == name {
			return true
		}
	}
	return false
}

// Element is the parsed head of an element line, like '%a#home.link{href: url}< Home'
type Element struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes Attributes

	SelfClose  bool
	NukeInner  bool
	NukeOuter  bool
	IsVariable bool

	// Inline is the trimmed text after the head in the same line
	Inline string
}

// readElement parses an element head at the cursor, consuming the rest of the line
func (p *Parser) readElement() (*Element, error) {
	s := p.s

	el := &Element{Tag: "div"}
	var ids []string

	// A leading '.' not followed by a class name is an implicit div without class
	emptyClass := false

	switch s.Peek() {
	case '%':
		s.ptr++
		tag, err := p.readTagName()
		if err != nil {
			return nil, err
		}
		el.Tag = tag

	case '.':
		if next := s.PeekRune(1); !isWordRune(next, "-") {
			s.ptr++
			emptyClass = true
		}
	}

	// Process all the ids and classes in any order
	for !emptyClass && (s.Peek() == '#' || s.Peek() == '.') {
		isID := s.Peek() == '#'
		s.ptr++
		word, err := s.readWord("-")
		if err != nil {
			return nil, err
		}
		if isID {
			ids = append(ids, word)
		} else {
			el.Classes = append(el.Classes, word)
		}
	}

	// Process all the attribute dictionaries in the tag
	for s.Peek() == '{' || s.Peek() == '(' {
		attrs, err := p.readAttributeDict()
		if err != nil {
			return nil, err
		}
		el.Attributes = el.Attributes.Merge(attrs)
	}

	// The ids and classes in the dictionaries go after the positional ones
	if v, ok := el.Attributes.Get("id"); ok {
		ids = append(ids, v.Strings()...)
	}
	if len(ids) > 0 {
		el.ID = strings.Join(ids, "_")
	}
	if v, ok := el.Attributes.Get("class"); ok {
		el.Classes = append(el.Classes, v.Strings()...)
	}

	if s.Peek() == '>' {
		el.NukeOuter = true
		s.ptr++
	}
	if s.Peek() == '<' {
		el.NukeInner = true
		s.ptr++
	}
	if s.Peek() == '/' {
		el.SelfClose = true
		s.ptr++
	} else {
		el.SelfClose = contains(selfClosingElements, el.Tag) || contains(p.c.opts.ExtraSelfClosing, el.Tag)
	}
	if s.Peek() == '=' {
		el.IsVariable = true
		s.ptr++
	}

	if line, ok := s.readLine(); ok {
		el.Inline = strings.TrimSpace(line)
	}

	return el, nil
}

// readTagName reads a tag name, which may have a namespace like 'fb:tag'
func (p *Parser) readTagName() (string, error) {
	s := p.s

	tag, err := s.readWord("-")
	if err != nil {
		return "", err
	}
	if s.Peek() == ':' {
		s.ptr++
		ns := tag
		tag, err = s.readWord("-")
		if err != nil {
			return "", err
		}
		tag = ns + ":" + tag
	}
	return tag, nil
}

// renderAttributes renders the attributes of the tag, with id and class first
func (el *Element) renderAttributes(opts *Options) string {
	var parts []string

	if len(el.ID) > 0 {
		parts = append(parts, "id="+opts.quote(el.ID))
	}
	if len(el.Classes) > 0 {
		parts = append(parts, "class="+opts.quote(strings.Join(el.Classes, " ")))
	}

	// Process all the other attributes in the tag
	for _, attr := range el.Attributes {
		if attr.Key == "id" || attr.Key == "class" {
			continue
		}

		switch attr.Val.Kind {
		case NoValue:
			parts = append(parts, opts.booleanAttribute(attr.Key))

		case BoolValue:
			if attr.Val.Bool {
				parts = append(parts, opts.booleanAttribute(attr.Key))
			}

		case StringValue:
			parts = append(parts, attr.Key+"="+opts.quote(opts.escapeAttribute(attr.Val.Str)))

		case ListValue, TupleValue:
			parts = append(parts, attr.Key+"="+opts.quote(opts.escapeAttribute(strings.Join(attr.Val.Items, " "))))
		}
	}

	return strings.Join(parts, " ")
}
