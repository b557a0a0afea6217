package haml

import (
	"strings"
)

// Parser builds the node tree of a template. Attribute values with nested Haml
// are compiled by a new Parser one level deeper.
type Parser struct {
	s     *Stream
	c     *Compiler
	depth int

	// root is the node containing the whole template
	root *Node

	// prev is the last node read, which receives the blank lines after it
	prev *Node
}

// NewParser creates a parser over the text, for the configuration of the compiler
func NewParser(c *Compiler, text string, depth int) *Parser {
	p := &Parser{
		s:     NewStream(text),
		c:     c,
		depth: depth,
	}
	p.root = &Node{
		Type:        RootNode,
		c:           c,
		Indentation: -2,
	}
	return p
}

// Parse reads all the nodes of the template and returns the root of the tree
func (p *Parser) Parse() (*Node, error) {
	for {
		node, err := p.readNode()
		if err != nil {
			return nil, err
		}
		if node == nil {
			break
		}
		p.root.addNode(node)
		p.prev = node
	}

	p.c.log.Debugw("template parsed", "depth", p.depth, "lines", p.s.Line())
	return p.root, nil
}

// readNode reads the next node, or nil at the end of the input
func (p *Parser) readNode() (*Node, error) {
	s := p.s

	for {
		indent := s.readWhitespace(false)
		if s.AtEOF() {
			return nil, nil
		}

		// Blank lines are accounted in the previous node
		if s.Peek() == '\n' {
			if p.prev != nil {
				p.prev.Newlines++
			}
			s.ptr++
			continue
		}

		node := &Node{
			c:           p.c,
			Spaces:      indent,
			Indentation: len(indent),
			LineNumber:  s.Line(),
		}

		switch ch := s.Peek(); {
		case ch == ':':
			return p.readFilterNode(node)

		case (ch == '%' || ch == '#' || ch == '.') && !s.HasPrefix("#{"):
			start := s.ptr
			el, err := p.readElement()
			if err != nil {
				return nil, err
			}
			node.Type = ElementNode
			node.Element = el
			node.Haml = strings.TrimRight(s.text[start:s.ptr], "\n")
			return node, nil
		}

		line, _ := s.readLine()
		return p.newLineNode(node, strings.TrimRight(line, " \t"))
	}
}

// newLineNode classifies a single line node by its first characters
func (p *Parser) newLineNode(node *Node, line string) (*Node, error) {
	node.Haml = line

	switch {
	case startsWithInlineVariable(line):
		node.Type = PlainTextNode

	case strings.HasPrefix(line, `\`):
		node.Type = PlainTextNode

	case strings.HasPrefix(line, "!!!"):
		node.Type = DoctypeNode

	case strings.HasPrefix(line, "/["):
		node.Type = ConditionalCommentNode

	case strings.HasPrefix(line, "/"):
		node.Type = CommentNode

	case strings.HasPrefix(line, "-#"), strings.HasPrefix(line, "=#"):
		node.Type = HamlCommentNode

	case strings.HasPrefix(line, "="):
		node.Type = VariableNode

	case strings.HasPrefix(line, "-"):
		node.Type = TagNode
		node.TagStatement = strings.TrimSpace(strings.TrimLeft(line, "-"))
		node.TagName, _, _ = strings.Cut(node.TagStatement, " ")

		if p.c.tags.isClosingTag(node.TagName) {
			return nil, &ParseError{
				Msg:     "Unexpected closing tag for self-closing tag \"" + node.TagName + "\".",
				Context: line,
				Line:    node.LineNumber,
				Column:  node.Indentation + 1,
			}
		}

	default:
		node.Type = PlainTextNode
	}

	return node, nil
}

// readFilterNode reads a filter marker and all the lines more indented than it
func (p *Parser) readFilterNode(node *Node) (*Node, error) {
	s := p.s

	// Skip the ':'
	s.ptr++
	header, _ := s.readLine()
	header = strings.TrimSpace(header)

	name, args, _ := strings.Cut(header, " ")
	if len(name) == 0 {
		return nil, s.errorf("Expected a filter name.")
	}

	var lines []string
	for !s.AtEOF() {
		if ind, ok := s.peekIndentation(); ok && ind <= node.Indentation {
			break
		}
		line, _ := s.readLine()
		if len(strings.TrimSpace(line)) == 0 {
			line = ""
		}
		lines = append(lines, line)
	}

	node.Type = FilterNode
	node.Haml = ":" + header
	node.FilterName = name
	node.FilterArgs = strings.TrimSpace(args)
	node.Content = dedent(strings.Join(lines, "\n"))
	return node, nil
}
