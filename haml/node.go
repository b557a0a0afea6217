package haml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type TreeNode struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node
}

// AppendChild adds a node child as a child of parent.
//
// It will panic if child already has a parent or siblings.
func (parent *Node) AppendChild(child *Node) {
	if child.Parent != nil || child.PrevSibling != nil || child.NextSibling != nil {
		panic("AppendChild called for an already attached child Node")
	}
	last := parent.LastChild
	if last != nil {
		last.NextSibling = child
	} else {
		parent.FirstChild = child
	}

	// In any case, the new node will be the last child of the parent
	parent.LastChild = child

	child.Parent = parent
	child.PrevSibling = last
}

// A NodeType is the type of a Node.
type NodeType uint32

const (
	RootNode NodeType = iota
	PlainTextNode
	ElementNode
	CommentNode
	ConditionalCommentNode
	DoctypeNode
	HamlCommentNode
	VariableNode
	TagNode
	FilterNode
)

// String returns a string representation of the NodeType.
func (n NodeType) String() string {
	switch n {
	case RootNode:
		return "RootNode"
	case PlainTextNode:
		return "PlainTextNode"
	case ElementNode:
		return "ElementNode"
	case CommentNode:
		return "CommentNode"
	case ConditionalCommentNode:
		return "ConditionalCommentNode"
	case DoctypeNode:
		return "DoctypeNode"
	case HamlCommentNode:
		return "HamlCommentNode"
	case VariableNode:
		return "VariableNode"
	case TagNode:
		return "TagNode"
	case FilterNode:
		return "FilterNode"
	}
	return "InvalidNode(" + strconv.Itoa(int(n)) + ")"
}

// Node is one line (or multi-line construct) of the source.
// Before and After are filled by render and rewritten by the whitespace control pass.
type Node struct {
	TreeNode
	Type NodeType
	c    *Compiler

	// Haml is the source line without indentation
	Haml        string
	Spaces      string
	Indentation int
	LineNumber  int

	// Newlines is the number of blank lines after this node
	Newlines int

	Before string
	After  string
	Empty  bool

	// Only for ElementNode
	Element *Element

	// Only for TagNode
	TagName      string
	TagStatement string

	// Only for FilterNode
	FilterName string
	FilterArgs string
	Content    string
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(indent=%d, newlines=%d): %s", n.Type, n.Indentation, n.Newlines, n.Haml)
}

// DebugString returns the tree below n, one node per line
func (n *Node) DebugString() string {
	var sb strings.Builder
	n.debugTree(&sb, 0)
	return sb.String()
}

func (n *Node) debugTree(sb *strings.Builder, level int) {
	sb.WriteString(strings.Repeat("  ", level))
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		child.debugTree(sb, level+1)
	}
}

// addNode inserts a new node in the subtree of n, at the position given by its indentation
func (n *Node) addNode(node *Node) {
	parent := n
	for parent.shouldGoInsideLastChild(node) {
		parent = parent.LastChild
	}
	parent.AppendChild(node)
}

func (n *Node) shouldGoInsideLastChild(node *Node) bool {
	last := n.LastChild
	if last == nil {
		return false
	}
	return node.Indentation > last.Indentation ||
		(node.Indentation == last.Indentation && last.shouldContain(node))
}

// shouldContain is true for continuation tags, like an 'else' after an 'if'
func (n *Node) shouldContain(node *Node) bool {
	return n.Type == TagNode && node.Type == TagNode && n.c.tags.mayContainTag(n.TagName, node.TagName)
}

func (n *Node) renderNewlines() string {
	return strings.Repeat("\n", n.Newlines+1)
}

func (n *Node) renderChildren() error {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if err := child.render(); err != nil {
			return err
		}
	}
	return nil
}

// render sets the Before and After fragments of the node and its descendants.
// Children of variables, doctypes, filters and Haml comments are not rendered.
func (n *Node) render() error {
	switch n.Type {

	case RootNode:
		return n.renderChildren()

	case PlainTextNode:
		n.renderPlainText()
		return n.renderChildren()

	case ElementNode:
		n.renderElement()
		return n.renderChildren()

	case CommentNode:
		n.renderComment()
		return n.renderChildren()

	case ConditionalCommentNode:
		n.renderConditionalComment()
		return n.renderChildren()

	case DoctypeNode:
		n.renderDoctype()

	case HamlCommentNode:
		n.Empty = true
		if n.Newlines > 0 {
			n.After = strings.Repeat("\n", n.Newlines)
		}

	case VariableNode:
		content := strings.TrimSpace(strings.TrimLeft(n.Haml, "="))
		n.Before = n.Spaces + "{{ " + content + " }}"
		n.After = n.renderNewlines()

	case TagNode:
		n.renderTag()
		return n.renderChildren()

	case FilterNode:
		return n.renderFilter()
	}

	return nil
}

func (n *Node) renderPlainText() {
	text := ReplaceInlineVariables(n.Haml)
	text = strings.TrimPrefix(text, `\`)

	if n.FirstChild != nil {
		n.Before = n.Spaces + text + n.renderNewlines()
	} else {
		n.Before = n.Spaces + text
		n.After = n.renderNewlines()
	}
}

func (n *Node) renderElement() {
	el := n.Element
	opts := n.c.opts

	var sb strings.Builder
	sb.WriteString(n.Spaces)
	sb.WriteString("<")
	sb.WriteString(el.Tag)
	if attrs := el.renderAttributes(opts); len(attrs) > 0 {
		sb.WriteString(" ")
		sb.WriteString(ReplaceInlineVariables(attrs))
	}

	content := el.Inline
	if el.IsVariable && len(content) > 0 {
		content = "{{ " + content + " }}"
	} else {
		content = ReplaceInlineVariables(content)
	}
	if el.NukeInner {
		content = strings.TrimSpace(content)
	}

	hasChildren := n.FirstChild != nil

	switch {
	case el.SelfClose && len(content) == 0:
		sb.WriteString(" />")
	case len(content) > 0:
		sb.WriteString(">")
		sb.WriteString(content)
	case hasChildren:
		sb.WriteString(">")
		sb.WriteString(n.renderNewlines())
	default:
		sb.WriteString(">")
	}
	n.Before = sb.String()

	switch {
	case len(content) > 0:
		n.After = "</" + el.Tag + ">" + n.renderNewlines()
	case el.SelfClose:
		n.After = n.renderNewlines()
	case hasChildren:
		n.After = n.Spaces + "</" + el.Tag + ">\n"
	default:
		n.After = "</" + el.Tag + ">\n"
	}
}

func (n *Node) renderComment() {
	n.After = "-->\n"
	if n.FirstChild != nil {
		n.Before = "<!-- " + n.renderNewlines()
		return
	}
	text := strings.TrimSpace(strings.TrimPrefix(n.Haml, "/"))
	n.Before = "<!-- " + ReplaceInlineVariables(text) + " "
}

func (n *Node) renderConditionalComment() {
	conditional := n.Haml[1:]
	rest := ""
	if end := strings.IndexByte(conditional, ']'); end >= 0 {
		rest = conditional[end+1:]
		conditional = conditional[:end+1]
	}

	if n.FirstChild != nil {
		n.Before = "<!--" + conditional + ">\n"
	} else {
		n.Before = "<!--" + conditional + ">" + rest
	}
	n.After = "<![endif]-->\n"
}

var doctypes = map[string]string{
	"":         `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">`,
	"strict":   `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
	"frameset": `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Frameset//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-frameset.dtd">`,
	"5":        `<!DOCTYPE html>`,
	"1.1":      `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`,
}

var html4Doctypes = map[string]string{
	"":         `<!DOCTYPE html PUBLIC "-//W3C//DTD HTML 4.01 Transitional//EN" "http://www.w3.org/TR/html4/loose.dtd">`,
	"strict":   `<!DOCTYPE html PUBLIC "-//W3C//DTD HTML 4.01//EN" "http://www.w3.org/TR/html4/strict.dtd">`,
	"frameset": `<!DOCTYPE html PUBLIC "-//W3C//DTD HTML 4.01 Frameset//EN" "http://www.w3.org/TR/html4/frameset.dtd">`,
}

func (n *Node) renderDoctype() {
	opts := n.c.opts
	kind := strings.TrimSpace(strings.TrimPrefix(n.Haml, "!!!"))
	fields := strings.Fields(kind)

	switch {
	case len(fields) > 0 && strings.EqualFold(fields[0], "xml"):
		encoding := "utf-8"
		if len(fields) > 1 {
			encoding = fields[1]
		}
		n.Before = "<?xml version=" + opts.quote("1.0") + " encoding=" + opts.quote(encoding) + " ?>"

	case opts.Format == HTML4 && len(html4Doctypes[strings.ToLower(kind)]) > 0:
		n.Before = html4Doctypes[strings.ToLower(kind)]

	default:
		n.Before = doctypes[strings.ToLower(kind)]
	}

	n.After = n.renderNewlines()
}

func (n *Node) renderTag() {
	n.Before = n.Spaces + "{% " + n.TagStatement + " %}"

	if end, ok := n.c.tags.selfClosing[n.TagName]; ok {
		n.Before += n.renderNewlines()
		n.After = n.Spaces + "{% " + end + " %}" + n.renderNewlines()
		return
	}

	if n.FirstChild != nil {
		n.Before += n.renderNewlines()
	} else {
		n.After = n.renderNewlines()
	}
}

func (n *Node) renderFilter() error {
	filter, err := n.c.lookupFilter(n.FilterName)
	if err != nil {
		return n.filterError(err)
	}

	n.c.log.Debugw("applying filter", "filter", n.FilterName, "line", n.LineNumber)

	out, err := filter(n.Content, &FilterContext{
		Indent:     n.Spaces,
		Args:       n.FilterArgs,
		LineNumber: n.LineNumber,
		Options:    n.c.opts,
	})
	if err != nil {
		return n.filterError(err)
	}

	n.Before = out
	if len(out) > 0 {
		n.After = n.renderNewlines()
	} else {
		n.Empty = true
	}
	return nil
}

// filterError attaches the position of the filter to errors raised while applying it
func (n *Node) filterError(err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Line == 0 {
			pe.Line = n.LineNumber
			pe.Column = n.Indentation + 1
		}
		return pe
	}
	return &ParseError{
		Msg:    fmt.Sprintf("Error in filter %s: %v", n.FilterName, err),
		Line:   n.LineNumber,
		Column: n.Indentation + 1,
		Err:    err,
	}
}

// postRender applies the whitespace control of elements, once every node has been rendered.
// This is the only place where a node modifies the fragments of other nodes.
func (n *Node) postRender() {
	switch n.Type {
	case HamlCommentNode, VariableNode, FilterNode, DoctypeNode:
		return
	case ElementNode:
		if n.Element.NukeInner {
			n.nukeInnerWhitespace()
		}
		if n.Element.NukeOuter {
			n.nukeOuterWhitespace()
		}
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		child.postRender()
	}
}

func (n *Node) nukeInnerWhitespace() {
	n.Before = strings.TrimRight(n.Before, " \t\n")
	n.After = strings.TrimLeft(n.After, " \t\n")

	if first := n.firstRenderedChild(); first != nil {
		first.Before = strings.TrimLeft(first.Before, " \t\n")
	}
	if last := n.lastRenderedChild(); last != nil {
		last.After = strings.TrimRight(last.After, " \t\n")
	}
}

func (n *Node) nukeOuterWhitespace() {
	if left := n.PrevSibling; left != nil {
		left.After = strings.TrimRight(left.After, " \t\n")
		left.Newlines = 0
	} else if n.Parent != nil {
		n.Parent.Before = strings.TrimRight(n.Parent.Before, " \t\n")
	}

	n.Before = strings.TrimLeft(n.Before, " \t\n")
	n.After = strings.TrimRight(n.After, " \t\n")

	if right := n.NextSibling; right != nil {
		right.Before = strings.TrimLeft(right.Before, " \t\n")
	} else if n.Parent != nil {
		n.Parent.After = strings.TrimLeft(n.Parent.After, " \t\n")
		n.Parent.Newlines = 0
	}
}

func (n *Node) firstRenderedChild() *Node {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !child.Empty {
			return child
		}
	}
	return nil
}

func (n *Node) lastRenderedChild() *Node {
	for child := n.LastChild; child != nil; child = child.PrevSibling {
		if !child.Empty {
			return child
		}
	}
	return nil
}

// generateHTML writes the fragments of the subtree in document order
func (n *Node) generateHTML(sb *strings.Builder) {
	sb.WriteString(n.Before)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		child.generateHTML(sb)
	}
	sb.WriteString(n.After)
}
