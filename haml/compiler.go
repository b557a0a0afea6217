// Package haml compiles Haml templates into HTML with Django or Jinja2 template tags.
//
// The template language itself is never evaluated: '{{ }}' and '{% %}' directives
// are generated and passed through as opaque text.
package haml

import (
	"errors"
	"os"
	"strings"

	"github.com/hesusruiz/hamlgo/sliceedit"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// Format is the flavour of HTML generated
type Format uint32

const (
	HTML5 Format = iota
	HTML4
	XHTML
)

func (f Format) String() string {
	switch f {
	case HTML5:
		return "html5"
	case HTML4:
		return "html4"
	case XHTML:
		return "xhtml"
	}
	return "unknown"
}

// ParseFormat accepts the names used in configuration files and flags
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(name) {
	case "html5", "html", "":
		return HTML5, true
	case "html4":
		return HTML4, true
	case "xhtml":
		return XHTML, true
	}
	return HTML5, false
}

const defaultMaxDepth = 16

// Options is the configuration of a Compiler. It must not be modified once the Compiler is created.
type Options struct {
	// AttrWrapper is the quote used for attribute values, a single quote by default
	AttrWrapper byte

	Format Format

	// EscapeAttrs HTML-escapes attribute values instead of backslash-escaping the quote
	EscapeAttrs bool

	// CDATA wraps the content of style and script filters in CDATA guards. Always on for XHTML.
	CDATA bool

	Dialect Dialect

	// CustomSelfClosingTags are control tags closed automatically, as name -> closing name
	CustomSelfClosingTags map[string]string

	// ExtraSelfClosing are element names rendered without closing tag
	ExtraSelfClosing []string

	// Filters take precedence over the ones registered globally
	Filters map[string]Filter

	// AllowPython enables the python filter, which runs arbitrary code
	AllowPython       bool
	PythonInterpreter string

	HighlightStyle string
	Markdown       goldmark.Markdown

	// MaxDepth limits the nesting of Haml blocks inside attribute values
	MaxDepth int

	// DebugTree makes Process return the node tree instead of HTML
	DebugTree bool

	Logger *zap.SugaredLogger
}

func (o *Options) useCDATA() bool {
	return o.CDATA || o.Format == XHTML
}

// quote wraps a value with the attribute quote, escaping the quote inside the value.
// Quotes inside '{% %}' tags are left alone, but not those inside '{{ }}' variables.
func (o *Options) quote(value string) string {
	w := string(o.AttrWrapper)
	if !o.EscapeAttrs {
		value = escapeOutsideTags(value, false, func(ch byte) (string, bool) {
			if ch == o.AttrWrapper {
				return `\` + w, true
			}
			return "", false
		})
	}
	return w + value + w
}

// escapeAttribute is applied to attribute values before quoting
func (o *Options) escapeAttribute(value string) string {
	if o.EscapeAttrs {
		return HTMLEscape(value)
	}
	return value
}

func (o *Options) booleanAttribute(name string) string {
	if o.Format == XHTML {
		return name + "=" + o.quote(name)
	}
	return name
}

// Compiler converts Haml into HTML. It is safe for concurrent use.
type Compiler struct {
	opts *Options
	tags tagTables
	log  *zap.SugaredLogger
}

// NewCompiler creates a compiler with a private copy of the options.
// A nil opts uses the defaults.
func NewCompiler(opts *Options) *Compiler {
	o := Options{}
	if opts != nil {
		o = *opts
	}

	if o.AttrWrapper == 0 {
		o.AttrWrapper = '\''
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaultMaxDepth
	}
	if len(o.HighlightStyle) == 0 {
		o.HighlightStyle = "github"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}

	return &Compiler{
		opts: &o,
		tags: o.Dialect.tables().withCustomTags(o.CustomSelfClosingTags),
		log:  o.Logger,
	}
}

// Options returns the configuration of the compiler
func (c *Compiler) Options() Options {
	return *c.opts
}

// Process compiles a whole Haml template into HTML.
// The first error aborts the compilation and no partial output is returned.
func (c *Compiler) Process(text string) (string, error) {
	if c.opts.DebugTree {
		root, err := c.ParseTree(text)
		if err != nil {
			return "", err
		}
		return root.DebugString(), nil
	}

	c.log.Debugw("compiling", "bytes", len(text))
	return c.process(normalizeNewlines(text), 0)
}

// CompileFile compiles the template in fileName. Parse errors carry the file name.
func (c *Compiler) CompileFile(fileName string) (string, error) {
	src, err := os.ReadFile(fileName)
	if err != nil {
		return "", err
	}

	html, err := c.Process(string(src))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Filename = fileName
		}
		return "", err
	}
	return html, nil
}

// ParseTree builds the node tree of the template, without rendering it
func (c *Compiler) ParseTree(text string) (*Node, error) {
	p := NewParser(c, normalizeNewlines(text), 0)
	return p.Parse()
}

func (c *Compiler) process(text string, depth int) (string, error) {
	if depth > c.opts.MaxDepth {
		return "", &ParseError{Msg: "Maximum nesting depth exceeded.", Err: ErrMaxDepth}
	}

	p := NewParser(c, text, depth)
	root, err := p.Parse()
	if err != nil {
		return "", err
	}

	if err := root.render(); err != nil {
		return "", err
	}
	root.postRender()

	var sb strings.Builder
	root.generateHTML(&sb)
	return sb.String(), nil
}

func (c *Compiler) lookupFilter(name string) (Filter, error) {
	if f, ok := c.opts.Filters[name]; ok {
		return f, nil
	}
	return LookupFilter(name)
}

func normalizeNewlines(text string) string {
	if !strings.Contains(text, "\r\n") {
		return text
	}
	b := sliceedit.NewBuffer([]byte(text))
	b.ReplaceAllString("\r\n", "\n")
	return b.String()
}
