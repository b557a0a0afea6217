package haml

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	hlhtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/hesusruiz/hamlgo/sliceedit"
	"github.com/yuin/goldmark"
	"oss.terrastruct.com/d2/d2graph"
	"oss.terrastruct.com/d2/d2layouts/d2dagrelayout"
	"oss.terrastruct.com/d2/d2lib"
	"oss.terrastruct.com/d2/d2renderers/d2svg"
	"oss.terrastruct.com/d2/d2themes/d2themescatalog"
	"oss.terrastruct.com/d2/lib/textmeasure"
)

// FilterContext is what a filter knows about the place where it is used
type FilterContext struct {
	// Indent is the indentation of the line with the filter name
	Indent string

	// Args is the text after the filter name, like 'go' in ':highlight go'
	Args string

	LineNumber int
	Options    *Options
}

// Filter transforms the dedented body of a filter block into output text
type Filter func(content string, ctx *FilterContext) (string, error)

var (
	filtersMu sync.RWMutex
	filters   = map[string]Filter{
		"plain":        plainFilter,
		"preserve":     preserveFilter,
		"escaped":      escapedFilter,
		"cdata":        cdataFilter,
		"css":          styleFilter("text/css"),
		"stylus":       styleFilter("text/stylus"),
		"less":         styleFilter("text/less"),
		"sass":         styleFilter("text/sass"),
		"javascript":   scriptFilter("text/javascript", "// "),
		"coffee":       scriptFilter("text/coffeescript", "#"),
		"coffeescript": scriptFilter("text/coffeescript", "#"),
		"markdown":     markdownFilter,
		"highlight":    highlightFilter,
		"python":       pythonFilter,
		"d2":           d2Filter,
	}
)

// RegisterFilter adds or replaces a filter for all compilers.
// It is meant to be called at program startup, before compiling.
func RegisterFilter(name string, f Filter) {
	filtersMu.Lock()
	defer filtersMu.Unlock()
	filters[name] = f
}

// LookupFilter returns the filter registered with that name
func LookupFilter(name string) (Filter, error) {
	filtersMu.RLock()
	defer filtersMu.RUnlock()
	f, ok := filters[name]
	if !ok {
		return nil, &ParseError{Msg: "No such filter: " + name, Err: ErrNoSuchFilter}
	}
	return f, nil
}

// dedent removes the indentation common to all the non-blank lines
func dedent(text string) string {
	lines := strings.Split(text, "\n")

	common := -1
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if len(trimmed) == 0 {
			continue
		}
		ind := len(line) - len(trimmed)
		if common < 0 || ind < common {
			common = ind
		}
	}

	for i, line := range lines {
		if len(strings.TrimLeft(line, " \t")) == 0 {
			lines[i] = ""
		} else if common > 0 {
			lines[i] = line[common:]
		}
	}
	return strings.Join(lines, "\n")
}

func plainFilter(content string, ctx *FilterContext) (string, error) {
	return content, nil
}

func preserveFilter(content string, ctx *FilterContext) (string, error) {
	b := sliceedit.NewBuffer([]byte(content))
	b.ReplaceAllString("\n", "&#x000A;")
	return b.String(), nil
}

func escapedFilter(content string, ctx *FilterContext) (string, error) {
	return HTMLEscape(content), nil
}

func cdataFilter(content string, ctx *FilterContext) (string, error) {
	return ctx.Indent + "<![CDATA[\n" + content + "\n" + ctx.Indent + "]]>", nil
}

func styleFilter(mimeType string) Filter {
	return func(content string, ctx *FilterContext) (string, error) {
		opts := ctx.Options

		var sb strings.Builder
		sb.WriteString("<style type=" + opts.quote(mimeType) + ">\n")
		if opts.useCDATA() {
			sb.WriteString("/*<![CDATA[*/\n")
		}
		if len(content) > 0 {
			sb.WriteString(content + "\n")
		}
		if opts.useCDATA() {
			sb.WriteString("/*]]>*/\n")
		}
		sb.WriteString("</style>")
		return sb.String(), nil
	}
}

func scriptFilter(mimeType string, comment string) Filter {
	return func(content string, ctx *FilterContext) (string, error) {
		opts := ctx.Options

		var sb strings.Builder
		sb.WriteString("<script type=" + opts.quote(mimeType) + ">\n")
		if opts.useCDATA() {
			sb.WriteString(comment + "<![CDATA[\n")
		}
		if len(content) > 0 {
			sb.WriteString(content + "\n")
		}
		if opts.useCDATA() {
			sb.WriteString(comment + "]]>\n")
		}
		sb.WriteString("</script>")
		return sb.String(), nil
	}
}

func markdownFilter(content string, ctx *FilterContext) (string, error) {
	md := ctx.Options.Markdown
	if md == nil {
		md = goldmark.New()
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func highlightFilter(content string, ctx *FilterContext) (string, error) {
	if len(content) == 0 {
		return "", nil
	}

	// Determine the lexer: explicit, guessed or Python
	l := lexers.Get(strings.TrimSpace(ctx.Args))
	if l == nil {
		l = lexers.Analyse(content)
	}
	if l == nil {
		l = lexers.Get("python")
	}
	if l == nil {
		l = lexers.Fallback
	}
	l = chroma.Coalesce(l)

	s := styles.Get(ctx.Options.HighlightStyle)

	f := hlhtml.New(hlhtml.Standalone(false), hlhtml.WithClasses(true))

	it, err := l.Tokenise(nil, content)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := f.Format(&buf, s, it); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// pythonFilter runs the content with a Python interpreter and returns what it prints.
// This executes arbitrary code without any sandbox, so it must be enabled explicitly.
func pythonFilter(content string, ctx *FilterContext) (string, error) {
	opts := ctx.Options
	if !opts.AllowPython {
		return "", &ParseError{Msg: "The python filter is disabled", Err: ErrFilterDisabled}
	}
	if len(strings.TrimSpace(content)) == 0 {
		return "", nil
	}

	interpreter := opts.PythonInterpreter
	if len(interpreter) == 0 {
		interpreter = "python3"
	}
	path, err := exec.LookPath(interpreter)
	if err != nil {
		return "", &ParseError{Msg: "Python is not available", Err: ErrNotAvailable}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(path, "-")
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &ParseError{
			Msg: "Error whilst executing python filter node: " + strings.TrimSpace(stderr.String()),
			Err: err,
		}
	}
	return strings.TrimRight(stdout.String(), "\n"), nil
}

// d2Filter renders a D2 diagram description as an inline SVG image
func d2Filter(content string, ctx *FilterContext) (string, error) {
	if len(strings.TrimSpace(content)) == 0 {
		return "", nil
	}

	ruler, err := textmeasure.NewRuler()
	if err != nil {
		return "", err
	}

	defaultLayout := func(ctx context.Context, g *d2graph.Graph) error {
		return d2dagrelayout.Layout(ctx, g, nil)
	}
	diagram, _, err := d2lib.Compile(context.Background(), content, &d2lib.CompileOptions{
		Layout: defaultLayout,
		Ruler:  ruler,
	})
	if err != nil {
		return "", err
	}

	body, err := d2svg.Render(diagram, &d2svg.RenderOpts{
		Pad:     d2svg.DEFAULT_PADDING,
		ThemeID: d2themescatalog.NeutralDefault.ID,
	})
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(body)), nil
}
