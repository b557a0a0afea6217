package haml

import "strings"

// Dialect is the destination template tag vocabulary
type Dialect uint32

const (
	Django Dialect = iota
	Jinja2
)

func (d Dialect) String() string {
	switch d {
	case Django:
		return "django"
	case Jinja2:
		return "jinja2"
	}
	return "unknown"
}

// ParseDialect accepts the names used in configuration files and flags
func ParseDialect(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "django", "":
		return Django, true
	case "jinja", "jinja2":
		return Jinja2, true
	}
	return Django, false
}

// tagTables holds, for a dialect, the control tags closed automatically and
// the tags which continue a block instead of starting a new one.
type tagTables struct {
	selfClosing map[string]string
	mayContain  map[string][]string
}

func endTags(names ...string) map[string]string {
	m := make(map[string]string, len(names))
	for _, name := range names {
		m[name] = "end" + name
	}
	return m
}

func (d Dialect) tables() tagTables {
	if d == Jinja2 {
		return tagTables{
			selfClosing: endTags("for", "if", "block", "filter", "with", "call", "macro", "raw"),
			mayContain: map[string][]string{
				"if":  {"else", "elif"},
				"for": {"empty", "else"},
			},
		}
	}

	return tagTables{
		selfClosing: endTags(
			"for", "if", "ifchanged", "ifequal", "ifnotequal", "block", "filter", "autoescape",
			"with", "blocktrans", "spaceless", "comment", "cache", "localize", "call", "macro", "compress",
		),
		mayContain: map[string][]string{
			"blocktrans": {"plural"},
			"if":         {"else", "elif"},
			"ifchanged":  {"else"},
			"ifequal":    {"else"},
			"ifnotequal": {"else"},
			"for":        {"empty"},
		},
	}
}

// withCustomTags returns the tables with the extra self-closing tags added
func (t tagTables) withCustomTags(custom map[string]string) tagTables {
	if len(custom) == 0 {
		return t
	}
	for name, end := range custom {
		t.selfClosing[name] = end
	}
	return t
}

// isClosingTag is true when name is generated automatically, like 'endfor'
func (t tagTables) isClosingTag(name string) bool {
	for _, end := range t.selfClosing {
		if end == name {
			return true
		}
	}
	return false
}

func (t tagTables) mayContainTag(parent, child string) bool {
	return contains(t.mayContain[parent], child)
}
