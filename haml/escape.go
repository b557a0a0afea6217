package haml

import (
	"strings"

	"github.com/hesusruiz/hamlgo/sliceedit"
)

// inlineVariableAt reports if an inline variable like '#{ expr }' starts at position i.
// It returns the position just after the closing brace and the trimmed expression.
func inlineVariableAt(text string, i int) (end int, expr string, ok bool) {
	if i+2 >= len(text) || text[i] != '#' || text[i+1] != '{' {
		return 0, "", false
	}

	closing := strings.IndexByte(text[i+2:], '}')
	if closing < 1 {
		return 0, "", false
	}
	inner := text[i+2 : i+2+closing]
	if strings.ContainsRune(inner, '\n') {
		return 0, "", false
	}

	return i + 2 + closing + 1, strings.TrimSpace(inner), true
}

// startsWithInlineVariable is true for lines starting with '#{expr}' or '\#{expr}'
func startsWithInlineVariable(line string) bool {
	if strings.HasPrefix(line, `\`) {
		line = line[1:]
	}
	_, _, ok := inlineVariableAt(line, 0)
	return ok
}

// ReplaceInlineVariables converts '#{expr}' into '{{ expr }}' and the escaped form '\#{expr}' into '#{expr}'
func ReplaceInlineVariables(text string) string {
	if !strings.Contains(text, "#{") {
		return text
	}

	b := sliceedit.NewBuffer([]byte(text))

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			if end, _, ok := inlineVariableAt(text, i+1); ok {
				b.Delete(i, i+1)
				i = end - 1
			}
		case '#':
			if end, expr, ok := inlineVariableAt(text, i); ok {
				b.Replace(i, end, "{{ "+expr+" }}")
				i = end - 1
			}
		}
	}

	return b.String()
}

// EscapeInlineVariables protects every inline variable in text, so ReplaceInlineVariables
// leaves it untouched except for removing the protection.
func EscapeInlineVariables(text string) string {
	b := sliceedit.NewBuffer([]byte(text))
	for _, hit := range sliceedit.FindAll([]byte(text), "#{") {
		if _, _, ok := inlineVariableAt(text, hit); ok {
			b.Insert(hit, `\`)
		}
	}
	return b.String()
}

var htmlEntities = map[byte]string{
	'&':  "&amp;",
	'<':  "&lt;",
	'>':  "&gt;",
	'"':  "&quot;",
	'\'': "&#39;",
}

// HTMLEscape escapes the HTML special characters of text, except inside template tags
func HTMLEscape(text string) string {
	return escapeOutsideTags(text, true, func(ch byte) (string, bool) {
		entity, ok := htmlEntities[ch]
		return entity, ok
	})
}

// escapeOutsideTags applies the replacement function to every byte outside '{% %}' tags,
// and also outside '{{ }}' variables when skipVariables is set
func escapeOutsideTags(text string, skipVariables bool, replace func(ch byte) (string, bool)) string {
	b := sliceedit.NewBuffer([]byte(text))

	for i := 0; i < len(text); i++ {
		if strings.HasPrefix(text[i:], "{%") || (skipVariables && strings.HasPrefix(text[i:], "{{")) {
			closing := "%}"
			if text[i+1] == '{' {
				closing = "}}"
			}
			if end := strings.Index(text[i+2:], closing); end >= 0 {
				i += 2 + end + len(closing) - 1
				continue
			}
		}
		if r, ok := replace(text[i]); ok {
			b.Replace(i, i+1, r)
		}
	}

	return b.String()
}
