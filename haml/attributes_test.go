package haml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDict(text string) (Attributes, error) {
	p := NewParser(NewCompiler(nil), text, 0)
	return p.readAttributeDict()
}

func str(s string) Value {
	return Value{Kind: StringValue, Str: s}
}

func TestReadAttributeDict(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Attributes
	}{
		{
			name: "Empty",
			src:  "{}",
			want: Attributes{},
		},
		{
			name: "Python style",
			src:  "{'a': 'b', 'c': 2.5}",
			want: Attributes{{"a", str("b")}, {"c", str("2.5")}},
		},
		{
			name: "Ruby style",
			src:  "{:class => 'test', data: 123}",
			want: Attributes{{"class", str("test")}, {"data", str("123")}},
		},
		{
			name: "Ruby style over lines",
			src:  "{'class': 'a',\n    'href': '/'\n}",
			want: Attributes{{"class", str("a")}, {"href", str("/")}},
		},
		{
			name: "HTML style",
			src:  "(:class='test' :data-number = 123\n foo=\"bar\")",
			want: Attributes{{"class", str("test")}, {"data-number", str("123")}, {"foo", str("bar")}},
		},
		{
			name: "HTML style valueless",
			src:  "(disabled type='checkbox' checked)",
			want: Attributes{{"disabled", Value{}}, {"type", str("checkbox")}, {"checked", Value{}}},
		},
		{
			name: "Valueless",
			src:  "{required, a: 'b'}",
			want: Attributes{{"required", Value{}}, {"a", str("b")}},
		},
		{
			name: "Keywords and variables",
			src:  "{a: None, b: true, c: False, d: user.name}",
			want: Attributes{
				{"a", Value{}},
				{"b", Value{Kind: BoolValue, Bool: true}},
				{"c", Value{Kind: BoolValue, Bool: false}},
				{"d", str("{{ user.name }}")},
			},
		},
		{
			name: "Lists and tuples",
			src:  "{'id': ['a', 'b'], 'class': ('c', 3, x)}",
			want: Attributes{
				{"id", Value{Kind: ListValue, Items: []string{"a", "b"}}},
				{"class", Value{Kind: TupleValue, Items: []string{"c", "3", "{{ x }}"}}},
			},
		},
		{
			name: "Quoted key with colon",
			src:  "{'xml:lang': 'en'}",
			want: Attributes{{"xml:lang", str("en")}},
		},
		{
			name: "Trailing comma",
			src:  "{a: 1,}",
			want: Attributes{{"a", str("1")}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDict(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Parsing is deterministic
			again, err := parseDict(tt.src)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestReadAttributeDictErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"Empty quoted key", "{'': 'test'}", `Empty attribute key. @ "{'':" <-`},
		{"Empty prefixed key", "{: 'test'}", `Empty attribute key. @ "{: " <-`},
		{"Unterminated string", "{'test: 123}", `Unterminated string (expected '). @ "{'test: 123}" <-`},
		{"Duplicate key", "{class: 'test', class: 'bar'}", `Duplicate attribute: "class". @ "{class: 'test', class: 'bar'}" <-`},
		{"Duplicate key HTML style", "(class='test' class='bar')", `Duplicate attribute: "class". @ "(class='test' class='bar')" <-`},
		{"Missing comma", "{class: 'test' foo: 'bar'}", `Expected ",". @ "{class: 'test' f" <-`},
		{"Wrong assignment", "{class='test'}", `Expected "=>" or ":". @ "{class=" <-`},
		{"Comma in HTML style", "(class='test', foo = 'bar')", `Unexpected ",". @ "(class='test'," <-`},
		{"Valueless key and comma in HTML style", "(a, b)", `Unexpected ",". @ "(a," <-`},
		{"Colon in HTML style", "(class:'test')", `Expected "=". @ "(class:" <-`},
		{"Arrow in HTML style", "(class=>'test')", `Unexpected ">". @ "(class=>" <-`},
		{"Unterminated dictionary", "{a: 1", `Unterminated attribute dictionary (expected }). @ "{a: 1" <-`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseDict(tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestTrailingCommaIsIgnored(t *testing.T) {
	with, err := parseDict("{a: 1, b: 'x',}")
	require.NoError(t, err)
	without, err := parseDict("{a: 1, b: 'x'}")
	require.NoError(t, err)
	assert.Equal(t, without, with)
}

func TestHamlAttributeValue(t *testing.T) {
	src := "{'class':\n" +
		"    - if forloop.first\n" +
		"        link-first\n" +
		"\n" +
		"    - else\n" +
		"        - if forloop.last\n" +
		"            link-last\n" +
		"  'href':\n" +
		"    - url some_view\n" +
		"  }"

	got, err := parseDict(src)
	require.NoError(t, err)
	assert.Equal(t, Attributes{
		{"class", str("{% if forloop.first %} link-first {% else %} {% if forloop.last %} link-last {% endif %} {% endif %}")},
		{"href", str("{% url some_view %}")},
	}, got)
}

func TestMergeAttributes(t *testing.T) {
	a := Attributes{{"a", str("1")}, {"b", str("2")}}
	got := a.Merge(Attributes{{"b", str("3")}, {"c", str("4")}})
	assert.Equal(t, Attributes{{"a", str("1")}, {"b", str("3")}, {"c", str("4")}}, got)
}
