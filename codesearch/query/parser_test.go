package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func word(tok Token) *Term      { return &Term{Node: NewWord(tok)} }
func group(a *And) *Term        { return &Term{Node: a} }
func or(terms ...*Term) *Or     { return &Or{Nodes: terms} }
func and(ors ...*Or) *And       { return &And{Nodes: ors} }
func query(ands ...*And) *Query { return &Query{Nodes: ands} }

func mustParse(t *testing.T, input string) *Query {
	t.Helper()
	q, err := Parse(input)
	require.NoError(t, err, input)
	return q
}

func TestParseEmpty(t *testing.T) {
	q := mustParse(t, "")
	assert.Empty(t, q.Nodes)
	assert.Equal(t, "Query[]", q.String())
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		inputs []string
		want   string
	}{
		{[]string{"A && B || C", "A B || C"}, "Query[And[Or[TEXT(A)], Or[TEXT(B), TEXT(C)]]]"},
		{[]string{"A || B && C", "A || B C"}, "Query[And[Or[TEXT(A), TEXT(B)], Or[TEXT(C)]]]"},
		{[]string{"A B C", "A && B && C", "A && B C"}, "Query[And[Or[TEXT(A)], Or[TEXT(B)], Or[TEXT(C)]]]"},
		{[]string{"A || B || C"}, "Query[And[Or[TEXT(A), TEXT(B), TEXT(C)]]]"},
		{[]string{"(A || B) C", "( A || B ) && C"}, "Query[And[Or[And[Or[TEXT(A), TEXT(B)]]], Or[TEXT(C)]]]"},
	}

	for _, tt := range tests {
		for _, input := range tt.inputs {
			t.Run(input, func(t *testing.T) {
				assert.Equal(t, tt.want, mustParse(t, input).String())
			})
		}
	}
}

func TestParseStructure(t *testing.T) {
	got := mustParse(t, "A && B || C")
	want := query(and(
		or(word(text("A"))),
		or(word(text("B")), word(text("C"))),
	))
	assert.Equal(t, want, got)
}

func TestParseRoundTrip(t *testing.T) {
	input := `path:php && filename:"Hello hi" "A""B" \&& (Hallo Welt || "Hallo () /[0-9]+/ PHP") 👋🏿`
	got := mustParse(t, input)

	want := query(and(
		or(word(qual("path:php"))),
		or(word(qual(`filename:"Hello hi"`))),
		or(word(text(`"A"`))),
		or(word(text(`"B"`))),
		or(word(text("&&"))),
		or(group(and(
			or(word(text("Hallo"))),
			or(word(text("Welt")), word(text(`"Hallo () /[0-9]+/ PHP"`))),
		))),
		or(word(text("👋🏿"))),
	))
	assert.Equal(t, want, got)
	require.Len(t, got.Nodes, 1)
	assert.Len(t, got.Nodes[0].Nodes, 7)
	assert.Len(t, got.Words(), 9)
}

func TestParseNegatedTerm(t *testing.T) {
	// No input syntax produces NOT, so feed the token directly.
	got, err := ParseTokens([]Token{{Kind: TokNot}, lparenTok, text("A"), rparenTok, text("B")})
	require.NoError(t, err)

	want := query(and(
		or(&Term{Negated: true, Node: and(or(word(text("A"))))}),
		or(word(text("B"))),
	))
	assert.Equal(t, want, got)
	assert.Equal(t, "Query[And[Or[NOT And[Or[TEXT(A)]]], Or[TEXT(B)]]]", got.String())
}

func TestParseSyntaxErrors(t *testing.T) {
	inputs := []string{
		"(A",
		"( A B",
		")",
		"A )",
		"()",
		"&&",
		"A &&",
		"A ||",
		"|| A",
		"A || && B",
		"(A || )",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			q, err := Parse(input)
			require.Error(t, err)
			assert.Nil(t, q)
			kind, ok := KindOf(err)
			require.True(t, ok)
			assert.Equal(t, ErrSyntax, kind)
		})
	}
}

func TestParseResolvesQualifiers(t *testing.T) {
	tests := []struct {
		input string
		kind  ErrorKind
	}{
		{"hello bogus:value", ErrUnknownQualifier},
		{"(a || language:php)", ErrUnknownQualifier},
		{"path:a:b", ErrInvalidQualifierValue},
		{"a path:", ErrInvalidQualifierValue},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			kind, ok := KindOf(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, tt.kind, kind)
		})
	}

	q := mustParse(t, "extension:go PATH:src namespace:/acme/")
	assert.Len(t, q.Words(), 3)
}

func TestParseLexErrorPropagates(t *testing.T) {
	_, err := Parse(`A \`)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrLex, kind)
}

func TestNewWordPanicsOnOperator(t *testing.T) {
	assert.Panics(t, func() { NewWord(andTok) })
	assert.Panics(t, func() { NewWord(lparenTok) })
	assert.NotPanics(t, func() { NewWord(regex("/x/")) })
}

func TestWordsOrder(t *testing.T) {
	q := mustParse(t, "a (b || path:c) /d/")
	var values []string
	for _, w := range q.Words() {
		values = append(values, w.Value())
	}
	assert.Equal(t, []string{"a", "b", "path:c", "/d/"}, values)
}
