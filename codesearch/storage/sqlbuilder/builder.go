package sqlbuilder

import "strconv"

// PlaceholderStyle selects how bind placeholders are rendered.
type PlaceholderStyle int

const (
	// PlaceholderQuestion renders "?"; arguments bind in textual order.
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar renders "$n" (PostgreSQL).
	PlaceholderDollar
	// PlaceholderNumbered renders "?n" (SQLite).
	PlaceholderNumbered
)

// Builder collects positional bind arguments while SQL text is assembled.
// Arguments are numbered in the order Arg is called.
type Builder struct {
	Style PlaceholderStyle
	args  []any
}

func New(style PlaceholderStyle) *Builder {
	return &Builder{Style: style, args: make([]any, 0, 4)}
}

// Arg records v and returns the placeholder referencing it.
func (b *Builder) Arg(v any) string {
	b.args = append(b.args, v)
	return Placeholder(b.Style, len(b.args))
}

func (b *Builder) Args() []any { return b.args }
func (b *Builder) Len() int    { return len(b.args) }

// Placeholder renders the n-th (1-based) placeholder in the given style.
func Placeholder(style PlaceholderStyle, n int) string {
	switch style {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(n)
	case PlaceholderNumbered:
		return "?" + strconv.Itoa(n)
	default:
		return "?"
	}
}
