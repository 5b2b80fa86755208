package query

import (
	"fmt"
	"strings"
)

// Query is the root of a parsed query. Its And nodes are conjoined; the
// grammar only ever produces a single one.
type Query struct {
	Nodes []*And
}

// And requires all of its Or children to hold.
type And struct {
	Nodes []*Or
}

// Or requires at least one of its Term children to hold.
type Or struct {
	Nodes []*Term
}

// Term is an optionally negated operand: a Word or a parenthesized And.
type Term struct {
	Negated bool
	Node    Node
}

// Node is the operand of a Term. It is implemented by *Word and *And only.
type Node interface {
	isNode()
	String() string
}

func (*Word) isNode() {}
func (*And) isNode()  {}

// Word wraps a single TEXT, REGEX or QUALIFIER token.
type Word struct {
	Token Token
}

// NewWord wraps tok. It panics if tok is not a word token; the parser only
// calls it after checking the kind.
func NewWord(tok Token) *Word {
	if !tok.IsWord() {
		panic(fmt.Sprintf("query: cannot build Word from %s token", tok.Kind))
	}
	return &Word{Token: tok}
}

func (w *Word) Kind() TokenKind { return w.Token.Kind }
func (w *Word) Value() string   { return w.Token.Value }

func (w *Word) String() string { return w.Token.String() }

func (t *Term) String() string {
	if t.Negated {
		return "NOT " + t.Node.String()
	}
	return t.Node.String()
}

func (o *Or) String() string {
	parts := make([]string, len(o.Nodes))
	for i, n := range o.Nodes {
		parts[i] = n.String()
	}
	return "Or[" + strings.Join(parts, ", ") + "]"
}

func (a *And) String() string {
	parts := make([]string, len(a.Nodes))
	for i, n := range a.Nodes {
		parts[i] = n.String()
	}
	return "And[" + strings.Join(parts, ", ") + "]"
}

func (q *Query) String() string {
	parts := make([]string, len(q.Nodes))
	for i, n := range q.Nodes {
		parts[i] = n.String()
	}
	return "Query[" + strings.Join(parts, ", ") + "]"
}

// Words returns every Word in the query in left-to-right order.
func (q *Query) Words() []*Word {
	var out []*Word
	for _, a := range q.Nodes {
		out = a.appendWords(out)
	}
	return out
}

func (a *And) appendWords(out []*Word) []*Word {
	for _, or := range a.Nodes {
		for _, term := range or.Nodes {
			switch n := term.Node.(type) {
			case *Word:
				out = append(out, n)
			case *And:
				out = n.appendWords(out)
			}
		}
	}
	return out
}
