package planner

import (
	"fmt"
	"strings"

	"github.com/codesearch/codesearch/codesearch/query"
	"github.com/codesearch/codesearch/codesearch/storage"
)

// CompileOutput is the SQL predicate for a query. Bind arguments are held by
// the builder passed to Compile.
type CompileOutput struct {
	// Predicate is empty when the query has no clauses.
	Predicate string
	// Leaves counts the word and qualifier nodes visited; each adds one
	// bind argument.
	Leaves       int
	ExplainSteps []string
}

// Compiler turns a parsed query into a boolean SQL expression over the
// search statement's columns. It mirrors the AST shape one to one.
type Compiler struct {
	dialect      storage.Dialect
	builder      storage.Builder
	content      string
	leaves       int
	explainSteps []string
}

// Compile allocates one bind argument per leaf, in left-to-right order.
func Compile(d storage.Dialect, b storage.Builder, q *query.Query) (*CompileOutput, error) {
	c := &Compiler{dialect: d, builder: b, content: d.ContentAggregate()}
	pred, err := c.compileQuery(q)
	if err != nil {
		return nil, err
	}
	return &CompileOutput{Predicate: pred, Leaves: c.leaves, ExplainSteps: c.explainSteps}, nil
}

func (c *Compiler) compileQuery(q *query.Query) (string, error) {
	if len(q.Nodes) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(q.Nodes))
	for _, and := range q.Nodes {
		s, err := c.compileAnd(and)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (c *Compiler) compileAnd(and *query.And) (string, error) {
	if len(and.Nodes) == 0 {
		return "", fmt.Errorf("planner: And node without children")
	}
	parts := make([]string, 0, len(and.Nodes))
	for _, or := range and.Nodes {
		s, err := c.compileOr(or)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (c *Compiler) compileOr(or *query.Or) (string, error) {
	if len(or.Nodes) == 0 {
		return "", fmt.Errorf("planner: Or node without children")
	}
	parts := make([]string, 0, len(or.Nodes))
	for _, term := range or.Nodes {
		s, err := c.compileTerm(term)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

func (c *Compiler) compileTerm(term *query.Term) (string, error) {
	var (
		s   string
		err error
	)
	switch n := term.Node.(type) {
	case *query.Word:
		s, err = c.compileWord(n)
	case *query.And:
		s, err = c.compileAnd(n)
	default:
		return "", fmt.Errorf("planner: unexpected term node %T", term.Node)
	}
	if err != nil {
		return "", err
	}
	if term.Negated {
		return "NOT " + s, nil
	}
	return s, nil
}

func (c *Compiler) compileWord(w *query.Word) (string, error) {
	c.leaves++
	switch w.Kind() {
	case query.TokText:
		return c.compileText(c.content, "content", query.TextValue(w.Value()), contains), nil
	case query.TokRegex:
		return c.compileRegex(c.content, "content", query.RegexSource(w.Value())), nil
	case query.TokQualifier:
		return c.compileQualifier(w.Value())
	default:
		return "", fmt.Errorf("planner: unsupported word kind %s", w.Kind())
	}
}

func contains(escaped string) string { return "%" + escaped + "%" }

func (c *Compiler) compileText(expr, label, value string, wrap func(string) string) string {
	pattern := wrap(EscapeLike(value))
	c.explainSteps = append(c.explainSteps, fmt.Sprintf("like %s %q", label, pattern))
	return c.dialect.ILike(expr, c.builder.Arg(pattern))
}

func (c *Compiler) compileRegex(expr, label, source string) string {
	c.explainSteps = append(c.explainSteps, fmt.Sprintf("regex %s /%s/", label, source))
	return c.dialect.RegexMatch(expr, c.builder.Arg(source))
}

// compileQualifier dispatches on the kind of the qualifier's value token.
func (c *Compiler) compileQualifier(raw string) (string, error) {
	pq, err := query.ParseQualifier(raw)
	if err != nil {
		return "", err
	}
	desc := pq.Qualifier
	switch pq.Value.Kind {
	case query.TokRegex:
		return c.compileRegex(desc.StorageField, desc.Key, query.RegexSource(pq.Value.Value)), nil
	default:
		value := desc.NormalizeValue(query.TextValue(pq.Value.Value))
		return c.compileText(desc.StorageField, desc.Key, value, desc.ToLikePattern), nil
	}
}
