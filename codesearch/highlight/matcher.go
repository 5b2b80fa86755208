package highlight

import (
	"slices"
	"time"
	"unicode"

	"github.com/codesearch/codesearch/codesearch/query"
)

// Span is a half-open [Start, End) range of rune offsets.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Options struct {
	// RegexTimeout bounds each regex evaluation. Zero means no bound.
	RegexTimeout time.Duration
}

// FindMatches returns the spans of doc matched by the text and regex words
// of q, merged and sorted. Qualifiers and negated terms contribute nothing;
// OR unions its children's spans and AND concatenates them.
func FindMatches(q *query.Query, doc *Document, opts Options) ([]Span, error) {
	f := &finder{doc: doc, opts: opts}
	var spans []Span
	for _, and := range q.Nodes {
		s, err := f.visitAnd(and)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s...)
	}
	return mergeSpans(spans), nil
}

type finder struct {
	doc  *Document
	opts Options
}

func (f *finder) visitAnd(and *query.And) ([]Span, error) {
	var spans []Span
	for _, or := range and.Nodes {
		s, err := f.visitOr(or)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s...)
	}
	return spans, nil
}

func (f *finder) visitOr(or *query.Or) ([]Span, error) {
	var spans []Span
	seen := make(map[Span]struct{})
	for _, term := range or.Nodes {
		s, err := f.visitTerm(term)
		if err != nil {
			return nil, err
		}
		for _, sp := range s {
			if _, dup := seen[sp]; dup {
				continue
			}
			seen[sp] = struct{}{}
			spans = append(spans, sp)
		}
	}
	return spans, nil
}

func (f *finder) visitTerm(term *query.Term) ([]Span, error) {
	if term.Negated {
		return nil, nil
	}
	switch n := term.Node.(type) {
	case *query.Word:
		return f.visitWord(n)
	case *query.And:
		return f.visitAnd(n)
	}
	return nil, nil
}

func (f *finder) visitWord(w *query.Word) ([]Span, error) {
	switch w.Kind() {
	case query.TokText:
		return f.findText(query.TextValue(w.Value())), nil
	case query.TokRegex:
		return f.findRegex(query.RegexSource(w.Value()))
	}
	return nil, nil
}

// findText scans for needle ignoring case, resuming after each hit.
func (f *finder) findText(value string) []Span {
	needle := []rune(value)
	hay := f.doc.runes
	if len(needle) == 0 {
		return nil
	}
	var spans []Span
	for i := 0; i+len(needle) <= len(hay); {
		if hasFoldPrefix(hay[i:], needle) {
			spans = append(spans, Span{Start: i, End: i + len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return spans
}

func hasFoldPrefix(s, prefix []rune) bool {
	for i, r := range prefix {
		if !foldEqual(s[i], r) {
			return false
		}
	}
	return true
}

func foldEqual(a, b rune) bool {
	return a == b || unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}

func (f *finder) findRegex(source string) ([]Span, error) {
	re, err := query.CompilePattern(source, f.opts.RegexTimeout)
	if err != nil {
		return nil, err
	}
	var spans []Span
	m, err := re.FindRunesMatch(f.doc.runes)
	for ; m != nil && err == nil; m, err = re.FindNextMatch(m) {
		// Empty matches cannot be highlighted.
		if m.Length > 0 {
			spans = append(spans, Span{Start: m.Index, End: m.Index + m.Length})
		}
	}
	if err != nil {
		return nil, err
	}
	return spans, nil
}

// mergeSpans sorts spans and folds overlapping or touching ones together.
func mergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	slices.SortFunc(spans, func(a, b Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})
	merged := []Span{spans[0]}
	for _, next := range spans[1:] {
		prev := &merged[len(merged)-1]
		if next.Start <= prev.End {
			prev.End = max(prev.End, next.End)
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
