package query

import "fmt"

// TokenKind identifies the lexical class of a Token.
type TokenKind int

const (
	TokText TokenKind = iota
	TokRegex
	TokQualifier
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
)

func (k TokenKind) String() string {
	switch k {
	case TokText:
		return "TEXT"
	case TokRegex:
		return "REGEX"
	case TokQualifier:
		return "QUALIFIER"
	case TokAnd:
		return "AND"
	case TokOr:
		return "OR"
	case TokNot:
		return "NOT"
	case TokLParen:
		return "OPEN_PAREN"
	case TokRParen:
		return "CLOSE_PAREN"
	default:
		return "UNKNOWN"
	}
}

// Token is one lexical unit of a query. Value holds the verbatim input slice
// for word tokens (quotes and regex delimiters retained) and is empty for
// operators and parentheses.
type Token struct {
	Kind  TokenKind
	Value string
}

// IsWord reports whether the token can be wrapped in a Word node.
func (t Token) IsWord() bool {
	return t.Kind == TokText || t.Kind == TokRegex || t.Kind == TokQualifier
}

func (t Token) String() string {
	if t.IsWord() {
		return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
	}
	return t.Kind.String()
}
