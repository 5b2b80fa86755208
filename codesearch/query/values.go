package query

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// TextValue returns the literal text of a TEXT token, without surrounding
// double quotes.
func TextValue(raw string) string {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// RegexSource strips the "/" delimiters of a REGEX token.
func RegexSource(raw string) string {
	if len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") {
		return raw[1 : len(raw)-1]
	}
	return raw
}

// CompilePattern compiles a regex source with ECMAScript semantics, ignoring
// case. A zero timeout leaves matching unbounded.
func CompilePattern(source string, timeout time.Duration) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(source, regexp2.ECMAScript|regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return re, nil
}

// ParsedQualifier is a qualifier token resolved against the registry.
type ParsedQualifier struct {
	Qualifier Qualifier
	// Value is the single token the qualifier value tokenizes to; it is
	// always TEXT or REGEX.
	Value Token
}

// ParseQualifier splits a QUALIFIER token at its first colon, resolves the
// key and re-tokenizes the remainder, which must yield exactly one TEXT or
// REGEX token.
func ParseQualifier(raw string) (ParsedQualifier, error) {
	key, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return ParsedQualifier{}, newError(ErrInvalidQualifierValue, "qualifier has no value", raw)
	}
	q, ok := LookupQualifier(key)
	if !ok {
		return ParsedQualifier{}, newError(ErrUnknownQualifier, "unknown qualifier "+strings.ToLower(key), raw)
	}

	tokens, err := Tokenize(rest)
	if err != nil {
		return ParsedQualifier{}, newError(ErrInvalidQualifierValue, err.Error(), raw)
	}
	if len(tokens) != 1 {
		return ParsedQualifier{}, newError(ErrInvalidQualifierValue, "qualifier value must be a single word", raw)
	}
	if k := tokens[0].Kind; k != TokText && k != TokRegex {
		return ParsedQualifier{}, newError(ErrInvalidQualifierValue, "qualifier value cannot be "+k.String(), raw)
	}
	return ParsedQualifier{Qualifier: q, Value: tokens[0]}, nil
}
