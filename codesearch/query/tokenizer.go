package query

import "regexp"

var qualifierKeyRe = regexp.MustCompile(`^[A-Za-z]+$`)

// tokenizer holds the scanning state for a single Tokenize call.
type tokenizer struct {
	input  []rune
	tokens []Token

	buf             []rune
	inRegex         bool
	inQuotes        bool
	nextEscaped     bool
	includesEscaped bool
	looksQualifier  bool
}

// Tokenize splits a raw query into tokens in a single pass over its code
// points. Quotes and regex delimiters are kept in the token values; escapes
// are resolved except inside regex literals, where the backslash is kept.
func Tokenize(input string) ([]Token, error) {
	t := &tokenizer{input: []rune(input)}
	for i, ch := range t.input {
		t.step(i, ch)
	}
	if t.nextEscaped {
		return nil, newError(ErrLex, "unexpected end of input: expected character after backslash", "")
	}
	if len(t.buf) > 0 {
		t.flushWord()
	}
	return t.tokens, nil
}

func (t *tokenizer) step(i int, ch rune) {
	if t.nextEscaped {
		if t.inRegex {
			t.buf = append(t.buf, '\\')
		}
		t.buf = append(t.buf, ch)
		t.nextEscaped = false
		return
	}

	if ch == '/' {
		if t.inRegex {
			t.buf = append(t.buf, ch)
			t.emit(Token{Kind: TokRegex, Value: string(t.buf)})
			t.inRegex = false
			return
		}
		if len(t.buf) == 0 {
			t.inRegex = true
			t.buf = append(t.buf, ch)
			return
		}
	}

	if ch == '\\' {
		t.nextEscaped = true
		t.includesEscaped = true
		return
	}

	if !t.inRegex {
		if ch == '"' {
			t.inQuotes = !t.inQuotes
			t.buf = append(t.buf, ch)
			if !t.inQuotes {
				kind := TokText
				if t.looksQualifier {
					kind = TokQualifier
				}
				t.emit(Token{Kind: kind, Value: string(t.buf)})
			}
			return
		}

		if !t.inQuotes {
			if ch == '(' && len(t.buf) == 0 {
				t.tokens = append(t.tokens, Token{Kind: TokLParen})
				return
			}
			if ch == ')' && len(t.buf) > 0 && t.followedBySpaceOrEnd(i) {
				t.flushWord()
				t.tokens = append(t.tokens, Token{Kind: TokRParen})
				return
			}
			if ch == ':' && qualifierKeyRe.MatchString(string(t.buf)) {
				t.buf = append(t.buf, ch)
				t.looksQualifier = true
				return
			}
			if ch == ' ' {
				if len(t.buf) > 0 {
					t.flushWord()
				}
				return
			}
		}
	}

	t.buf = append(t.buf, ch)
}

func (t *tokenizer) followedBySpaceOrEnd(i int) bool {
	return i+1 >= len(t.input) || t.input[i+1] == ' '
}

// flushWord emits the buffer as a qualifier, a boolean keyword or text.
func (t *tokenizer) flushWord() {
	value := string(t.buf)
	switch {
	case t.looksQualifier:
		t.emit(Token{Kind: TokQualifier, Value: value})
	case t.includesEscaped:
		t.emit(Token{Kind: TokText, Value: value})
	case value == "&&":
		t.emit(Token{Kind: TokAnd})
	case value == "||":
		t.emit(Token{Kind: TokOr})
	case value == ")":
		t.emit(Token{Kind: TokRParen})
	default:
		t.emit(Token{Kind: TokText, Value: value})
	}
}

func (t *tokenizer) emit(tok Token) {
	t.tokens = append(t.tokens, tok)
	t.buf = t.buf[:0]
	t.includesEscaped = false
	t.looksQualifier = false
}
