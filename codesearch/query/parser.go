package query

// Parse tokenizes and parses a raw query string.
func Parse(input string) (*Query, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses a token sequence into a Query. OR binds tighter than
// AND, and juxtaposed operands are implicitly ANDed. Qualifier words are
// resolved against the registry, so unknown keys and malformed values fail
// here.
//
// Grammar:
//
//	query := and*
//	and   := or ( AND? or )*
//	or    := term ( OR term )*
//	term  := NOT? ( word | "(" and ")" )
func ParseTokens(tokens []Token) (*Query, error) {
	p := &parser{stream: NewStream(tokens)}
	q := &Query{}
	for !p.stream.Done() {
		and, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		q.Nodes = append(q.Nodes, and)
	}
	return q, nil
}

type parser struct {
	stream *Stream
}

func (p *parser) parseAnd() (*And, error) {
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	and := &And{Nodes: []*Or{first}}
	for p.startsOperand() {
		if tok, _ := p.stream.Peek(); tok.Kind == TokAnd {
			p.stream.Pop()
		}
		next, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		and.Nodes = append(and.Nodes, next)
	}
	return and, nil
}

// startsOperand reports whether the next token may begin another conjunct.
func (p *parser) startsOperand() bool {
	tok, ok := p.stream.Peek()
	if !ok {
		return false
	}
	switch tok.Kind {
	case TokText, TokRegex, TokQualifier, TokAnd, TokLParen, TokNot:
		return true
	}
	return false
}

func (p *parser) parseOr() (*Or, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	or := &Or{Nodes: []*Term{first}}
	for {
		tok, ok := p.stream.Peek()
		if !ok || tok.Kind != TokOr {
			return or, nil
		}
		p.stream.Pop()
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		or.Nodes = append(or.Nodes, next)
	}
}

func (p *parser) parseTerm() (*Term, error) {
	term := &Term{}
	// The tokenizer never produces NOT.
	if tok, ok := p.stream.Peek(); ok && tok.Kind == TokNot {
		p.stream.Pop()
		term.Negated = true
	}

	tok, ok := p.stream.Pop()
	if !ok {
		return nil, newError(ErrSyntax, "invalid syntax: unexpected end of query", "")
	}
	switch {
	case tok.Kind == TokQualifier:
		if _, err := ParseQualifier(tok.Value); err != nil {
			return nil, err
		}
		term.Node = NewWord(tok)
	case tok.IsWord():
		term.Node = NewWord(tok)
	case tok.Kind == TokLParen:
		group, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		closing, ok := p.stream.Pop()
		if !ok {
			return nil, newError(ErrSyntax, "invalid syntax: missing closing parenthesis", "")
		}
		if closing.Kind != TokRParen {
			return nil, newError(ErrSyntax, "invalid syntax: expected closing parenthesis", closing.String())
		}
		term.Node = group
	default:
		return nil, newError(ErrSyntax, "invalid syntax", tok.String())
	}
	return term, nil
}
