package query

// Stream is a forward-only cursor over a token slice.
type Stream struct {
	tokens []Token
	pos    int
}

func NewStream(tokens []Token) *Stream {
	return &Stream{tokens: tokens}
}

// Peek returns the next token without consuming it.
func (s *Stream) Peek() (Token, bool) {
	if s.pos >= len(s.tokens) {
		return Token{}, false
	}
	return s.tokens[s.pos], true
}

// Pop consumes and returns the next token.
func (s *Stream) Pop() (Token, bool) {
	tok, ok := s.Peek()
	if ok {
		s.pos++
	}
	return tok, ok
}

func (s *Stream) Done() bool {
	return s.pos >= len(s.tokens)
}
