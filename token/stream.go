package token

// Stream is a cursor over a lexed token slice. The final token is always EOF
// and the cursor never moves past it.
type Stream struct {
	toks []Token
	pos  int
}

func NewStream(toks []Token) *Stream {
	if len(toks) == 0 || toks[len(toks)-1].Kind != EOF {
		end := 0
		if len(toks) > 0 {
			end = toks[len(toks)-1].End
		}
		toks = append(toks, Token{Kind: EOF, Pos: Position{Offset: end}, End: end})
	}
	return &Stream{toks: toks}
}

// Peek returns the current token without consuming it.
func (s *Stream) Peek() Token {
	return s.toks[s.pos]
}

// PeekAt looks n tokens ahead of the cursor.
func (s *Stream) PeekAt(n int) Token {
	if s.pos+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}
	return s.toks[s.pos+n]
}

// Next consumes and returns the current token.
func (s *Stream) Next() Token {
	t := s.toks[s.pos]
	if s.pos < len(s.toks)-1 {
		s.pos++
	}
	return t
}

// Prev returns the most recently consumed token.
func (s *Stream) Prev() Token {
	if s.pos == 0 {
		return s.toks[0]
	}
	return s.toks[s.pos-1]
}

// IsOfType consumes the current token if its kind is one of kinds.
func (s *Stream) IsOfType(kinds ...Kind) bool {
	cur := s.toks[s.pos].Kind
	for _, k := range kinds {
		if cur == k {
			s.Next()
			return true
		}
	}
	return false
}

// Is reports whether the current token is one of kinds, without consuming it.
func (s *Stream) Is(kinds ...Kind) bool {
	cur := s.toks[s.pos].Kind
	for _, k := range kinds {
		if cur == k {
			return true
		}
	}
	return false
}

type Mark int

func (s *Stream) Mark() Mark {
	return Mark(s.pos)
}

func (s *Stream) Reset(m Mark) {
	s.pos = int(m)
}
