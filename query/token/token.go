package token

const (
	// EOF marks the end of the atom stream. It is a distinct type so that
	// a search term spelled "EOF" stays an ordinary literal.
	EOF TokenType = iota

	LITERAL

	OR     // +
	AND    // *
	LPAREN // (
	RPAREN // )
)

type TokenType int

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "end of query"
	case LITERAL:
		return "literal"
	case OR:
		return "+"
	case AND:
		return "*"
	case LPAREN:
		return "("
	case RPAREN:
		return ")"
	default:
		return "unknown"
	}
}

type Token struct {
	Type    TokenType
	Literal string
	Pos     int // rune offset of the first character
}
