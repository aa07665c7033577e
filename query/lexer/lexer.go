package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thisisjab/docquery/query/token"
)

type Lexer struct {
	input   string
	pos     int  // byte offset of the current character
	readPos int  // byte offset of the next character to be read
	runePos int  // rune offset of the current character, reported in tokens
	char    rune // current character being processed
	eof     bool // set once the current position is past the input
}

func New(input string) *Lexer {
	l := &Lexer{input: input, runePos: -1}
	l.readChar()
	return l
}

// Tokenize splits input into atoms. The trailing EOF token is not included.
func Tokenize(input string) []token.Token {
	l := New(input)

	var tokens []token.Token
	for tok := l.NextToken(); tok.Type != token.EOF; tok = l.NextToken() {
		tokens = append(tokens, tok)
	}

	return tokens
}

// readChar decodes one rune at a time. An invalid byte decodes as
// utf8.RuneError with width 1, but literals are sliced from the input, so
// their bytes are kept as typed.
func (l *Lexer) readChar() {
	if l.eof {
		return
	}

	l.runePos++
	l.pos = l.readPos

	if l.readPos >= len(l.input) {
		l.char = 0
		l.eof = true
		return
	}

	r, width := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.char = r
	l.readPos += width
}

// NextToken returns the next atom. Once the input is exhausted it keeps
// returning EOF.
func (l *Lexer) NextToken() token.Token {
	for {
		if l.eof {
			return token.Token{Type: token.EOF, Pos: l.runePos}
		}

		var tok token.Token

		switch l.char {
		case '+':
			tok = token.Token{Type: token.OR, Literal: "+", Pos: l.runePos}
		case '*':
			tok = token.Token{Type: token.AND, Literal: "*", Pos: l.runePos}
		case '(':
			tok = token.Token{Type: token.LPAREN, Literal: "(", Pos: l.runePos}
		case ')':
			tok = token.Token{Type: token.RPAREN, Literal: ")", Pos: l.runePos}
		default:
			// A run of blanks between two operators flushes to nothing, so
			// look for the next atom instead.
			if tok, ok := l.readLiteral(); ok {
				return tok
			}
			continue
		}

		l.readChar()
		return tok
	}
}

// readLiteral consumes a maximal run of non-operator characters and returns
// it trimmed of surrounding whitespace. ok is false when nothing but
// whitespace was consumed.
func (l *Lexer) readLiteral() (token.Token, bool) {
	start, startRune := l.pos, l.runePos

	for !l.eof && !isOperator(l.char) {
		l.readChar()
	}

	raw := l.input[start:l.pos]
	trimmedLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)

	literal := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	if literal == "" {
		return token.Token{}, false
	}

	lead := utf8.RuneCountInString(raw[:len(raw)-len(trimmedLeft)])

	return token.Token{Type: token.LITERAL, Literal: literal, Pos: startRune + lead}, true
}

func isOperator(r rune) bool {
	return r == '+' || r == '*' || r == '(' || r == ')'
}
