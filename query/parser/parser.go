package parser

import (
	"errors"
	"fmt"

	"github.com/thisisjab/docquery/fault"
	"github.com/thisisjab/docquery/query/ast"
	"github.com/thisisjab/docquery/query/lexer"
	"github.com/thisisjab/docquery/query/token"
	"go.uber.org/multierr"
)

// ErrEmptyQuery is returned for queries without a single search term.
var ErrEmptyQuery = errors.New("query contains no search terms")

type Option func(*Parser)

// WithStrict makes ParseQuery fail on any syntax issue instead of repairing it.
func WithStrict(strict bool) Option {
	return func(p *Parser) {
		p.strict = strict
	}
}

// Parser builds an expression tree from the grammar
//
//	Query   := AndExpr ( '+' AndExpr )*
//	AndExpr := Atomic  ( '*' Atomic  )*
//	Atomic  := Literal | '(' Query ')'
//
// By default it is lenient: a missing ')' is closed implicitly, atoms left
// after a complete query are ignored and an operator missing an operand
// collapses to the operand it has. Each repair is recorded and available
// through Errors.
type Parser struct {
	l         *lexer.Lexer
	curToken  token.Token
	peekToken token.Token

	strict bool
	errors []error
}

func New(l *lexer.Lexer, opts ...Option) *Parser {
	p := &Parser{
		l: l,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.nextToken()
	p.nextToken()

	return p
}

// Parse is a shorthand for parsing a query string in one call. issues holds
// the syntax problems found, whether or not they were fatal.
func Parse(input string, strict bool) (root *ast.Node, issues []error, err error) {
	p := New(lexer.New(input), WithStrict(strict))
	root, err = p.ParseQuery()
	return root, p.Errors(), err
}

// Errors returns the syntax issues found so far.
func (p *Parser) Errors() []error {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) ParseQuery() (*ast.Node, error) {
	root := p.parseOr()

	if p.curToken.Type != token.EOF {
		p.issue(p.curToken, "unexpected %s after end of query", describe(p.curToken))
	}

	if root == nil {
		return nil, fault.New(fault.BadInputCode, "invalid query").WithOriginal(ErrEmptyQuery)
	}

	if p.strict && len(p.errors) > 0 {
		return nil, multierr.Combine(p.errors...)
	}

	return root, nil
}

func (p *Parser) parseOr() *ast.Node {
	root := p.parseAnd()

	for p.curToken.Type == token.OR {
		p.nextToken()
		right := p.parseAnd()
		root = join(ast.KindOr, root, right)
	}

	return root
}

func (p *Parser) parseAnd() *ast.Node {
	root := p.parseAtomic()

	for p.curToken.Type == token.AND {
		p.nextToken()
		right := p.parseAtomic()
		root = join(ast.KindAnd, root, right)
	}

	return root
}

// parseAtomic returns nil if there is no operand at the current position.
// The offending token is left for the caller.
func (p *Parser) parseAtomic() *ast.Node {
	switch p.curToken.Type {
	case token.LITERAL:
		node := ast.NewLiteral(p.curToken.Literal)
		p.nextToken()
		return node

	case token.LPAREN:
		open := p.curToken
		p.nextToken()

		expr := p.parseOr()

		if p.curToken.Type == token.RPAREN {
			p.nextToken()
		} else {
			p.issue(p.curToken, "missing ')' for '(' at position %d", open.Pos)
		}
		return expr

	default:
		p.issue(p.curToken, "expected search term or '(', got %s", describe(p.curToken))
		return nil
	}
}

// join builds left <kind> right. A missing operand has already been
// reported by parseAtomic, so the operator is simply dropped.
func join(kind ast.Kind, left, right *ast.Node) *ast.Node {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return ast.NewOperator(kind, left, right)
	}
}

func (p *Parser) issue(at token.Token, format string, args ...any) {
	p.errors = append(p.errors, fault.New(fault.BadInputCode, fmt.Sprintf(format, args...)).
		WithMetadata(fault.SyntaxMetadata{Position: at.Pos, Token: at.Literal}))
}

func describe(tok token.Token) string {
	if tok.Type == token.LITERAL {
		return fmt.Sprintf("%q", tok.Literal)
	}
	if tok.Type == token.EOF {
		return tok.Type.String()
	}
	return fmt.Sprintf("'%s'", tok.Literal)
}
