// Package parser turns .scad source text into the statement nodes the
// processing pipeline consumes. Statements are dispatched on their
// leading token; expressions are parsed with a Pratt parser over
// prefix/infix function tables keyed by token type.
package parser

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/lexer"
	"github.com/funvibe/solidscript/internal/token"
)

// Operator precedence levels, lowest binding first.
const (
	_ int = iota
	LOWEST
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
)

// MaxRecursionDepth bounds expression nesting before the parser bails out
// with a diagnostic instead of exhausting the stack.
const MaxRecursionDepth = 500

var precedences = map[token.TokenType]int{
	token.OR:       LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LE:       LESSGREATER,
	token.GE:       LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
}

type (
	prefixParseFn func() *ast.Node
	infixParseFn  func(*ast.Node) *ast.Node
)

type Parser struct {
	l   *lexer.Lexer
	src string

	curToken  token.Token
	peekToken token.Token

	errors []*diagnostics.Diagnostic
	depth  int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

// New builds a parser over the given source text.
func New(src string) *Parser {
	p := &Parser{
		l:   lexer.New(src),
		src: src,
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBooleanLiteral)
	p.registerPrefix(token.FALSE, p.parseBooleanLiteral)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.BANG, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACKET, p.parseVectorOrRange)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for tokenType := range precedences {
		p.registerInfix(tokenType, p.parseInfixExpression)
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// Errors returns the diagnostics collected while parsing. A non-empty
// list means the returned tree is partial.
func (p *Parser) Errors() []*diagnostics.Diagnostic {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.errors = append(p.errors, diagnostics.NewError(
		diagnostics.ErrS001,
		p.peekToken,
		"expected next token to be %s, got %s instead", t, p.peekToken.Type,
	))
}

func (p *Parser) noPrefixParseFnError() {
	if p.curTokenIs(token.ILLEGAL) {
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS004,
			p.curToken,
			"illegal token %q", p.curToken.Lexeme,
		))
		return
	}
	p.errors = append(p.errors, diagnostics.NewError(
		diagnostics.ErrS001,
		p.curToken,
		"unexpected token %s in expression", p.curToken.Type,
	))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// skipToStatementBoundary advances to the end of the current statement
// after an error so one mistake does not cascade into dozens of
// diagnostics.
func (p *Parser) skipToStatementBoundary() {
	for !p.curTokenIs(token.SEMICOLON) &&
		!p.curTokenIs(token.RBRACE) &&
		!p.curTokenIs(token.EOF) {
		p.nextToken()
	}
}

// spanFrom builds the source span from the first token of a node to the
// token most recently consumed.
func (p *Parser) spanFrom(start token.Token) ast.Span {
	end := p.curToken
	endOffset := end.End
	if endOffset < start.Offset {
		endOffset = start.Offset
	}
	if endOffset > len(p.src) {
		endOffset = len(p.src)
	}
	return ast.Span{
		Start: ast.Position{Line: start.Line, Column: start.Column, Offset: start.Offset},
		End:   ast.Position{Line: end.Line, Column: end.Column, Offset: endOffset},
		Text:  p.src[start.Offset:endOffset],
	}
}

// spanBetween builds a span from positions already computed for child
// nodes, for nodes assembled around existing subtrees.
func (p *Parser) spanBetween(start, end ast.Position) ast.Span {
	so, eo := start.Offset, end.Offset
	if eo > len(p.src) {
		eo = len(p.src)
	}
	if so > eo {
		so = eo
	}
	return ast.Span{Start: start, End: end, Text: p.src[so:eo]}
}
