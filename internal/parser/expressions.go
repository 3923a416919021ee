package parser

import (
	"strconv"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/token"
)

func (p *Parser) parseExpression(precedence int) *ast.Node {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS003,
			p.curToken,
			"expression too complex: recursion depth limit exceeded",
		))
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
		if leftExp == nil {
			return nil
		}
	}
	return leftExp
}

func (p *Parser) parseNumberLiteral() *ast.Node {
	value, err := strconv.ParseFloat(p.curToken.Lexeme, 64)
	if err != nil {
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS004,
			p.curToken,
			"could not parse %q as number", p.curToken.Lexeme,
		))
		return nil
	}
	return &ast.Node{
		Type:   ast.TypeNumberLiteral,
		Span:   p.spanFrom(p.curToken),
		Number: value,
	}
}

func (p *Parser) parseStringLiteral() *ast.Node {
	return &ast.Node{
		Type: ast.TypeStringLiteral,
		Span: p.spanFrom(p.curToken),
		Str:  p.curToken.Lexeme,
	}
}

func (p *Parser) parseBooleanLiteral() *ast.Node {
	return &ast.Node{
		Type: ast.TypeBooleanLiteral,
		Span: p.spanFrom(p.curToken),
		Bool: p.curTokenIs(token.TRUE),
	}
}

func (p *Parser) parseIdentifier() *ast.Node {
	return &ast.Node{
		Type: ast.TypeIdentifier,
		Span: p.spanFrom(p.curToken),
		Name: p.curToken.Lexeme,
	}
}

func (p *Parser) parsePrefixExpression() *ast.Node {
	start := p.curToken
	operator := p.curToken.Lexeme

	p.nextToken()
	operand := p.parseExpression(PREFIX)
	if operand == nil {
		return nil
	}
	return &ast.Node{
		Type:     ast.TypeUnaryExpression,
		Span:     p.spanFrom(start),
		Operator: operator,
		Operand:  operand,
	}
}

func (p *Parser) parseInfixExpression(left *ast.Node) *ast.Node {
	operator := p.curToken.Lexeme
	precedence := p.curPrecedence()

	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &ast.Node{
		Type:     ast.TypeBinaryExpression,
		Span:     p.spanBetween(left.Span.Start, right.Span.End),
		Operator: operator,
		Left:     left,
		Right:    right,
	}
}

func (p *Parser) parseGroupedExpression() *ast.Node {
	p.nextToken() // move past '('
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseVectorOrRange parses "[1, 2, 3]" as a vector literal and
// "[start:end]" / "[start:step:end]" as a range expression. The two
// forms share the opening bracket and are told apart by the first
// separator.
func (p *Parser) parseVectorOrRange() *ast.Node {
	start := p.curToken

	if p.peekTokenIs(token.RBRACKET) {
		p.nextToken()
		return &ast.Node{
			Type:     ast.TypeVectorLiteral,
			Span:     p.spanFrom(start),
			Elements: []*ast.Node{},
		}
	}

	p.nextToken() // move to first element
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}

	if p.peekTokenIs(token.COLON) {
		return p.parseRangeExpression(start, first)
	}

	elements := []*ast.Node{first}
	for p.peekTokenIs(token.COMMA) {
		p.nextToken() // move to ','
		if p.peekTokenIs(token.RBRACKET) {
			break // trailing comma
		}
		p.nextToken() // move to next element
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	return &ast.Node{
		Type:     ast.TypeVectorLiteral,
		Span:     p.spanFrom(start),
		Elements: elements,
	}
}

// parseRangeExpression continues after "[first" once a ':' is seen.
// "[a:b]" is start/end, "[a:b:c]" is start/step/end.
func (p *Parser) parseRangeExpression(start token.Token, first *ast.Node) *ast.Node {
	p.nextToken() // move to ':'
	p.nextToken() // move to next bound
	second := p.parseExpression(LOWEST)
	if second == nil {
		return nil
	}

	node := &ast.Node{Type: ast.TypeRangeExpression, RangeStart: first}
	if p.peekTokenIs(token.COLON) {
		p.nextToken() // move to ':'
		p.nextToken() // move to end bound
		third := p.parseExpression(LOWEST)
		if third == nil {
			return nil
		}
		node.RangeStep = second
		node.RangeEnd = third
	} else {
		node.RangeEnd = second
	}
	if !p.expectPeek(token.RBRACKET) {
		return nil
	}
	node.Span = p.spanFrom(start)
	return node
}
