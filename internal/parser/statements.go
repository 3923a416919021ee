package parser

import (
	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/classify"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/token"
)

// ParseProgram parses the whole source and returns the root statement
// list. Diagnostics are collected on the parser; callers must check
// Errors before trusting the tree.
func (p *Parser) ParseProgram() []*ast.Node {
	program := []*ast.Node{}
	for !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			program = append(program, stmt)
		} else {
			p.skipToStatementBoundary()
		}
		p.nextToken()
	}
	return program
}

func (p *Parser) parseStatement() *ast.Node {
	switch p.curToken.Type {
	case token.MODULE:
		return p.parseModuleDefinition()
	case token.FUNCTION:
		return p.parseFunctionDefinition()
	case token.IF:
		return p.parseIfStatement()
	case token.FOR:
		return p.parseForLoop()
	case token.LET:
		return p.parseLetStatement()
	case token.HASH:
		// Debug highlight modifier; accepted and passed through.
		p.nextToken()
		return p.parseStatement()
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) {
			return p.parseAssignment()
		}
		if p.peekTokenIs(token.LPAREN) {
			return p.parseModuleInstantiation()
		}
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS001,
			p.peekToken,
			"expected '=' or '(' after identifier %q", p.curToken.Lexeme,
		))
		return nil
	case token.EOF:
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS002,
			p.curToken,
			"unexpected end of input",
		))
		return nil
	default:
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS001,
			p.curToken,
			"unexpected token %s at statement start", p.curToken.Type,
		))
		return nil
	}
}

func (p *Parser) parseAssignment() *ast.Node {
	start := p.curToken
	name := p.curToken.Lexeme

	p.nextToken() // move to '='
	p.nextToken() // move to value expression
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return &ast.Node{
		Type:  ast.TypeAssignment,
		Span:  p.spanFrom(start),
		Name:  name,
		Value: value,
	}
}

func (p *Parser) parseModuleDefinition() *ast.Node {
	start := p.curToken

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParamDecls()
	if !ok {
		return nil
	}
	body, ok := p.parseBody()
	if !ok {
		return nil
	}
	return &ast.Node{
		Type:   ast.TypeModuleDefinition,
		Span:   p.spanFrom(start),
		Name:   name,
		Params: params,
		Body:   body,
	}
}

func (p *Parser) parseFunctionDefinition() *ast.Node {
	start := p.curToken

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params, ok := p.parseParamDecls()
	if !ok {
		return nil
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken() // move to body expression
	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return &ast.Node{
		Type:   ast.TypeFunction,
		Span:   p.spanFrom(start),
		Name:   name,
		Params: params,
		Value:  value,
	}
}

// parseModuleInstantiation parses a call statement. Builtin shape names
// (cube, translate, union, ...) carry their own name as the node type so
// the classifier sees them directly; anything else becomes a
// module_instantiation resolved against user definitions later.
func (p *Parser) parseModuleInstantiation() *ast.Node {
	start := p.curToken
	name := p.curToken.Lexeme

	p.nextToken() // move to '('
	args, ok := p.parseArguments()
	if !ok {
		return nil
	}

	node := &ast.Node{Name: name, Parameters: args}
	if classify.IsShape(name) {
		node.Type = name
	} else {
		node.Type = ast.TypeModuleInstantiation
	}

	// A call is terminated by ';', or carries children as a block or a
	// single trailing statement: translate(...) cube(...);
	switch {
	case p.peekTokenIs(token.SEMICOLON):
		p.nextToken()
	case p.peekTokenIs(token.LBRACE):
		p.nextToken()
		children, ok := p.parseBlock()
		if !ok {
			return nil
		}
		node.Children = children
	default:
		p.nextToken()
		child := p.parseStatement()
		if child == nil {
			return nil
		}
		node.Children = []*ast.Node{child}
	}
	node.Span = p.spanFrom(start)
	return node
}

func (p *Parser) parseForLoop() *ast.Node {
	start := p.curToken

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	iterator := p.curToken.Lexeme

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken() // move to range expression
	rangeExpr := p.parseExpression(LOWEST)
	if rangeExpr == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	body, ok := p.parseBody()
	if !ok {
		return nil
	}
	return &ast.Node{
		Type:       ast.TypeForLoop,
		Span:       p.spanFrom(start),
		Parameters: []ast.Param{{Name: iterator, Value: rangeExpr}},
		Children:   body,
	}
}

func (p *Parser) parseIfStatement() *ast.Node {
	start := p.curToken

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken() // move to condition
	cond := p.parseExpression(LOWEST)
	if cond == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	thenBody, ok := p.parseBody()
	if !ok {
		return nil
	}

	node := &ast.Node{
		Type:      ast.TypeIfStatement,
		Condition: cond,
		ThenBody:  thenBody,
	}
	if p.peekTokenIs(token.ELSE) {
		p.nextToken() // move to 'else'
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			elseIf := p.parseIfStatement()
			if elseIf == nil {
				return nil
			}
			node.ElseBody = []*ast.Node{elseIf}
		} else {
			elseBody, ok := p.parseBody()
			if !ok {
				return nil
			}
			node.ElseBody = elseBody
		}
	}
	node.Span = p.spanFrom(start)
	return node
}

func (p *Parser) parseLetStatement() *ast.Node {
	start := p.curToken

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	bindings, ok := p.parseBindings()
	if !ok {
		return nil
	}
	body, ok := p.parseBody()
	if !ok {
		return nil
	}
	return &ast.Node{
		Type:       ast.TypeLet,
		Span:       p.spanFrom(start),
		Parameters: bindings,
		Children:   body,
	}
}

// parseBody parses either a braced block or a single statement as the
// body of a definition or control statement. A lone ';' is an empty
// body. On return curToken is the closing brace or the last statement
// token.
func (p *Parser) parseBody() ([]*ast.Node, bool) {
	if p.peekTokenIs(token.LBRACE) {
		p.nextToken()
		return p.parseBlock()
	}
	if p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		return []*ast.Node{}, true
	}
	p.nextToken()
	stmt := p.parseStatement()
	if stmt == nil {
		return nil, false
	}
	return []*ast.Node{stmt}, true
}

// parseBlock parses "{ statements }" with curToken on the opening brace.
// On success curToken is the closing brace.
func (p *Parser) parseBlock() ([]*ast.Node, bool) {
	stmts := []*ast.Node{}
	p.nextToken() // move past '{'
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if stmt != nil {
			stmts = append(stmts, stmt)
		} else {
			p.skipToStatementBoundary()
			if p.curTokenIs(token.RBRACE) || p.curTokenIs(token.EOF) {
				continue
			}
		}
		p.nextToken()
	}
	if !p.curTokenIs(token.RBRACE) {
		p.errors = append(p.errors, diagnostics.NewError(
			diagnostics.ErrS002,
			p.curToken,
			"unterminated block: missing '}'",
		))
		return nil, false
	}
	return stmts, true
}

// parseParamDecls parses a declaration list "(a, b = 5)" with curToken
// on the opening parenthesis. On success curToken is ')'.
func (p *Parser) parseParamDecls() ([]ast.ParamDecl, bool) {
	decls := []ast.ParamDecl{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return decls, true
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		decl := ast.ParamDecl{Name: p.curToken.Lexeme}
		if p.peekTokenIs(token.ASSIGN) {
			p.nextToken() // move to '='
			p.nextToken() // move to default expression
			def := p.parseExpression(LOWEST)
			if def == nil {
				return nil, false
			}
			decl.Default = def
		}
		decls = append(decls, decl)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break // trailing comma
			}
			continue
		}
		break
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return decls, true
}

// parseArguments parses a call argument list "(5, r=2)" with curToken on
// the opening parenthesis. Positional and named arguments may mix; they
// are kept in call order. On success curToken is ')'.
func (p *Parser) parseArguments() ([]ast.Param, bool) {
	args := []ast.Param{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args, true
	}
	for {
		p.nextToken() // move to argument start
		var arg ast.Param
		if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN) {
			arg.Name = p.curToken.Lexeme
			p.nextToken() // move to '='
			p.nextToken() // move to value
		}
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil, false
		}
		arg.Value = value
		args = append(args, arg)

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break // trailing comma
			}
			continue
		}
		break
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return args, true
}

// parseBindings parses "(name = expr, ...)" where every entry must be
// named, with curToken on the opening parenthesis. On success curToken
// is ')'.
func (p *Parser) parseBindings() ([]ast.Param, bool) {
	bindings := []ast.Param{}
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return bindings, true
	}
	for {
		if !p.expectPeek(token.IDENT) {
			return nil, false
		}
		name := p.curToken.Lexeme
		if !p.expectPeek(token.ASSIGN) {
			return nil, false
		}
		p.nextToken() // move to value
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil, false
		}
		bindings = append(bindings, ast.Param{Name: name, Value: value})

		if p.peekTokenIs(token.COMMA) {
			p.nextToken()
			if p.peekTokenIs(token.RPAREN) {
				break // trailing comma
			}
			continue
		}
		break
	}
	if !p.expectPeek(token.RPAREN) {
		return nil, false
	}
	return bindings, true
}
