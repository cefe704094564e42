// Package parser implements tonic's recursive-descent statement grammar
// with a Pratt-style expression grammar (§4.2).
//
// The parser keeps a two-token lookahead window (curTok, peekTok) over the
// lexer's token stream, the same shape the teacher (kristofer/smog) uses,
// generalized from Smalltalk message sends to tonic's C-like statement and
// expression forms. It halts on the first error, returning a *ParseError
// describing exactly where and why.
package parser

import (
	"strconv"

	"github.com/kristofer/tonic/pkg/ast"
	"github.com/kristofer/tonic/pkg/lexer"
)

// Operator precedence levels, low to high (§4.2).
const (
	_ int = iota
	lowest
	assignPrec
	equalsPrec
	comparisonPrec
	sumPrec
	productPrec
	prefixPrec
	postfixPrec // call (), index [], dot .
)

var precedences = map[lexer.Kind]int{
	lexer.Assign:   assignPrec,
	lexer.EqEq:     equalsPrec,
	lexer.NotEq:    equalsPrec,
	lexer.Lt:       comparisonPrec,
	lexer.Gt:       comparisonPrec,
	lexer.LtEq:     comparisonPrec,
	lexer.GtEq:     comparisonPrec,
	lexer.Plus:     sumPrec,
	lexer.Minus:    sumPrec,
	lexer.Star:     productPrec,
	lexer.Slash:    productPrec,
	lexer.LParen:   postfixPrec,
	lexer.LBracket: postfixPrec,
	lexer.Dot:      postfixPrec,
}

var infixOps = map[lexer.Kind]ast.Op{
	lexer.Plus:  ast.OpAdd,
	lexer.Minus: ast.OpSubtract,
	lexer.Star:  ast.OpMultiply,
	lexer.Slash: ast.OpDivide,
	lexer.Gt:    ast.OpGreaterThan,
	lexer.Lt:    ast.OpLessThan,
	lexer.GtEq:  ast.OpGreaterThanEquals,
	lexer.LtEq:  ast.OpLessThanEquals,
	lexer.EqEq:  ast.OpEquals,
	lexer.NotEq: ast.OpNotEquals,
}

// Parser converts a token stream into a *ast.Program.
type Parser struct {
	l *lexer.Lexer

	curTok  lexer.Token
	peekTok lexer.Token

	loopDepth int // > 0 inside a while body; gates break/continue
	blockDepth int // > 0 inside any block; gates top-level-only `fn`
}

// New creates a Parser reading tokens from l.
func New(l *lexer.Lexer) (*Parser, error) {
	p := &Parser{l: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.curTok = p.peekTok
	tok, err := p.l.Next()
	if err != nil {
		return err
	}
	p.peekTok = tok
	return nil
}

func (p *Parser) errUnexpected(expected string) error {
	return &ParseError{
		Line:     p.curTok.Line,
		Span:     p.curTok.Span,
		Kind:     ErrUnexpectedToken,
		Found:    p.curTok.Kind,
		Expected: expected,
	}
}

func (p *Parser) expect(kind lexer.Kind, expected string) error {
	if p.curTok.Kind != kind {
		return p.errUnexpected(expected)
	}
	return p.advance()
}

// expectPeek checks peekTok rather than curTok, then advances onto it. Used
// to close out an expression production (`)`, `]`, a dotted property name)
// whose sub-parses leave curTok sitting on their own last token rather than
// past it — see parseExpression's non-advancing-prefix convention below.
func (p *Parser) expectPeek(kind lexer.Kind, expected string) error {
	if p.peekTok.Kind != kind {
		return &ParseError{Line: p.peekTok.Line, Span: p.peekTok.Span, Kind: ErrUnexpectedToken, Found: p.peekTok.Kind, Expected: expected}
	}
	return p.advance()
}

// advanceUnlessAtStatementEnd bridges a just-parsed expression into
// statement-terminator checks written against the "advance past what you
// consumed" convention. Every expression production ends with curTok on its
// own last token, except a closure with a `{ }` body, which reuses
// parseBlock and so already sits past its closing brace; the guard makes
// the bridge a no-op in that case instead of skipping the real terminator.
func (p *Parser) advanceUnlessAtStatementEnd() error {
	switch p.curTok.Kind {
	case lexer.Semicolon, lexer.RBrace, lexer.EOF:
		return nil
	default:
		return p.advance()
	}
}

// advanceUnlessAtBlockStart is advanceUnlessAtStatementEnd's counterpart for
// `if`/`while` conditions, which must land on the opening `{` of the body.
func (p *Parser) advanceUnlessAtBlockStart() error {
	if p.curTok.Kind == lexer.LBrace {
		return nil
	}
	return p.advance()
}

// Parse parses the full token stream into a Program. It returns the first
// error encountered, if any (§8 "Parser totality").
func Parse(source string) (*ast.Program, error) {
	p, err := New(lexer.New(source))
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// Parse runs the parser to completion.
func (p *Parser) Parse() (*ast.Program, error) {
	program := &ast.Program{}

	for p.curTok.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		program.Statements = append(program.Statements, stmt)
	}

	return program, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curTok.Kind {
	case lexer.Let, lexer.Const:
		return p.parseLetStatement()
	case lexer.Fn:
		if p.blockDepth > 0 {
			return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrNestedFunctionDefinition}
		}
		return p.parseFunctionStatement()
	case lexer.If:
		return p.parseIfStatement()
	case lexer.While:
		return p.parseWhileStatement()
	case lexer.Return:
		return p.parseReturnStatement()
	case lexer.Break:
		if p.loopDepth == 0 {
			return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrInvalidBreakableScope}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.skipSemicolon()
		return &ast.BreakStatement{}, nil
	case lexer.Continue:
		if p.loopDepth == 0 {
			return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrInvalidContinuableScope}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.skipSemicolon()
		return &ast.ContinueStatement{}, nil
	case lexer.Use:
		return p.parseUseStatement()
	case lexer.Pub:
		return p.parsePubStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) skipSemicolon() {
	if p.curTok.Kind == lexer.Semicolon {
		_ = p.advance()
	}
}

// parseType parses an optional `: name` type annotation, returning nil
// when none is present. The spec parses but never enforces the named type.
func (p *Parser) parseType() (*string, error) {
	if p.curTok.Kind != lexer.Colon {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.curTok.Kind != lexer.Identifier {
		return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrExpectedIdentifier, Found: p.curTok.Kind}
	}
	name := p.curTok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &name, nil
}

func (p *Parser) parseLetStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume let/const
		return nil, err
	}

	if p.curTok.Kind != lexer.Identifier {
		return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrExpectedIdentifier, Found: p.curTok.Kind}
	}
	name := p.curTok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}

	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Assign, "="); err != nil {
		return nil, err
	}

	initial, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.advanceUnlessAtStatementEnd(); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}

	return &ast.LetStatement{Name: name, Type: typ, Initial: initial}, nil
}

func (p *Parser) parseParameterList() ([]ast.Parameter, error) {
	if err := p.expect(lexer.LParen, "("); err != nil {
		return nil, err
	}

	var params []ast.Parameter
	for p.curTok.Kind != lexer.RParen {
		if p.curTok.Kind != lexer.Identifier {
			return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrExpectedIdentifier, Found: p.curTok.Kind}
		}
		name := p.curTok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Parameter{Name: name, Type: typ})

		if p.curTok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if err := p.expect(lexer.RParen, ")"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseBlock() ([]ast.Statement, error) {
	if err := p.expect(lexer.LBrace, "{"); err != nil {
		return nil, err
	}

	p.blockDepth++
	defer func() { p.blockDepth-- }()

	var stmts []ast.Statement
	for p.curTok.Kind != lexer.RBrace && p.curTok.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}

	if err := p.expect(lexer.RBrace, "}"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseFunctionStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume fn
		return nil, err
	}

	if p.curTok.Kind != lexer.Identifier {
		return nil, &ParseError{Line: p.curTok.Line, Span: p.curTok.Span, Kind: ErrExpectedIdentifier, Found: p.curTok.Kind}
	}
	name := p.curTok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}

	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}

	returnType, err := p.parseType()
	if err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionStatement{Name: name, Parameters: params, ReturnType: returnType, Body: body}, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume if
		return nil, err
	}

	condition, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.advanceUnlessAtBlockStart(); err != nil {
		return nil, err
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var otherwise []ast.Statement
	if p.curTok.Kind == lexer.Else {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.curTok.Kind == lexer.If {
			chained, err := p.parseIfStatement()
			if err != nil {
				return nil, err
			}
			otherwise = []ast.Statement{chained}
		} else {
			otherwise, err = p.parseBlock()
			if err != nil {
				return nil, err
			}
			if otherwise == nil {
				// keep an empty `else { }` distinguishable from no else
				otherwise = []ast.Statement{}
			}
		}
	}

	return &ast.IfStatement{Condition: condition, Then: then, Otherwise: otherwise}, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume while
		return nil, err
	}

	condition, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.advanceUnlessAtBlockStart(); err != nil {
		return nil, err
	}

	if err := p.expect(lexer.LBrace, "{"); err != nil {
		return nil, err
	}
	p.blockDepth++
	p.loopDepth++

	var body []ast.Statement
	for p.curTok.Kind != lexer.RBrace && p.curTok.Kind != lexer.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			p.loopDepth--
			p.blockDepth--
			return nil, err
		}
		body = append(body, stmt)
	}

	p.loopDepth--
	p.blockDepth--

	if err := p.expect(lexer.RBrace, "}"); err != nil {
		return nil, err
	}

	return &ast.WhileStatement{Condition: condition, Body: body}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume return
		return nil, err
	}

	var value ast.Expression
	if p.curTok.Kind == lexer.Semicolon || p.curTok.Kind == lexer.RBrace {
		value = &ast.NullLiteral{}
	} else {
		v, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		value = v
		if err := p.advanceUnlessAtStatementEnd(); err != nil {
			return nil, err
		}
	}

	p.skipSemicolon()
	return &ast.ReturnStatement{Value: value}, nil
}

func (p *Parser) parseUseStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume use
		return nil, err
	}
	if p.curTok.Kind != lexer.String {
		return nil, p.errUnexpected("string literal module name")
	}
	module := p.curTok.Literal
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.Semicolon, ";"); err != nil {
		return nil, err
	}
	return &ast.UseStatement{Module: module}, nil
}

func (p *Parser) parsePubStatement() (ast.Statement, error) {
	if err := p.advance(); err != nil { // consume pub
		return nil, err
	}
	inner, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.PubStatement{Inner: inner}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.advanceUnlessAtStatementEnd(); err != nil {
		return nil, err
	}
	p.skipSemicolon()
	return &ast.ExpressionStatement{Expression: expr}, nil
}

// --- Pratt expression grammar -------------------------------------------

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekTok.Kind]; ok {
		return prec
	}
	return lowest
}

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for p.peekTok.Kind != lexer.Semicolon && precedence < p.peekPrecedence() {
		if err := p.advance(); err != nil {
			return nil, err
		}
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parsePrefix parses a leading atom or unary form and returns with curTok
// left on its own last token (the teacher's non-advancing-primary
// convention, _examples/kristofer-smog/pkg/parser/parser.go), so that
// peekTok holds whatever operator or postfix form follows for
// parseExpression's precedence-gated loop to see.
func (p *Parser) parsePrefix() (ast.Expression, error) {
	switch p.curTok.Kind {
	case lexer.Number:
		return p.parseNumberLiteral()
	case lexer.String:
		return &ast.StringLiteral{Value: p.curTok.Literal}, nil
	case lexer.True:
		return &ast.BoolLiteral{Value: true}, nil
	case lexer.False:
		return &ast.BoolLiteral{Value: false}, nil
	case lexer.Null:
		return &ast.NullLiteral{}, nil
	case lexer.Identifier:
		return &ast.Identifier{Name: p.curTok.Literal}, nil
	case lexer.LParen:
		return p.parseGroupedExpression()
	case lexer.LBracket:
		return p.parseArrayLiteral()
	case lexer.Fn:
		return p.parseClosure()
	case lexer.Minus:
		return p.parsePrefixExpression()
	default:
		return nil, p.errUnexpected("an expression")
	}
}

func (p *Parser) parseNumberLiteral() (ast.Expression, error) {
	value, err := strconv.ParseFloat(p.curTok.Literal, 64)
	if err != nil {
		return nil, p.errUnexpected("a number")
	}
	return &ast.NumberLiteral{Value: value}, nil
}

func (p *Parser) parsePrefixExpression() (ast.Expression, error) {
	if err := p.advance(); err != nil { // consume -
		return nil, err
	}
	right, err := p.parseExpression(prefixPrec)
	if err != nil {
		return nil, err
	}
	return &ast.PrefixExpression{Op: ast.OpSubtract, Right: right}, nil
}

func (p *Parser) parseGroupedExpression() (ast.Expression, error) {
	if err := p.advance(); err != nil { // ( -> first token of inner expression
		return nil, err
	}
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.RParen, ")"); err != nil {
		return nil, err
	}
	return expr, nil
}

// parseExpressionList parses a comma-separated, possibly empty list of
// expressions up to (and including, on return) the closing delimiter end.
// It assumes curTok is already on the opening delimiter, and is shared by
// parseArrayLiteral and parseCall.
func (p *Parser) parseExpressionList(end lexer.Kind, expected string) ([]ast.Expression, error) {
	var list []ast.Expression

	if p.peekTok.Kind == end {
		return list, p.advance() // opening delimiter -> closing delimiter
	}

	if err := p.advance(); err != nil { // opening delimiter -> first item
		return nil, err
	}
	item, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	list = append(list, item)

	for p.peekTok.Kind == lexer.Comma {
		if err := p.advance(); err != nil { // item's last token -> comma
			return nil, err
		}
		if err := p.advance(); err != nil { // comma -> next item
			return nil, err
		}
		item, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}

	if err := p.expectPeek(end, expected); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	items, err := p.parseExpressionList(lexer.RBracket, "]")
	if err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Items: items}, nil
}

func (p *Parser) parseClosure() (ast.Expression, error) {
	if err := p.advance(); err != nil { // consume fn
		return nil, err
	}

	params, err := p.parseParameterList()
	if err != nil {
		return nil, err
	}

	if p.curTok.Kind == lexer.Colon {
		// return-type annotation before => or {; parsed and discarded
		if _, err := p.parseType(); err != nil {
			return nil, err
		}
	}

	if p.curTok.Kind == lexer.LBrace {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ClosureExpression{Parameters: params, Body: body}, nil
	}

	// fn(params) => expr
	if err := p.expect(lexer.Assign, "=>"); err != nil {
		return nil, err
	}
	// the lexer tokenizes `=>` as `=` followed by `>`; consume the `>`.
	if p.curTok.Kind != lexer.Gt {
		return nil, p.errUnexpected("=>")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	body := []ast.Statement{&ast.ReturnStatement{Value: expr}}
	return &ast.ClosureExpression{Parameters: params, Body: body}, nil
}

func (p *Parser) parseInfix(left ast.Expression) (ast.Expression, error) {
	switch p.curTok.Kind {
	case lexer.Assign:
		return p.parseAssign(left)
	case lexer.LParen:
		return p.parseCall(left)
	case lexer.LBracket:
		return p.parseIndex(left)
	case lexer.Dot:
		return p.parseDot(left)
	default:
		op, ok := infixOps[p.curTok.Kind]
		if !ok {
			return nil, p.errUnexpected("an operator")
		}
		precedence := precedences[p.curTok.Kind]
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseExpression(precedence)
		if err != nil {
			return nil, err
		}
		return &ast.InfixExpression{Left: left, Op: op, Right: right}, nil
	}
}

// parseAssign parses `target = value`, right-associatively, per §4.2's
// `Assign (=) (right-assoc)` rule.
func (p *Parser) parseAssign(left ast.Expression) (ast.Expression, error) {
	if err := p.advance(); err != nil { // consume =
		return nil, err
	}
	value, err := p.parseExpression(assignPrec - 1)
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpression{Target: left, Value: value}, nil
}

func (p *Parser) parseCall(callee ast.Expression) (ast.Expression, error) {
	args, err := p.parseExpressionList(lexer.RParen, ")")
	if err != nil {
		return nil, err
	}
	return &ast.CallExpression{Callee: callee, Args: args}, nil
}

// parseIndex parses `array[index]` or the append form `array[]`. Entry:
// curTok is `[`.
func (p *Parser) parseIndex(array ast.Expression) (ast.Expression, error) {
	if p.peekTok.Kind == lexer.RBracket {
		return &ast.IndexExpression{Array: array, Index: nil}, p.advance() // [ -> ]
	}

	if err := p.advance(); err != nil { // [ -> index expression
		return nil, err
	}
	index, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.RBracket, "]"); err != nil {
		return nil, err
	}
	return &ast.IndexExpression{Array: array, Index: index}, nil
}

func (p *Parser) parseDot(object ast.Expression) (ast.Expression, error) {
	if err := p.expectPeek(lexer.Identifier, "a property name"); err != nil {
		return nil, err
	}
	return &ast.DotExpression{Object: object, Property: p.curTok.Literal}, nil
}
