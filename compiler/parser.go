package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eischet/janitor-sub000/vm"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for Janitor syntax
// ---------------------------------------------------------------------------

// Parser parses Janitor source code into an AST.
//
// Statements end at a semicolon, a closing brace or a line break. A line
// break inside parentheses or brackets does not end a statement.
type Parser struct {
	tokens    []Token
	pos       int
	curToken  Token
	prevToken Token
	depth     int // ( and [ nesting of the current statement
	loops     int // enclosing loops of the current function
	diags     []vm.Diagnostic
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{tokens: NewLexer(input).Tokenize(), pos: -1}
	p.nextToken()
	return p
}

// Parse parses a whole script and returns the program with all
// diagnostics. The program is usable for tooling even when diagnostics are
// reported.
func Parse(source string) (*Program, []vm.Diagnostic) {
	p := NewParser(source)
	prog := p.ParseProgram()
	return prog, p.Diagnostics()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokens[p.pos]
}

// peek returns the token n positions ahead of the current one.
func (p *Parser) peek(n int) Token {
	i := p.pos + n
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected '%s', got %s", t, describeToken(p.curToken))
	return false
}

// errorf records a diagnostic at the current token. Only the first
// diagnostic per position is kept.
func (p *Parser) errorf(format string, args ...any) {
	p.errorAt(p.curToken.Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...any) {
	if n := len(p.diags); n > 0 && p.diags[n-1].Line == pos.Line && p.diags[n-1].Column == pos.Column {
		return
	}
	p.diags = append(p.diags, vm.Diagnostic{Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)})
}

// Diagnostics returns accumulated parse errors.
func (p *Parser) Diagnostics() []vm.Diagnostic {
	return p.diags
}

// continues reports whether the current token may extend the expression to
// its left.
func (p *Parser) continues() bool {
	return p.depth > 0 || !p.curToken.NewlineBefore
}

func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: p.prevToken.Pos}
}

func describeToken(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string"
	case TokenError:
		return t.Literal
	}
	return "'" + t.Literal + "'"
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ParseProgram parses statements up to the end of input.
func (p *Parser) ParseProgram() *Program {
	return &Program{Statements: p.parseStatements(TokenEOF)}
}

func (p *Parser) parseStatements(end TokenType) []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(end) && !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			continue
		}
		start := p.pos
		errs := len(p.diags)
		p.depth = 0
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		if len(p.diags) > errs {
			p.synchronize(end)
		}
		if p.pos == start {
			p.nextToken()
		}
	}
	return stmts
}

// synchronize skips to the start of the next statement after an error.
func (p *Parser) synchronize(end TokenType) {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(end) {
		if p.curTokenIs(TokenSemicolon) {
			p.nextToken()
			return
		}
		if p.curToken.NewlineBefore {
			return
		}
		p.nextToken()
	}
}

// endStatement consumes an optional semicolon and checks that nothing else
// follows on the same line.
func (p *Parser) endStatement() {
	switch {
	case p.curTokenIs(TokenSemicolon):
		p.nextToken()
	case p.atStatementEnd(), p.curTokenIs(TokenElse):
	default:
		p.errorf("unexpected %s", describeToken(p.curToken))
	}
}

func (p *Parser) atStatementEnd() bool {
	switch p.curToken.Type {
	case TokenSemicolon, TokenRBrace, TokenEOF:
		return true
	}
	return p.curToken.NewlineBefore
}

// ParseStatement parses a single statement.
func (p *Parser) ParseStatement() Stmt {
	return p.parseStatement()
}

func (p *Parser) parseStatement() Stmt {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenLBrace:
		return p.parseBlock()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenDo:
		return p.parseDoWhile()
	case TokenFor:
		return p.parseFor()
	case TokenTry:
		return p.parseTry()
	case TokenBreak, TokenContinue:
		tok := p.curToken
		if p.loops == 0 {
			p.errorf("'%s' outside loop", tok.Literal)
		}
		p.nextToken()
		p.endStatement()
		return &BranchStmt{SpanVal: p.spanFrom(start), Tok: tok.Type}
	case TokenReturn:
		p.nextToken()
		var value Expr
		if !p.atStatementEnd() {
			if value = p.parseExpression(); value == nil {
				return nil
			}
		}
		p.endStatement()
		return &ReturnStmt{SpanVal: p.spanFrom(start), Value: value}
	case TokenThrow:
		p.nextToken()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		p.endStatement()
		return &ThrowStmt{SpanVal: p.spanFrom(start), Value: value}
	case TokenFunction:
		if p.peek(1).Type == TokenIdentifier {
			p.nextToken()
			name := p.curToken.Literal
			p.nextToken()
			fn := p.parseFunctionRest(start, name)
			return &FunctionDecl{SpanVal: fn.SpanVal, Fn: fn}
		}
	}

	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	p.endStatement()
	return &ExprStmt{SpanVal: expr.Span(), Expr: expr}
}

func (p *Parser) parseBlock() *Block {
	start := p.curToken.Pos
	if !p.expect(TokenLBrace) {
		return &Block{SpanVal: Span{Start: start, End: start}}
	}
	depth := p.depth
	stmts := p.parseStatements(TokenRBrace)
	p.depth = depth
	p.expect(TokenRBrace)
	return &Block{SpanVal: p.spanFrom(start), Statements: stmts}
}

// parseCondition parses a parenthesized expression.
func (p *Parser) parseCondition() Expr {
	if !p.expect(TokenLParen) {
		return nil
	}
	p.depth++
	cond := p.parseExpression()
	p.depth--
	if cond == nil {
		return nil
	}
	p.expect(TokenRParen)
	return cond
}

func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	then := p.parseStatement()
	if then == nil {
		return nil
	}
	stmt := &IfStmt{Cond: cond, Then: then}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if stmt.Else = p.parseStatement(); stmt.Else == nil {
			return nil
		}
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

func (p *Parser) parseLoopBody() Stmt {
	p.loops++
	defer func() { p.loops-- }()
	return p.parseStatement()
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseLoopBody()
	if body == nil {
		return nil
	}
	return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	body := p.parseLoopBody()
	if body == nil || !p.expect(TokenWhile) {
		return nil
	}
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	p.endStatement()
	return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body, DoWhile: true}
}

func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	if !p.expect(TokenLParen) {
		return nil
	}
	p.depth++
	name := p.curToken.Literal
	if !p.expect(TokenIdentifier) || !p.expect(TokenIn) {
		p.depth--
		return nil
	}
	iterable := p.parseExpression()
	p.depth--
	if iterable == nil || !p.expect(TokenRParen) {
		return nil
	}
	body := p.parseLoopBody()
	if body == nil {
		return nil
	}
	return &ForInStmt{SpanVal: p.spanFrom(start), Var: name, Iterable: iterable, Body: body}
}

func (p *Parser) parseTry() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	stmt := &TryStmt{Body: p.parseBlock()}
	if p.curTokenIs(TokenCatch) {
		p.nextToken()
		switch {
		case p.curTokenIs(TokenLParen):
			p.nextToken()
			stmt.CatchVar = p.curToken.Literal
			if !p.expect(TokenIdentifier) || !p.expect(TokenRParen) {
				return nil
			}
		case p.curTokenIs(TokenIdentifier):
			stmt.CatchVar = p.curToken.Literal
			p.nextToken()
		}
		stmt.Catch = p.parseBlock()
	}
	if p.curTokenIs(TokenFinally) {
		p.nextToken()
		stmt.Finally = p.parseBlock()
	}
	if stmt.Catch == nil && stmt.Finally == nil {
		p.errorAt(start, "'try' without 'catch' or 'finally'")
		return nil
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

// parseFunctionRest parses the parameter list and body of a function.
func (p *Parser) parseFunctionRest(start Position, name string) *FunctionLiteral {
	params := p.parseParams()
	loops, depth := p.loops, p.depth
	p.loops, p.depth = 0, 0
	body := p.parseBlock()
	p.loops, p.depth = loops, depth
	return &FunctionLiteral{SpanVal: p.spanFrom(start), Name: name, Params: params, Body: body}
}

func (p *Parser) parseParams() []string {
	if !p.expect(TokenLParen) {
		return nil
	}
	var params []string
	seen := make(map[string]bool)
	for p.curTokenIs(TokenIdentifier) {
		name := p.curToken.Literal
		if seen[name] {
			p.errorf("duplicate parameter '%s'", name)
		}
		seen[name] = true
		params = append(params, name)
		p.nextToken()
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(TokenRParen)
	return params
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpression()
}

func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

func isAssignOp(t TokenType) bool {
	switch t {
	case TokenAssign, TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign:
		return true
	}
	return false
}

func assignable(e Expr) bool {
	switch e.(type) {
	case *Identifier, *AttributeExpr, *IndexExpr:
		return true
	}
	return false
}

func (p *Parser) parseAssignment() Expr {
	left := p.parseTernary()
	if left == nil || !isAssignOp(p.curToken.Type) || !p.continues() {
		return left
	}
	op := p.curToken.Type
	if !assignable(left) {
		p.errorf("cannot assign to this expression")
		return nil
	}
	p.nextToken()
	value := p.parseAssignment()
	if value == nil {
		return nil
	}
	return &AssignExpr{SpanVal: Span{Start: left.Span().Start, End: value.Span().End}, Op: op, Target: left, Value: value}
}

func (p *Parser) parseTernary() Expr {
	cond := p.parseOr()
	if cond == nil || !p.curTokenIs(TokenQuestion) || !p.continues() {
		return cond
	}
	p.nextToken()
	p.depth++
	then := p.parseTernary()
	ok := then != nil && p.expect(TokenColon)
	p.depth--
	if !ok {
		return nil
	}
	els := p.parseTernary()
	if els == nil {
		return nil
	}
	return &TernaryExpr{SpanVal: Span{Start: cond.Span().Start, End: els.Span().End}, Cond: cond, Then: then, Else: els}
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for left != nil && (p.curTokenIs(TokenOr) || p.curTokenIs(TokenOrOr)) && p.continues() {
		p.nextToken()
		right := p.parseAnd()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{SpanVal: Span{Start: left.Span().Start, End: right.Span().End}, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseNot()
	for left != nil && (p.curTokenIs(TokenAnd) || p.curTokenIs(TokenAndAnd)) && p.continues() {
		p.nextToken()
		right := p.parseNot()
		if right == nil {
			return nil
		}
		left = &LogicalExpr{SpanVal: Span{Start: left.Span().Start, End: right.Span().End}, And: true, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseNot() Expr {
	if !p.curTokenIs(TokenNot) {
		return p.parseComparison()
	}
	start := p.curToken.Pos
	p.nextToken()
	operand := p.parseNot()
	if operand == nil {
		return nil
	}
	return &UnaryExpr{SpanVal: p.spanFrom(start), Op: TokenNot, Operand: operand}
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEq, TokenNotEq, TokenLess, TokenLessEq, TokenGreater, TokenGreaterEq, TokenIn:
		return true
	}
	return false
}

func (p *Parser) parseComparison() Expr {
	left := p.parseAdditive()
	for left != nil && p.continues() {
		negate := false
		if p.curTokenIs(TokenNot) && p.peek(1).Type == TokenIn {
			negate = true
			p.nextToken()
		} else if !isComparison(p.curToken.Type) {
			break
		}
		op := p.curToken.Type
		p.nextToken()
		right := p.parseAdditive()
		if right == nil {
			return nil
		}
		span := Span{Start: left.Span().Start, End: right.Span().End}
		left = &BinaryExpr{SpanVal: span, Op: op, Left: left, Right: right}
		if negate {
			left = &UnaryExpr{SpanVal: span, Op: TokenNot, Operand: left}
		}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for left != nil && (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) && p.continues() {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseMultiplicative()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: Span{Start: left.Span().Start, End: right.Span().End}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for left != nil && (p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent)) && p.continues() {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: Span{Start: left.Span().Start, End: right.Span().End}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenMinus:
		p.nextToken()
		operand := p.parseUnary()
		switch lit := operand.(type) {
		case nil:
			return nil
		case *IntLiteral:
			lit.Value, lit.SpanVal.Start = -lit.Value, start
			return lit
		case *FloatLiteral:
			lit.Value, lit.SpanVal.Start = -lit.Value, start
			return lit
		}
		return &UnaryExpr{SpanVal: p.spanFrom(start), Op: TokenMinus, Operand: operand}
	case TokenBang:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{SpanVal: p.spanFrom(start), Op: TokenNot, Operand: operand}
	case TokenInc, TokenDec:
		op := p.curToken.Type
		p.nextToken()
		target := p.parseUnary()
		if target == nil {
			return nil
		}
		if !assignable(target) {
			p.errorAt(start, "operand of '%s' is not assignable", op)
			return nil
		}
		return &IncDecExpr{SpanVal: p.spanFrom(start), Op: op, Prefix: true, Target: target}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	expr := p.parsePrimary()
	for expr != nil {
		start := expr.Span().Start
		switch {
		case p.curTokenIs(TokenPeriod):
			p.nextToken()
			name := p.curToken
			if name.Type != TokenIdentifier && !IsReserved(name.Literal) {
				p.errorf("expected attribute name, got %s", describeToken(name))
				return nil
			}
			p.nextToken()
			expr = &AttributeExpr{SpanVal: p.spanFrom(start), Object: expr, Name: name.Literal}
		case p.curTokenIs(TokenLParen) && p.continues():
			expr = p.parseCall(expr)
		case p.curTokenIs(TokenLBracket) && p.continues():
			expr = p.parseIndex(expr)
		case (p.curTokenIs(TokenInc) || p.curTokenIs(TokenDec)) && p.continues():
			if !assignable(expr) {
				p.errorf("operand of '%s' is not assignable", p.curToken.Type)
				return nil
			}
			op := p.curToken.Type
			p.nextToken()
			expr = &IncDecExpr{SpanVal: p.spanFrom(start), Op: op, Target: expr}
		default:
			return expr
		}
	}
	return expr
}

func (p *Parser) parseCall(fn Expr) Expr {
	p.nextToken()
	p.depth++
	var args []Expr
	for !p.curTokenIs(TokenRParen) {
		arg := p.parseExpression()
		if arg == nil {
			p.depth--
			return nil
		}
		args = append(args, arg)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.depth--
	if !p.expect(TokenRParen) {
		return nil
	}
	return &CallExpr{SpanVal: p.spanFrom(fn.Span().Start), Fn: fn, Args: args}
}

// parseIndex parses x[i], x[a:b], x[a:] and x[:b].
func (p *Parser) parseIndex(object Expr) Expr {
	p.nextToken()
	p.depth++
	defer func() { p.depth-- }()

	var from, to Expr
	if !p.curTokenIs(TokenColon) {
		if from = p.parseExpression(); from == nil {
			return nil
		}
	}
	if !p.curTokenIs(TokenColon) {
		if !p.expect(TokenRBracket) {
			return nil
		}
		return &IndexExpr{SpanVal: p.spanFrom(object.Span().Start), Object: object, Index: from}
	}
	p.nextToken()
	if !p.curTokenIs(TokenRBracket) {
		if to = p.parseExpression(); to == nil {
			return nil
		}
	}
	if !p.expect(TokenRBracket) {
		return nil
	}
	return &SliceExpr{SpanVal: p.spanFrom(object.Span().Start), Object: object, From: from, To: to}
}

// ---------------------------------------------------------------------------
// Primary expressions
// ---------------------------------------------------------------------------

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	start := tok.Pos
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errorAt(start, "integer literal %s out of range", tok.Literal)
			return nil
		}
		return &IntLiteral{SpanVal: p.spanFrom(start), Value: n}
	case TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(start, "invalid float literal %s", tok.Literal)
			return nil
		}
		return &FloatLiteral{SpanVal: p.spanFrom(start), Value: f}
	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: p.spanFrom(start), Value: tok.Literal}
	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: p.spanFrom(start), Value: tok.Type == TokenTrue}
	case TokenNull:
		p.nextToken()
		return &NullLiteral{SpanVal: p.spanFrom(start)}
	case TokenDate, TokenDateTime, TokenDuration:
		p.nextToken()
		v, err := temporalValue(tok)
		if err != nil {
			p.errorAt(start, "%v", err)
			return nil
		}
		return &TemporalLiteral{SpanVal: p.spanFrom(start), Kind: tok.Type, Text: tok.Literal, Value: v}
	case TokenRegex:
		p.nextToken()
		re, err := regexp.Compile(tok.Literal)
		if err != nil {
			p.errorAt(start, "invalid regex: %v", err)
			return nil
		}
		return &RegexLiteral{SpanVal: p.spanFrom(start), Pattern: tok.Literal, Compiled: re}
	case TokenIdentifier:
		if next := p.peek(1); next.Type == TokenArrow && !next.NewlineBefore {
			p.nextToken()
			return p.parseLambdaBody(start, []string{tok.Literal})
		}
		p.nextToken()
		return &Identifier{SpanVal: p.spanFrom(start), Name: tok.Literal}
	case TokenLParen:
		if p.lambdaAhead() {
			return p.parseLambdaBody(start, p.parseParams())
		}
		p.nextToken()
		p.depth++
		inner := p.parseExpression()
		p.depth--
		if inner == nil || !p.expect(TokenRParen) {
			return nil
		}
		return inner
	case TokenLBracket:
		return p.parseList()
	case TokenLBrace:
		return p.parseMap()
	case TokenFunction:
		p.nextToken()
		name := ""
		if p.curTokenIs(TokenIdentifier) {
			name = p.curToken.Literal
			p.nextToken()
		}
		return p.parseFunctionRest(start, name)
	case TokenError:
		p.errorf("%s", tok.Literal)
		p.nextToken()
		return nil
	}
	p.errorf("unexpected %s", describeToken(tok))
	return nil
}

// lambdaAhead reports whether the current ( starts a lambda parameter list:
// () -> or (a, b) ->.
func (p *Parser) lambdaAhead() bool {
	i := 1
	if p.peek(i).Type != TokenRParen {
		for {
			if p.peek(i).Type != TokenIdentifier {
				return false
			}
			i++
			if p.peek(i).Type != TokenComma {
				break
			}
			i++
		}
		if p.peek(i).Type != TokenRParen {
			return false
		}
	}
	return p.peek(i+1).Type == TokenArrow
}

// parseLambdaBody parses "-> expr" or "-> { ... }".
func (p *Parser) parseLambdaBody(start Position, params []string) Expr {
	if !p.expect(TokenArrow) {
		return nil
	}
	if p.curTokenIs(TokenLBrace) {
		loops, depth := p.loops, p.depth
		p.loops, p.depth = 0, 0
		body := p.parseBlock()
		p.loops, p.depth = loops, depth
		return &FunctionLiteral{SpanVal: p.spanFrom(start), Params: params, Body: body}
	}
	result := p.parseExpression()
	if result == nil {
		return nil
	}
	return &FunctionLiteral{SpanVal: p.spanFrom(start), Params: params, Result: result}
}

func (p *Parser) parseList() Expr {
	start := p.curToken.Pos
	p.nextToken()
	p.depth++
	var elems []Expr
	for !p.curTokenIs(TokenRBracket) {
		e := p.parseExpression()
		if e == nil {
			p.depth--
			return nil
		}
		elems = append(elems, e)
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	p.depth--
	if !p.expect(TokenRBracket) {
		return nil
	}
	return &ListLiteral{SpanVal: p.spanFrom(start), Elements: elems}
}

// parseMap parses {key: value, ...}. A bare identifier key is a string.
func (p *Parser) parseMap() Expr {
	start := p.curToken.Pos
	p.nextToken()
	p.depth++
	defer func() { p.depth-- }()

	var entries []MapEntry
	for !p.curTokenIs(TokenRBrace) {
		var key Expr
		if p.curTokenIs(TokenIdentifier) && p.peek(1).Type == TokenColon {
			key = &StringLiteral{SpanVal: Span{Start: p.curToken.Pos, End: p.curToken.Pos}, Value: p.curToken.Literal}
			p.nextToken()
		} else if key = p.parseExpression(); key == nil {
			return nil
		}
		if !p.expect(TokenColon) {
			return nil
		}
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	return &MapLiteral{SpanVal: p.spanFrom(start), Entries: entries}
}

// temporalValue converts a date, datetime or duration token to its value.
func temporalValue(tok Token) (vm.Value, error) {
	switch tok.Type {
	case TokenDate:
		t, err := time.ParseInLocation("2006-01-02", tok.Literal, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date literal @%s", tok.Literal)
		}
		return vm.DateOf(t), nil
	case TokenDateTime:
		t, err := time.ParseInLocation("2006-01-02-15:04:05", tok.Literal, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid datetime literal @%s", tok.Literal)
		}
		return vm.NewDateTime(t), nil
	}
	digits := strings.TrimRightFunc(tok.Literal, isLetter)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration literal @%s", tok.Literal)
	}
	return vm.DurationOf(n, tok.Literal[len(digits):])
}
