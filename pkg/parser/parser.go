// Package parser implements penguin's recursive-descent parser: tokens in,
// an ast.Program out, with diagnostics accumulated rather than aborting on
// the first syntax error (spec.md §4.2).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"penguin/pkg/ast"
	"penguin/pkg/diagnostics"
	"penguin/pkg/token"
)

// Parser consumes the flat token slice produced by the lexer and builds an
// AST, reporting every syntax error it finds to sink rather than stopping at
// the first one.
type Parser struct {
	tokens      []token.Token
	pos         int
	sourceLines []string
	sink        *diagnostics.Sink
}

// New returns a Parser over tokens. rawSource is kept only to build
// source-line snippets for diagnostics.
func New(tokens []token.Token, rawSource []byte, sink *diagnostics.Sink) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(string(rawSource), "\n"), sink: sink}
}

// Parse parses tokens into a Program, recovering from syntax errors at
// statement boundaries so the caller sees every parse-error diagnostic in
// one pass rather than just the first.
func Parse(tokens []token.Token, rawSource []byte, sink *diagnostics.Sink) *ast.Program {
	return New(tokens, rawSource, sink).ParseProgram()
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	if p.pos+offset >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) at(tt token.Type) bool { return p.peek().Type == tt }

// span builds a diagnostics.Span covering [start, the token just consumed].
func span(start, end token.Token) diagnostics.Span {
	return diagnostics.Span{
		StartLine: start.Line, StartCol: start.Col, StartOffset: start.Offset,
		EndLine: end.Line, EndCol: end.Col, EndOffset: end.End,
	}
}

func (p *Parser) tokSpan(t token.Token) diagnostics.Span { return span(t, t) }

// parseError reports a syntax error at tok's position with a source-line
// snippet, matching the teacher's fmtError convention.
func (p *Parser) parseError(tok token.Token, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1
	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}
	p.sink.Errorf(diagnostics.ParseError, p.tokSpan(tok), "%s\n  |> %s", msg, snippet)
}

// expect consumes the current token if it matches tt; otherwise it reports a
// parse error and returns the unconsumed token unmodified so callers can
// keep building a best-effort node.
func (p *Parser) expect(tt token.Type) token.Token {
	tok := p.peek()
	if tok.Type != tt {
		p.parseError(tok, "expected %s, got %s (%q)", tt, tok.Type, tok.Lexeme)
		return tok
	}
	return p.advance()
}

// isTypeKeyword reports whether tt starts a type name (int/sprite/tileset/tilemap).
func isTypeKeyword(tt token.Type) bool {
	switch tt {
	case token.INT, token.SPRITE, token.TILESET, token.TILEMAP:
		return true
	}
	return false
}

// statementStart reports whether tt is a token that can only appear at the
// start of a statement — used both for dispatch and for recovery.
func statementStart(tt token.Type) bool {
	switch tt {
	case token.IF, token.LOOP, token.PROCEDURE, token.RETURN, token.LIST,
		token.INT, token.SPRITE, token.TILESET, token.TILEMAP, token.IDENTIFIER:
		return true
	}
	return false
}

// synchronize discards tokens until it reaches a SEMICOLON (consumed), an
// RBRACE (left for the caller), the start of a new statement, or EOF. This
// is the single-token-recovery-at-statement-boundaries scheme spec.md §4.2
// requires.
func (p *Parser) synchronize() {
	for {
		switch p.peek().Type {
		case token.EOF, token.RBRACE:
			return
		case token.SEMICOLON:
			p.advance()
			return
		}
		if statementStart(p.peek().Type) {
			return
		}
		p.advance()
	}
}

// ----- Program / statements -----

// ParseProgram parses the whole token stream as a sequence of top-level
// statements, synchronizing past any statement that fails to parse.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.at(token.EOF) {
		start := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
		if p.pos == start {
			// parseStatement made no progress (e.g. an unparseable leading
			// token): force progress so the loop cannot spin forever.
			p.advance()
		}
	}
	if len(prog.Statements) == 0 {
		p.parseError(p.peek(), "an empty program is not allowed")
	}
	return prog
}

// parseStatement dispatches on the lookahead token and returns the
// (possibly best-effort) statement; if parsing it reported an error, it
// then resynchronizes at the next statement boundary.
func (p *Parser) parseStatement() ast.Stmt {
	errsBefore := len(p.sink.All())
	var stmt ast.Stmt
	switch p.peek().Type {
	case token.LIST:
		stmt = p.parseListInit()
	case token.IF:
		stmt = p.parseIf()
	case token.LOOP:
		stmt = p.parseLoop()
	case token.PROCEDURE:
		stmt = p.parseProcDecl()
	case token.RETURN:
		stmt = p.parseReturn()
	case token.LBRACE:
		stmt = p.parseBlock()
	case token.INT, token.SPRITE, token.TILESET, token.TILEMAP:
		stmt = p.parseDeclOrInit()
	default:
		stmt = p.parseExprStatement()
	}
	if len(p.sink.All()) > errsBefore {
		p.synchronize()
	}
	return stmt
}

func (p *Parser) parseDeclOrInit() ast.Stmt {
	start := p.peek()
	typeTok := p.advance()
	nameTok := p.expect(token.IDENTIFIER)
	if p.at(token.ASSIGN) {
		p.advance()
		init := p.parseExpression()
		end := p.expect(token.SEMICOLON)
		return &ast.Initialization{TypeName: typeTok.Lexeme, Name: nameTok.Lexeme, Init: init, Sp: span(start, end)}
	}
	end := p.expect(token.SEMICOLON)
	return &ast.Declaration{TypeName: typeTok.Lexeme, Name: nameTok.Lexeme, Sp: span(start, end)}
}

func (p *Parser) parseListInit() ast.Stmt {
	start := p.advance() // 'list'
	nameTok := p.expect(token.IDENTIFIER)
	p.expect(token.ASSIGN)
	p.expect(token.LBRACKET)
	var elements []ast.Expr
	if !p.at(token.RBRACKET) {
		elements = append(elements, p.parseExpression())
		for p.at(token.COMMA) {
			p.advance()
			elements = append(elements, p.parseExpression())
		}
	}
	p.expect(token.RBRACKET)
	end := p.expect(token.SEMICOLON)
	return &ast.ListInit{Name: nameTok.Lexeme, Elements: elements, Sp: span(start, end)}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance() // 'if'
	p.expect(token.LPAREN)
	cond := p.parseExpression()
	p.expect(token.RPAREN)
	then := p.parseBlock().(*ast.Block)
	var els *ast.Block
	end := then.Sp
	if p.at(token.ELSE) {
		p.advance()
		els = p.parseBlock().(*ast.Block)
		end = els.Sp
	}
	return &ast.If{Cond: cond, Then: then, Else: els, Sp: diagnostics.Span{
		StartLine: start.Line, StartCol: start.Col, StartOffset: start.Offset,
		EndLine: end.EndLine, EndCol: end.EndCol, EndOffset: end.EndOffset,
	}}
}

func (p *Parser) parseLoop() ast.Stmt {
	start := p.advance() // 'loop'
	p.expect(token.LPAREN)
	cond := p.parseExpression()
	p.expect(token.RPAREN)
	body := p.parseBlock().(*ast.Block)
	return &ast.Loop{Cond: cond, Body: body, Sp: diagnostics.Span{
		StartLine: start.Line, StartCol: start.Col, StartOffset: start.Offset,
		EndLine: body.Sp.EndLine, EndCol: body.Sp.EndCol, EndOffset: body.Sp.EndOffset,
	}}
}

func (p *Parser) parseBlock() ast.Stmt {
	start := p.expect(token.LBRACE)
	var stmts []ast.Stmt
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		pos := p.pos
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == pos {
			p.advance()
		}
	}
	end := p.expect(token.RBRACE)
	return &ast.Block{Statements: stmts, Sp: span(start, end)}
}

// parseProcDecl parses `procedure [T] name ( [T p, ...] ) { ... }`. The
// return type is present only when a type keyword is immediately followed
// by an identifier — i.e. two tokens of lookahead distinguish
// `procedure int f(...)` from `procedure f(...)`.
func (p *Parser) parseProcDecl() ast.Stmt {
	start := p.advance() // 'procedure'
	returnType := ""
	if isTypeKeyword(p.peek().Type) && p.peekAt(1).Type == token.IDENTIFIER {
		returnType = p.advance().Lexeme
	}
	nameTok := p.expect(token.IDENTIFIER)
	p.expect(token.LPAREN)
	var params []ast.Param
	if !p.at(token.RPAREN) {
		params = append(params, p.parseParam())
		for p.at(token.COMMA) {
			p.advance()
			params = append(params, p.parseParam())
		}
	}
	p.expect(token.RPAREN)
	body := p.parseBlock().(*ast.Block)
	return &ast.ProcDecl{
		ReturnType: returnType, Name: nameTok.Lexeme, Params: params, Body: body,
		Sp: diagnostics.Span{
			StartLine: start.Line, StartCol: start.Col, StartOffset: start.Offset,
			EndLine: body.Sp.EndLine, EndCol: body.Sp.EndCol, EndOffset: body.Sp.EndOffset,
		},
	}
}

func (p *Parser) parseParam() ast.Param {
	typeTok := p.peek()
	if !isTypeKeyword(typeTok.Type) {
		p.parseError(typeTok, "expected a parameter type, got %s (%q)", typeTok.Type, typeTok.Lexeme)
	} else {
		p.advance()
	}
	nameTok := p.expect(token.IDENTIFIER)
	return ast.Param{TypeName: typeTok.Lexeme, Name: nameTok.Lexeme}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.advance() // 'return'
	if p.at(token.SEMICOLON) {
		end := p.advance()
		return &ast.Return{Sp: span(start, end)}
	}
	val := p.parseExpression()
	end := p.expect(token.SEMICOLON)
	return &ast.Return{Value: val, Sp: span(start, end)}
}

// parseExprStatement handles the two statement forms that start with an
// expression: `lvalue = expr;` and `call;`.
func (p *Parser) parseExprStatement() ast.Stmt {
	start := p.peek()
	expr := p.parseExpression()
	if p.at(token.ASSIGN) {
		p.advance()
		value := p.parseExpression()
		end := p.expect(token.SEMICOLON)
		return &ast.Assignment{Target: expr, Value: value, Sp: span(start, end)}
	}
	end := p.expect(token.SEMICOLON)
	call, ok := expr.(*ast.ProcCall)
	if !ok {
		p.parseError(start, "expected an assignment or a procedure call statement")
		return nil
	}
	return &ast.ProcCallStmt{Call: call, Sp: span(start, end)}
}

// ----- Expressions: precedence-climbing, tightest to loosest per spec.md §4.2 -----
//
// Loosest to tightest, outermost call first: xor, or, and, |, ^, &,
// equality, relational, shift, additive, *, unary.

func (p *Parser) parseExpression() ast.Expr { return p.parseXorKw() }

func (p *Parser) parseXorKw() ast.Expr {
	left := p.parseOrKw()
	for p.at(token.XOR) {
		op := p.advance()
		right := p.parseOrKw()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseOrKw() ast.Expr {
	left := p.parseAndKw()
	for p.at(token.OR) {
		op := p.advance()
		right := p.parseAndKw()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseAndKw() ast.Expr {
	left := p.parseBitOr()
	for p.at(token.AND) {
		op := p.advance()
		right := p.parseBitOr()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseBitOr() ast.Expr {
	left := p.parseBitXor()
	for p.at(token.PIPE) {
		op := p.advance()
		right := p.parseBitXor()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseBitXor() ast.Expr {
	left := p.parseBitAnd()
	for p.at(token.CARET) {
		op := p.advance()
		right := p.parseBitAnd()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseBitAnd() ast.Expr {
	left := p.parseEquality()
	for p.at(token.AMP) {
		op := p.advance()
		right := p.parseEquality()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseEquality() ast.Expr {
	left := p.parseRelational()
	for p.at(token.EQ) || p.at(token.NEQ) {
		op := p.advance()
		right := p.parseRelational()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseRelational() ast.Expr {
	left := p.parseShift()
	for p.at(token.LT) || p.at(token.GT) || p.at(token.LE) || p.at(token.GE) {
		op := p.advance()
		right := p.parseShift()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseShift() ast.Expr {
	left := p.parseAdditive()
	for p.at(token.SHL) || p.at(token.SHR) {
		op := p.advance()
		right := p.parseAdditive()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := p.advance()
		right := p.parseMultiplicative()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

// parseMultiplicative is the tightest binary level: only '*' (spec.md §4.2
// has no '/' or '%' — division isn't part of the language).
func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for p.at(token.STAR) {
		op := p.advance()
		right := p.parseUnary()
		left = &ast.Binary{Op: op.Type, Left: left, Right: right, Sp: span(startTok(left), endTok(right))}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.peek().Type {
	case token.TILDE, token.NOT, token.PLUS, token.MINUS:
		op := p.advance()
		x := p.parseUnary()
		return &ast.Unary{Op: op.Type, X: x, Sp: span(op, endTok(x))}
	}
	return p.parsePostfix()
}

// parsePostfix parses a primary expression followed by any chain of
// `.ident`, `[expr]`, or `(args)` suffixes, building AttrAccess, ListAccess,
// and ProcCall nodes respectively.
func (p *Parser) parsePostfix() ast.Expr {
	start := p.peek()
	expr := p.parsePrimary()
	for {
		switch p.peek().Type {
		case token.DOT:
			p.advance()
			attrTok := p.expect(token.IDENTIFIER)
			expr = &ast.AttrAccess{Base: expr, Attr: attrTok.Lexeme, Sp: span(start, attrTok)}
		case token.LBRACKET:
			var indices []ast.Expr
			base := expr
			for p.at(token.LBRACKET) {
				p.advance()
				indices = append(indices, p.parseExpression())
				p.expect(token.RBRACKET)
			}
			end := p.tokens[p.pos-1]
			expr = &ast.ListAccess{Base: base, Indices: indices, Sp: span(start, end)}
		case token.LPAREN:
			callee, ok := flattenCallee(expr)
			if !ok {
				p.parseError(start, "cannot call %s", expr)
			}
			p.advance()
			var args []ast.Expr
			if !p.at(token.RPAREN) {
				args = append(args, p.parseExpression())
				for p.at(token.COMMA) {
					p.advance()
					args = append(args, p.parseExpression())
				}
			}
			end := p.expect(token.RPAREN)
			expr = &ast.ProcCall{Name: callee, Args: args, Sp: span(start, end)}
		default:
			return expr
		}
	}
}

// flattenCallee reduces a Name or a dotted AttrAccess chain rooted at a Name
// (e.g. control.LCDon) to the dotted path ProcCall.Name carries; any other
// shape (a call result, a list access, ...) cannot be called.
func flattenCallee(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Name:
		return n.Ident, true
	case *ast.AttrAccess:
		base, ok := flattenCallee(n.Base)
		if !ok {
			return "", false
		}
		return base + "." + n.Attr, true
	default:
		return "", false
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Type {
	case token.DECIMAL:
		p.advance()
		v, _ := strconv.ParseUint(tok.Lexeme, 10, 64)
		return &ast.Literal{Value: v, Sp: p.tokSpan(tok)}
	case token.HEX:
		p.advance()
		v, _ := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(tok.Lexeme, "0x"), "0X"), 16, 64)
		return &ast.Literal{Value: v, Sp: p.tokSpan(tok)}
	case token.BINARY:
		p.advance()
		v, _ := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(tok.Lexeme, "0b"), "0B"), 2, 64)
		return &ast.Literal{Value: v, Sp: p.tokSpan(tok)}
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Value: tok.Lexeme, Sp: p.tokSpan(tok)}
	case token.IDENTIFIER:
		p.advance()
		return &ast.Name{Ident: tok.Lexeme, Sp: p.tokSpan(tok)}
	case token.LPAREN:
		p.advance()
		inner := p.parseExpression()
		end := p.expect(token.RPAREN)
		return &ast.Paren{X: inner, Sp: span(tok, end)}
	default:
		p.parseError(tok, "expected an expression, got %s (%q)", tok.Type, tok.Lexeme)
		p.advance()
		return &ast.Literal{Value: 0, Sp: p.tokSpan(tok)}
	}
}

func startTok(e ast.Expr) token.Token {
	sp := e.Span()
	return token.Token{Line: sp.StartLine, Col: sp.StartCol, Offset: sp.StartOffset}
}

func endTok(e ast.Expr) token.Token {
	sp := e.Span()
	return token.Token{Line: sp.EndLine, Col: sp.EndCol, End: sp.EndOffset}
}
