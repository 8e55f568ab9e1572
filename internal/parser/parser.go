// Package parser builds the tagged-variant tree (internal/ast) from a token
// stream using recursive descent for declarations and statements and
// precedence climbing for expressions.
package parser

import (
	"github.com/vega-lang/vegac/internal/ast"
	"github.com/vega-lang/vegac/internal/diagnostic"
	"github.com/vega-lang/vegac/internal/lexer"
)

// tokenSource is the subset of *lexer.Lexer the parser needs, so tests can
// feed a Parser a canned token sequence without a real Lexer.
type tokenSource interface {
	NextToken() lexer.Token
}

// Parser consumes tokens from a lexer and produces an *ast.Program.
type Parser struct {
	lex tokenSource

	cur  lexer.Token
	prev lexer.Token

	errors    *diagnostic.Bag
	panicking bool

	ids ast.IDGen
}

// New creates a Parser reading from lex.
func New(lex *lexer.Lexer) *Parser {
	p := &Parser{lex: lex, errors: diagnostic.NewBag(diagnostic.StageParser)}
	p.advance()
	return p
}

// HadError reports whether any syntax error was recorded.
func (p *Parser) HadError() bool { return p.errors.HadError() }

// ErrorMessage returns the first syntax error's message, or "".
func (p *Parser) ErrorMessage() string { return p.errors.Message() }

// ErrorLocation returns the first syntax error's location.
func (p *Parser) ErrorLocation() diagnostic.Location { return p.errors.Location() }

func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.lex.NextToken()
	// Lexical errors surface as syntax errors at the parser stage too,
	// since nothing downstream can recover from an ERROR token.
	if p.cur.Kind == lexer.ERROR && !p.panicking {
		p.errorAt(p.cur.Location, "malformed token")
	}
}

func (p *Parser) check(kind lexer.Kind) bool { return p.cur.Kind == kind }

func (p *Parser) match(kind lexer.Kind) bool {
	if p.check(kind) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind, or records a syntax error and
// enters panic mode if the current token doesn't match.
func (p *Parser) expect(kind lexer.Kind, context string) lexer.Token {
	if p.check(kind) {
		tok := p.cur
		p.advance()
		return tok
	}
	p.errorAt(p.cur.Location, "expected %s while parsing %s, got %s", kind, context, p.cur.Kind)
	p.synchronize()
	return lexer.Token{Kind: kind, Location: p.cur.Location}
}

func (p *Parser) errorAt(loc diagnostic.Location, format string, args ...any) {
	p.errors.Report(loc, format, args...)
}

// synchronize enters panic mode and skips tokens until the next
// statement-start token, or until just after a ';' or '}'.
func (p *Parser) synchronize() {
	p.panicking = true
	for !p.check(lexer.EOF) {
		if p.prev.Kind == lexer.SEMI || p.prev.Kind == lexer.RBRACE {
			p.panicking = false
			return
		}
		switch p.cur.Kind {
		case lexer.LET, lexer.IF, lexer.WHILE, lexer.RETURN, lexer.FN, lexer.AGENT:
			p.panicking = false
			return
		}
		p.advance()
	}
	p.panicking = false
}

func (p *Parser) nextID() ast.NodeID { return p.ids.Next() }

// ParseProgram parses the whole token stream as a sequence of import, agent,
// and fn declarations.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{}
	for !p.check(lexer.EOF) {
		decl := p.ParseDeclaration()
		if decl == nil {
			continue
		}
		switch decl.Kind {
		case ast.DeclImport:
			prog.Imports = append(prog.Imports, decl)
		case ast.DeclAgent:
			prog.Agents = append(prog.Agents, decl)
		case ast.DeclFunction:
			prog.Funcs = append(prog.Funcs, decl)
		}
	}
	return prog
}

// ParseDeclaration parses one top-level declaration: import, agent, or fn.
func (p *Parser) ParseDeclaration() *ast.Decl {
	switch p.cur.Kind {
	case lexer.IMPORT:
		return p.parseImport()
	case lexer.AGENT:
		return p.parseAgent()
	case lexer.FN:
		return p.parseFunction(ast.DeclFunction)
	default:
		p.errorAt(p.cur.Location, "expected import, agent, or fn declaration, got %s", p.cur.Kind)
		p.synchronize()
		return nil
	}
}

func (p *Parser) parseImport() *ast.Decl {
	loc := p.cur.Location
	p.expect(lexer.IMPORT, "import declaration")
	pathTok := p.expect(lexer.STRING, "import path")
	decl := &ast.Decl{Kind: ast.DeclImport, ID: p.nextID(), Loc: loc, Path: pathTok.Text}
	if p.match(lexer.AS) {
		alias := p.expect(lexer.IDENT, "import alias")
		decl.Alias = alias.Text
	}
	p.expect(lexer.SEMI, "import declaration")
	return decl
}

func (p *Parser) parseAgent() *ast.Decl {
	loc := p.cur.Location
	p.expect(lexer.AGENT, "agent declaration")
	name := p.expect(lexer.IDENT, "agent name")
	agent := &ast.Decl{Kind: ast.DeclAgent, ID: p.nextID(), Loc: loc, Name: name.Text, Temperature: 0.7}
	p.expect(lexer.LBRACE, "agent body")

	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		switch p.cur.Kind {
		case lexer.MODEL:
			p.advance()
			tok := p.expect(lexer.STRING, "model string")
			p.expect(lexer.SEMI, "model declaration")
			v := tok.Text
			agent.Model = &v
		case lexer.SYSTEM:
			p.advance()
			tok := p.expect(lexer.STRING, "system prompt string")
			p.expect(lexer.SEMI, "system declaration")
			v := tok.Text
			agent.System = &v
		case lexer.TEMPERATURE:
			p.advance()
			agent.Temperature = p.parseNumberLiteralValue()
			p.expect(lexer.SEMI, "temperature declaration")
		case lexer.TOOL:
			agent.Tools = append(agent.Tools, p.parseFunction(ast.DeclTool))
		default:
			p.errorAt(p.cur.Location, "expected model, system, temperature, or tool inside agent body, got %s", p.cur.Kind)
			p.synchronize()
		}
	}
	p.expect(lexer.RBRACE, "agent body")
	return agent
}

// parseNumberLiteralValue reads a bare int or float literal (used for
// `temperature N`) and returns it as a float64.
func (p *Parser) parseNumberLiteralValue() float64 {
	switch p.cur.Kind {
	case lexer.INT:
		v := float64(p.cur.IntValue)
		p.advance()
		return v
	case lexer.FLOAT:
		v := p.cur.FloatValue
		p.advance()
		return v
	default:
		p.errorAt(p.cur.Location, "expected numeric literal, got %s", p.cur.Kind)
		p.synchronize()
		return 0
	}
}

// parseFunction parses `fn NAME(params) [-> T] { ... }`, also used for
// `tool NAME(params) -> T { ... }` since both share the grammar shape.
func (p *Parser) parseFunction(kind ast.DeclKind) *ast.Decl {
	loc := p.cur.Location
	if kind == ast.DeclTool {
		p.expect(lexer.TOOL, "tool declaration")
	} else {
		p.expect(lexer.FN, "function declaration")
	}
	name := p.expect(lexer.IDENT, "function name")
	params := p.parseParamList()

	var ret *ast.TypeAnn
	if p.match(lexer.ARROW) {
		ret = p.parseTypeAnn()
	}
	body := p.parseBlock()
	return &ast.Decl{
		Kind: kind, ID: p.nextID(), Loc: loc, Name: name.Text,
		Params: params, ReturnType: ret, Body: body,
	}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expect(lexer.LPAREN, "parameter list")
	var params []ast.Param
	if !p.check(lexer.RPAREN) {
		for {
			name := p.expect(lexer.IDENT, "parameter name")
			p.expect(lexer.COLON, "parameter type")
			typ := p.parseTypeAnn()
			params = append(params, ast.Param{Name: name.Text, Type: *typ})
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.expect(lexer.RPAREN, "parameter list")
	return params
}

func (p *Parser) parseTypeAnn() *ast.TypeAnn {
	var name string
	switch p.cur.Kind {
	case lexer.KW_INT:
		name = "int"
		p.advance()
	case lexer.KW_FLOAT:
		name = "float"
		p.advance()
	case lexer.KW_BOOL:
		name = "bool"
		p.advance()
	case lexer.KW_STR:
		name = "str"
		p.advance()
	case lexer.VOID:
		name = "void"
		p.advance()
	case lexer.KW_RESULT:
		name = "Result"
		p.advance()
	case lexer.IDENT:
		name = p.cur.Text
		p.advance()
	default:
		p.errorAt(p.cur.Location, "expected type annotation, got %s", p.cur.Kind)
		p.synchronize()
		return &ast.TypeAnn{Name: "unknown"}
	}
	ann := &ast.TypeAnn{Name: name}
	if name == "Result" && p.match(lexer.LT) {
		ann.OkType = p.parseTypeAnn()
		p.expect(lexer.COMMA, "Result type arguments")
		ann.ErrType = p.parseTypeAnn()
		p.expect(lexer.GT, "Result type arguments")
	}
	if p.match(lexer.LBRACKET) {
		p.expect(lexer.RBRACKET, "array type")
		ann.IsArray = true
	}
	return ann
}

// ---- Statements ----

func (p *Parser) parseBlock() *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.LBRACE, "block")
	var stmts []*ast.Stmt
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		s := p.ParseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(lexer.RBRACE, "block")
	return &ast.Stmt{Kind: ast.StmtBlock, ID: p.nextID(), Loc: loc, Stmts: stmts}
}

// ParseStatement parses one statement.
func (p *Parser) ParseStatement() *ast.Stmt {
	switch p.cur.Kind {
	case lexer.LET:
		return p.parseLet(true)
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.BREAK:
		loc := p.cur.Location
		p.advance()
		p.expect(lexer.SEMI, "break statement")
		return &ast.Stmt{Kind: ast.StmtBreak, ID: p.nextID(), Loc: loc}
	case lexer.CONTINUE:
		loc := p.cur.Location
		p.advance()
		p.expect(lexer.SEMI, "continue statement")
		return &ast.Stmt{Kind: ast.StmtContinue, ID: p.nextID(), Loc: loc}
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.MATCH:
		// A match used in statement position is never assignment-shaped and
		// never requires a trailing ';'.
		loc := p.cur.Location
		expr := p.ParseExpression()
		if p.check(lexer.SEMI) {
			p.advance()
		}
		return &ast.Stmt{Kind: ast.StmtExpr, ID: p.nextID(), Loc: loc, Expr: expr}
	default:
		return p.parseExprOrAssignStatement(true)
	}
}

func (p *Parser) parseLet(consumeSemi bool) *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.LET, "let statement")
	name := p.expect(lexer.IDENT, "let statement")
	var typeAnn *ast.TypeAnn
	if p.match(lexer.COLON) {
		typeAnn = p.parseTypeAnn()
	}
	var init *ast.Expr
	if p.match(lexer.EQ) {
		init = p.ParseExpression()
	}
	if consumeSemi {
		p.expect(lexer.SEMI, "let statement")
	}
	return &ast.Stmt{Kind: ast.StmtLet, ID: p.nextID(), Loc: loc, Name: name.Text, TypeAnn: typeAnn, Init: init}
}

func (p *Parser) parseIf() *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.IF, "if statement")
	cond := p.ParseExpression()
	then := p.parseBlock()
	var elseStmt *ast.Stmt
	if p.match(lexer.ELSE) {
		if p.check(lexer.IF) {
			elseStmt = p.parseIf()
		} else {
			elseStmt = p.parseBlock()
		}
	}
	return &ast.Stmt{Kind: ast.StmtIf, ID: p.nextID(), Loc: loc, Expr: cond, Then: then, Else: elseStmt}
}

func (p *Parser) parseWhile() *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.WHILE, "while statement")
	cond := p.ParseExpression()
	body := p.parseBlock()
	return &ast.Stmt{Kind: ast.StmtWhile, ID: p.nextID(), Loc: loc, Expr: cond, Body: body}
}

func (p *Parser) parseFor() *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.FOR, "for statement")
	p.expect(lexer.LPAREN, "for statement")

	var init *ast.Stmt
	if !p.check(lexer.SEMI) {
		init = p.parseForClauseStatement()
	}
	p.expect(lexer.SEMI, "for statement")

	var cond *ast.Expr
	if !p.check(lexer.SEMI) {
		cond = p.ParseExpression()
	}
	p.expect(lexer.SEMI, "for statement")

	var update *ast.Stmt
	if !p.check(lexer.RPAREN) {
		update = p.parseForClauseStatement()
	}
	p.expect(lexer.RPAREN, "for statement")

	body := p.parseBlock()
	return &ast.Stmt{Kind: ast.StmtFor, ID: p.nextID(), Loc: loc, ForInit: init, Expr: cond, ForUpdate: update, Body: body}
}

// parseForClauseStatement parses a let-declaration or an expression/
// assignment statement without consuming a trailing ';' — the caller
// (parseFor) owns the separators between the three for-clauses.
func (p *Parser) parseForClauseStatement() *ast.Stmt {
	if p.check(lexer.LET) {
		return p.parseLet(false)
	}
	return p.parseExprOrAssignStatement(false)
}

func (p *Parser) parseReturn() *ast.Stmt {
	loc := p.cur.Location
	p.expect(lexer.RETURN, "return statement")
	var val *ast.Expr
	if !p.check(lexer.SEMI) {
		val = p.ParseExpression()
	}
	p.expect(lexer.SEMI, "return statement")
	return &ast.Stmt{Kind: ast.StmtReturn, ID: p.nextID(), Loc: loc, Expr: val}
}

// parseExprOrAssignStatement parses an expression-statement, promoting it to
// an assignment if a top-level '=' follows. Assignment is handled here, at
// statement level, not inside the expression precedence stack — so
// `x = y = z;` is rejected: the right-hand `y` is parsed as an expression
// (which never consumes '='), leaving the second '=' to fail expect(SEMI).
func (p *Parser) parseExprOrAssignStatement(consumeSemi bool) *ast.Stmt {
	loc := p.cur.Location
	expr := p.ParseExpression()
	if p.match(lexer.EQ) {
		value := p.ParseExpression()
		if consumeSemi {
			p.expect(lexer.SEMI, "assignment statement")
		}
		return &ast.Stmt{Kind: ast.StmtAssign, ID: p.nextID(), Loc: loc, Target: expr, Value: value}
	}
	if consumeSemi {
		p.expect(lexer.SEMI, "expression statement")
	}
	return &ast.Stmt{Kind: ast.StmtExpr, ID: p.nextID(), Loc: loc, Expr: expr}
}

// ---- Expressions ----

// ParseExpression parses a full expression at the lowest (logical-or)
// precedence level.
func (p *Parser) ParseExpression() *ast.Expr {
	return p.parseLogicalOr()
}

func (p *Parser) parseLogicalOr() *ast.Expr {
	left := p.parseLogicalAnd()
	for p.check(lexer.OR_OR) {
		loc := p.cur.Location
		p.advance()
		right := p.parseLogicalAnd()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: ast.OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseLogicalAnd() *ast.Expr {
	left := p.parseEquality()
	for p.check(lexer.AND_AND) {
		loc := p.cur.Location
		p.advance()
		right := p.parseEquality()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: ast.OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseEquality() *ast.Expr {
	left := p.parseComparison()
	for p.check(lexer.EQ_EQ) || p.check(lexer.NOT_EQ) {
		op, loc := ast.OpEq, p.cur.Location
		if p.cur.Kind == lexer.NOT_EQ {
			op = ast.OpNe
		}
		p.advance()
		right := p.parseComparison()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() *ast.Expr {
	left := p.parseAdditive()
	for p.check(lexer.LT) || p.check(lexer.LE) || p.check(lexer.GT) || p.check(lexer.GE) {
		var op ast.BinaryOp
		switch p.cur.Kind {
		case lexer.LT:
			op = ast.OpLt
		case lexer.LE:
			op = ast.OpLe
		case lexer.GT:
			op = ast.OpGt
		case lexer.GE:
			op = ast.OpGe
		}
		loc := p.cur.Location
		p.advance()
		right := p.parseAdditive()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() *ast.Expr {
	left := p.parseMultiplicative()
	for p.check(lexer.PLUS) || p.check(lexer.MINUS) {
		op := ast.OpAdd
		if p.cur.Kind == lexer.MINUS {
			op = ast.OpSub
		}
		loc := p.cur.Location
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Expr {
	left := p.parseUnary()
	for p.check(lexer.STAR) || p.check(lexer.SLASH) || p.check(lexer.PERCENT) {
		var op ast.BinaryOp
		switch p.cur.Kind {
		case lexer.STAR:
			op = ast.OpMul
		case lexer.SLASH:
			op = ast.OpDiv
		case lexer.PERCENT:
			op = ast.OpMod
		}
		loc := p.cur.Location
		p.advance()
		right := p.parseUnary()
		left = &ast.Expr{Kind: ast.ExprBinary, ID: p.nextID(), Loc: loc, BinOp: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() *ast.Expr {
	switch p.cur.Kind {
	case lexer.MINUS:
		loc := p.cur.Location
		p.advance()
		operand := p.parseUnary()
		return &ast.Expr{Kind: ast.ExprUnary, ID: p.nextID(), Loc: loc, UnOp: ast.OpNeg, Operand: operand}
	case lexer.BANG:
		loc := p.cur.Location
		p.advance()
		operand := p.parseUnary()
		return &ast.Expr{Kind: ast.ExprUnary, ID: p.nextID(), Loc: loc, UnOp: ast.OpNot, Operand: operand}
	default:
		return p.parseSend()
	}
}

func (p *Parser) parseSend() *ast.Expr {
	left := p.parseCallChain()
	for p.check(lexer.SEND_SYNC) || p.check(lexer.SEND_ASYNC) {
		async := p.cur.Kind == lexer.SEND_ASYNC
		loc := p.cur.Location
		p.advance()
		payload := p.parseCallChain()
		left = &ast.Expr{Kind: ast.ExprSend, ID: p.nextID(), Loc: loc, Target: left, Payload: payload, Async: async}
	}
	return left
}

func (p *Parser) parseCallChain() *ast.Expr {
	expr := p.parsePrimary()
	for {
		switch {
		case p.check(lexer.LPAREN):
			loc := p.cur.Location
			args := p.parseArgList()
			expr = &ast.Expr{Kind: ast.ExprCall, ID: p.nextID(), Loc: loc, Callee: expr, Args: args}
		case p.match(lexer.DOT):
			loc := p.prev.Location
			name := p.expect(lexer.IDENT, "field or method name")
			if p.check(lexer.LPAREN) {
				args := p.parseArgList()
				expr = &ast.Expr{Kind: ast.ExprMethodCall, ID: p.nextID(), Loc: loc, Object: expr, Name: name.Text, Args: args}
			} else {
				expr = &ast.Expr{Kind: ast.ExprField, ID: p.nextID(), Loc: loc, Object: expr, Name: name.Text}
			}
		case p.match(lexer.LBRACKET):
			loc := p.prev.Location
			idx := p.ParseExpression()
			p.expect(lexer.RBRACKET, "index expression")
			expr = &ast.Expr{Kind: ast.ExprIndex, ID: p.nextID(), Loc: loc, Object: expr, Index: idx}
		case p.match(lexer.COLON_COLON):
			loc := p.prev.Location
			right := p.expect(lexer.IDENT, "qualified name")
			if expr.Kind != ast.ExprIdent {
				p.errorAt(loc, "'::' requires a module identifier on the left")
			} else {
				expr = &ast.Expr{Kind: ast.ExprIdent, ID: p.nextID(), Loc: expr.Loc, Name: expr.Name + "::" + right.Text}
			}
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgList() []*ast.Expr {
	p.expect(lexer.LPAREN, "argument list")
	var args []*ast.Expr
	if !p.check(lexer.RPAREN) {
		for {
			args = append(args, p.ParseExpression())
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}
	p.expect(lexer.RPAREN, "argument list")
	return args
}

func (p *Parser) parsePrimary() *ast.Expr {
	loc := p.cur.Location
	switch p.cur.Kind {
	case lexer.INT:
		v := p.cur.IntValue
		p.advance()
		return &ast.Expr{Kind: ast.ExprInt, ID: p.nextID(), Loc: loc, Int: v}
	case lexer.FLOAT:
		v := p.cur.FloatValue
		p.advance()
		return &ast.Expr{Kind: ast.ExprFloat, ID: p.nextID(), Loc: loc, Float: v}
	case lexer.STRING:
		v := p.cur.Text
		p.advance()
		return &ast.Expr{Kind: ast.ExprString, ID: p.nextID(), Loc: loc, Str: v}
	case lexer.TRUE:
		p.advance()
		return &ast.Expr{Kind: ast.ExprBool, ID: p.nextID(), Loc: loc, Bool: true}
	case lexer.FALSE:
		p.advance()
		return &ast.Expr{Kind: ast.ExprBool, ID: p.nextID(), Loc: loc, Bool: false}
	case lexer.NULL:
		p.advance()
		return &ast.Expr{Kind: ast.ExprNull, ID: p.nextID(), Loc: loc}
	case lexer.IDENT:
		name := p.cur.Text
		p.advance()
		return &ast.Expr{Kind: ast.ExprIdent, ID: p.nextID(), Loc: loc, Name: name}
	case lexer.LPAREN:
		p.advance()
		inner := p.ParseExpression()
		p.expect(lexer.RPAREN, "parenthesized expression")
		return inner
	case lexer.LBRACKET:
		p.advance()
		var elems []*ast.Expr
		if !p.check(lexer.RBRACKET) {
			for {
				elems = append(elems, p.ParseExpression())
				if !p.match(lexer.COMMA) {
					break
				}
			}
		}
		p.expect(lexer.RBRACKET, "array literal")
		return &ast.Expr{Kind: ast.ExprArray, ID: p.nextID(), Loc: loc, Elements: elems}
	case lexer.SPAWN:
		return p.parseSpawn()
	case lexer.AWAIT:
		p.advance()
		operand := p.parseUnary()
		return &ast.Expr{Kind: ast.ExprAwait, ID: p.nextID(), Loc: loc, Operand: operand}
	case lexer.OK:
		p.advance()
		p.expect(lexer.LPAREN, "Ok(...)")
		operand := p.ParseExpression()
		p.expect(lexer.RPAREN, "Ok(...)")
		return &ast.Expr{Kind: ast.ExprOk, ID: p.nextID(), Loc: loc, Operand: operand}
	case lexer.ERR:
		p.advance()
		p.expect(lexer.LPAREN, "Err(...)")
		operand := p.ParseExpression()
		p.expect(lexer.RPAREN, "Err(...)")
		return &ast.Expr{Kind: ast.ExprErr, ID: p.nextID(), Loc: loc, Operand: operand}
	case lexer.MATCH:
		return p.parseMatch()
	default:
		p.errorAt(loc, "unexpected token %s in expression", p.cur.Kind)
		p.synchronize()
		return &ast.Expr{Kind: ast.ExprNull, ID: p.nextID(), Loc: loc}
	}
}

// parseSpawn parses `spawn [async] AgentName [supervised by { ... }]`, where
// `async` may appear either before or after the name, but not both.
func (p *Parser) parseSpawn() *ast.Expr {
	loc := p.cur.Location
	p.expect(lexer.SPAWN, "spawn expression")
	async := false
	if p.check(lexer.ASYNC) {
		async = true
		p.advance()
	}
	name := p.expect(lexer.IDENT, "agent name")
	if !async && p.check(lexer.ASYNC) {
		async = true
		p.advance()
	}
	var sup *ast.Supervision
	if p.check(lexer.SUPERVISED) {
		p.advance()
		p.expect(lexer.BY, "supervised by")
		p.expect(lexer.LBRACE, "supervised by")
		sup = p.parseSupervisionConfig()
		p.expect(lexer.RBRACE, "supervised by")
	}
	return &ast.Expr{Kind: ast.ExprSpawn, ID: p.nextID(), Loc: loc, Name: name.Text, Async: async, Supervision: sup}
}

// parseSupervisionConfig does not enforce that each key appears at most
// once: a duplicate key simply overwrites the previous value, taking the
// last occurrence (see DESIGN.md).
func (p *Parser) parseSupervisionConfig() *ast.Supervision {
	sup := &ast.Supervision{MaxRestarts: 3, WindowMS: 60000}
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		key := p.expect(lexer.IDENT, "supervision key")
		p.expect(lexer.COLON, "supervision key")
		switch key.Text {
		case "strategy":
			val := p.expect(lexer.IDENT, "strategy value")
			sup.Strategy = val.Text
		case "max_restarts":
			val := p.expect(lexer.INT, "max_restarts value")
			sup.MaxRestarts = int(val.IntValue)
		case "window":
			val := p.expect(lexer.INT, "window value")
			sup.WindowMS = int(val.IntValue)
		default:
			p.errorAt(key.Location, "unknown supervision key %q", key.Text)
			p.synchronize()
		}
		if !p.match(lexer.COMMA) {
			break
		}
	}
	return sup
}

// parseMatch parses `match scrutinee { Ok(x) => expr, Err(e) => expr }`.
// Arms are comma-separated with an optional trailing comma.
func (p *Parser) parseMatch() *ast.Expr {
	loc := p.cur.Location
	p.expect(lexer.MATCH, "match expression")
	scrutinee := p.ParseExpression()
	p.expect(lexer.LBRACE, "match body")

	var arms []ast.MatchArm
	for !p.check(lexer.RBRACE) && !p.check(lexer.EOF) {
		arm, ok := p.parseMatchArm()
		if ok {
			arms = append(arms, arm)
		}
		if !p.match(lexer.COMMA) {
			break
		}
	}
	p.expect(lexer.RBRACE, "match body")
	return &ast.Expr{Kind: ast.ExprMatch, ID: p.nextID(), Loc: loc, Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parseMatchArm() (ast.MatchArm, bool) {
	var isOk bool
	switch p.cur.Kind {
	case lexer.OK:
		isOk = true
		p.advance()
	case lexer.ERR:
		isOk = false
		p.advance()
	default:
		p.errorAt(p.cur.Location, "expected Ok or Err match arm, got %s", p.cur.Kind)
		p.synchronize()
		return ast.MatchArm{}, false
	}
	p.expect(lexer.LPAREN, "match arm binding")
	binding := p.expect(lexer.IDENT, "match arm binding")
	p.expect(lexer.RPAREN, "match arm binding")
	p.expect(lexer.FAT_ARROW, "match arm body")
	body := p.ParseExpression()
	return ast.MatchArm{IsOk: isOk, BindingName: binding.Text, Body: body}, true
}
