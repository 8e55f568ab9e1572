package sema

import (
	"strings"

	"github.com/vega-lang/vegac/internal/ast"
)

var validStrategies = map[string]bool{
	"restart":     true,
	"stop":        true,
	"escalate":    true,
	"restart_all": true,
}

func (a *Analyzer) typeCheckProgram(program *ast.Program) {
	for _, agent := range program.Agents {
		a.typeCheckAgent(agent)
	}
	for _, fn := range program.Funcs {
		a.typeCheckFunctionBody(fn)
	}
}

// typeCheckAgent fills in a default model when the declaration omitted one,
// since every agent must carry a non-null model string once analysis
// succeeds, validates the temperature range, and type-checks each tool
// body in its own parameter scope.
func (a *Analyzer) typeCheckAgent(agent *ast.Decl) {
	if agent.Model == nil {
		def := "default"
		agent.Model = &def
	}
	if agent.Temperature < 0.0 || agent.Temperature > 1.0 {
		a.report(agent.Loc, "agent '%s' temperature must be within [0.0, 1.0], got %v", agent.Name, agent.Temperature)
	}
	for _, tool := range agent.Tools {
		a.typeCheckFunctionBody(tool)
	}
}

func (a *Analyzer) typeCheckFunctionBody(fn *ast.Decl) {
	a.pushScope()
	for _, p := range fn.Params {
		if !a.current.Define(&Symbol{Name: p.Name, Kind: SymParameter, Type: typeFromAnn(&p.Type), DefinedAt: fn.Loc}) {
			a.report(fn.Loc, "duplicate parameter '%s' in '%s'", p.Name, fn.Name)
		}
	}
	retType := declReturnType(fn)
	if fn.Body != nil {
		a.checkBlockStmts(fn.Body, retType)
	}
	a.popScope()
}

func (a *Analyzer) checkBlockStmts(block *ast.Stmt, retType Type) {
	a.pushScope()
	for _, s := range block.Stmts {
		a.checkStmt(s, retType)
	}
	a.popScope()
}

func (a *Analyzer) checkStmt(s *ast.Stmt, retType Type) {
	switch s.Kind {
	case ast.StmtExpr:
		a.typeOfExpr(s.Expr)

	case ast.StmtLet:
		var initType = Unknown()
		if s.Init != nil {
			initType = a.typeOfExpr(s.Init)
		}
		final := initType
		if s.TypeAnn != nil {
			declared := typeFromAnn(s.TypeAnn)
			if s.Init != nil && !Equal(declared, initType) {
				a.report(s.Loc, "cannot initialize 'let %s: %s' with %s", s.Name, declared, initType)
			}
			final = declared
		}
		if !a.current.Define(&Symbol{Name: s.Name, Kind: SymVariable, Type: final, DefinedAt: s.Loc}) {
			a.report(s.Loc, "'%s' is already defined in this scope", s.Name)
		}

	case ast.StmtAssign:
		targetType := a.typeOfExpr(s.Target)
		valueType := a.typeOfExpr(s.Value)
		if !Equal(targetType, valueType) {
			a.report(s.Loc, "cannot assign %s to %s", valueType, targetType)
		}

	case ast.StmtIf:
		condType := a.typeOfExpr(s.Expr)
		if !Equal(condType, Bool()) {
			a.report(s.Expr.Loc, "if condition must be bool, got %s", condType)
		}
		a.checkStmt(s.Then, retType)
		if s.Else != nil {
			a.checkStmt(s.Else, retType)
		}

	case ast.StmtWhile:
		condType := a.typeOfExpr(s.Expr)
		if !Equal(condType, Bool()) {
			a.report(s.Expr.Loc, "while condition must be bool, got %s", condType)
		}
		a.loopDepth++
		a.checkStmt(s.Body, retType)
		a.loopDepth--

	case ast.StmtFor:
		a.pushScope()
		if s.ForInit != nil {
			a.checkStmt(s.ForInit, retType)
		}
		if s.Expr != nil {
			condType := a.typeOfExpr(s.Expr)
			if !Equal(condType, Bool()) {
				a.report(s.Expr.Loc, "for condition must be bool, got %s", condType)
			}
		}
		if s.ForUpdate != nil {
			a.checkStmt(s.ForUpdate, retType)
		}
		a.loopDepth++
		a.checkStmt(s.Body, retType)
		a.loopDepth--
		a.popScope()

	case ast.StmtReturn:
		actual := Void()
		if s.Expr != nil {
			actual = a.typeOfExpr(s.Expr)
		}
		if !Equal(actual, retType) {
			a.report(s.Loc, "return type mismatch: function returns %s, got %s", retType, actual)
		}

	case ast.StmtBreak:
		if a.loopDepth == 0 {
			a.report(s.Loc, "'break' outside a loop")
		}

	case ast.StmtContinue:
		if a.loopDepth == 0 {
			a.report(s.Loc, "'continue' outside a loop")
		}

	case ast.StmtBlock:
		a.checkBlockStmts(s, retType)
	}
}

// typeOfExpr computes e's type, records it in the side table keyed by
// e.ID, and reports any typing error found along the way. It always
// returns a usable Type (Unknown on error) so callers can keep walking.
func (a *Analyzer) typeOfExpr(e *ast.Expr) Type {
	result := a.computeType(e)
	a.typeOf[e.ID] = result
	return result
}

func (a *Analyzer) computeType(e *ast.Expr) Type {
	switch e.Kind {
	case ast.ExprInt:
		return Int()
	case ast.ExprFloat:
		return Float()
	case ast.ExprString:
		return Str()
	case ast.ExprBool:
		return Bool()
	case ast.ExprNull:
		return Unknown()

	case ast.ExprArray:
		elem := Unknown()
		for i, el := range e.Elements {
			t := a.typeOfExpr(el)
			if i == 0 {
				elem = t
			} else if !Equal(elem, t) {
				a.report(el.Loc, "array elements must share one type, got %s and %s", elem, t)
			}
		}
		return Array(elem)

	case ast.ExprIdent:
		sym, ok := a.current.Resolve(e.Name)
		if !ok {
			a.undefinedNameError(e.Loc, "name", e.Name)
			return Unknown()
		}
		return sym.Type

	case ast.ExprBinary:
		return a.typeOfBinary(e)

	case ast.ExprUnary:
		operand := a.typeOfExpr(e.Operand)
		switch e.UnOp {
		case ast.OpNeg:
			if !operand.IsNumeric() && operand.Kind != KindUnknown {
				a.report(e.Loc, "unary '-' requires a numeric operand, got %s", operand)
			}
			return operand
		default: // OpNot
			if operand.Kind != KindBool && operand.Kind != KindUnknown {
				a.report(e.Loc, "unary '!' requires a bool operand, got %s", operand)
			}
			return Bool()
		}

	case ast.ExprCall:
		return a.typeOfCall(e)

	case ast.ExprMethodCall:
		objType := a.typeOfExpr(e.Object)
		for _, arg := range e.Args {
			a.typeOfExpr(arg)
		}
		if objType.Kind != KindAgent && objType.Kind != KindUnknown {
			a.report(e.Loc, "method call target must be an agent, got %s", objType)
		}
		return Unknown()

	case ast.ExprField:
		a.typeOfExpr(e.Object)
		return Unknown()

	case ast.ExprIndex:
		objType := a.typeOfExpr(e.Object)
		a.typeOfExpr(e.Index)
		if objType.Kind == KindArray {
			if objType.Elem != nil {
				return *objType.Elem
			}
			return Unknown()
		}
		if objType.Kind != KindUnknown {
			a.report(e.Loc, "cannot index %s", objType)
		}
		return Unknown()

	case ast.ExprSpawn:
		sym, ok := a.global.Resolve(e.Name)
		if !ok {
			a.report(e.Loc, "Undefined agent '%s'", e.Name)
			return Agent("")
		}
		if sym.Kind != SymAgent {
			a.report(e.Loc, "'%s' is not an agent", e.Name)
			return Agent("")
		}
		if e.Supervision != nil && !validStrategies[e.Supervision.Strategy] {
			a.report(e.Loc, "unknown supervision strategy '%s'", e.Supervision.Strategy)
		}
		return Agent(e.Name)

	case ast.ExprSend:
		targetType := a.typeOfExpr(e.Target)
		a.typeOfExpr(e.Payload)
		if targetType.Kind != KindAgent && targetType.Kind != KindUnknown {
			a.report(e.Loc, "message send target must be an agent, got %s", targetType)
		}
		if e.Async {
			return Future()
		}
		return Str()

	case ast.ExprAwait:
		operandType := a.typeOfExpr(e.Operand)
		if operandType.Kind != KindFuture && operandType.Kind != KindStr && operandType.Kind != KindUnknown {
			a.report(e.Loc, "'await' requires a future or a str, got %s", operandType)
		}
		return Str()

	case ast.ExprOk, ast.ExprErr:
		if e.Operand != nil {
			a.typeOfExpr(e.Operand)
		}
		return Result()

	case ast.ExprMatch:
		scrutType := a.typeOfExpr(e.Scrutinee)
		if scrutType.Kind != KindResult && scrutType.Kind != KindUnknown {
			a.report(e.Loc, "match requires a Result scrutinee, got %s", scrutType)
		}
		armType := Unknown()
		for i, arm := range e.Arms {
			a.pushScope()
			a.current.Define(&Symbol{Name: arm.BindingName, Kind: SymVariable, Type: Unknown(), DefinedAt: arm.Body.Loc})
			t := a.typeOfExpr(arm.Body)
			a.popScope()
			if i == 0 {
				armType = t
			} else if !Equal(armType, t) {
				a.report(arm.Body.Loc, "match arms must share one type, got %s and %s", armType, t)
			}
		}
		return armType

	default:
		return Unknown()
	}
}

func (a *Analyzer) typeOfBinary(e *ast.Expr) Type {
	left := a.typeOfExpr(e.Left)
	right := a.typeOfExpr(e.Right)
	unknown := left.Kind == KindUnknown || right.Kind == KindUnknown

	switch e.BinOp {
	case ast.OpAdd:
		if left.Kind == KindStr || right.Kind == KindStr {
			return Str()
		}
		if left.Kind == KindArray && right.Kind == KindArray {
			elem := left.Elem
			if elem == nil {
				elem = right.Elem
			}
			return Type{Kind: KindArray, Elem: elem}
		}
		if left.IsNumeric() && right.IsNumeric() {
			return Widen(left, right)
		}
		if unknown {
			return Unknown()
		}
		a.report(e.Loc, "operator '+' not defined for %s and %s", left, right)
		return Unknown()

	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		if left.IsNumeric() && right.IsNumeric() {
			return Widen(left, right)
		}
		if unknown {
			return Unknown()
		}
		a.report(e.Loc, "arithmetic operator not defined for %s and %s", left, right)
		return Unknown()

	case ast.OpEq, ast.OpNe:
		if !unknown && !Equal(left, right) {
			a.report(e.Loc, "cannot compare %s and %s", left, right)
		}
		return Bool()

	case ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		if !unknown && !(left.IsNumeric() && right.IsNumeric()) {
			a.report(e.Loc, "comparison requires numeric operands, got %s and %s", left, right)
		}
		return Bool()

	default: // OpAnd, OpOr
		if left.Kind != KindBool && left.Kind != KindUnknown {
			a.report(e.Left.Loc, "logical operator requires bool, got %s", left)
		}
		if right.Kind != KindBool && right.Kind != KindUnknown {
			a.report(e.Right.Loc, "logical operator requires bool, got %s", right)
		}
		return Bool()
	}
}

// typeOfCall resolves a call's callee: "print" is the builtin sink,
// names containing "::" are module-qualified stdlib calls typed by a
// substring match over their name, and everything else must resolve to a
// function symbol in scope with matching arity.
func (a *Analyzer) typeOfCall(e *ast.Expr) Type {
	callee := e.Callee
	if callee.Kind != ast.ExprIdent {
		a.typeOfExpr(callee)
		for _, arg := range e.Args {
			a.typeOfExpr(arg)
		}
		return Unknown()
	}

	name := callee.Name
	if name == "print" {
		for _, arg := range e.Args {
			a.typeOfExpr(arg)
		}
		return Void()
	}
	if strings.Contains(name, "::") {
		for _, arg := range e.Args {
			a.typeOfExpr(arg)
		}
		return stdlibReturnType(name)
	}

	sym, ok := a.current.Resolve(name)
	if !ok || (sym.Kind != SymFunction && sym.Kind != SymTool) {
		a.undefinedNameError(callee.Loc, "function", name)
		for _, arg := range e.Args {
			a.typeOfExpr(arg)
		}
		return Unknown()
	}
	if len(sym.ParamTypes) != len(e.Args) {
		a.report(e.Loc, "'%s' expects %d argument(s), got %d", name, len(sym.ParamTypes), len(e.Args))
	}
	for i, arg := range e.Args {
		argType := a.typeOfExpr(arg)
		if i < len(sym.ParamTypes) && !Equal(sym.ParamTypes[i], argType) {
			a.report(arg.Loc, "argument %d to '%s': expected %s, got %s", i+1, name, sym.ParamTypes[i], argType)
		}
	}
	if sym.ReturnType != nil {
		return *sym.ReturnType
	}
	return Void()
}

// modulePrefixReturnType overrides stdlibReturnType's substring match for
// modules whose every call returns the same type regardless of which
// function is named, e.g. every "http::" call returns str.
var modulePrefixReturnType = map[string]Type{
	"http": Str(),
}

// stdlibReturnType types a "module::function" call first by a lookup table
// on the module prefix, then by a substring match on the function
// component, since stdlib signatures aren't registered as ordinary function
// symbols.
func stdlibReturnType(name string) Type {
	module, fn, found := strings.Cut(name, "::")
	if !found {
		fn = name
	}
	if t, ok := modulePrefixReturnType[module]; ok {
		return t
	}
	switch {
	case module == "json" && strings.Contains(fn, "get_int"):
		return Int()
	case strings.Contains(fn, "split"):
		return Array(Str())
	case strings.Contains(fn, "parse_float"):
		return Float()
	case strings.Contains(fn, "parse_int"):
		return Int()
	case strings.Contains(fn, "len"):
		return Int()
	case strings.Contains(fn, "is_"):
		return Bool()
	case strings.Contains(fn, "str"):
		return Str()
	default:
		return Unknown()
	}
}
