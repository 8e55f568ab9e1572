package bytecode

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/vega-lang/vegac/internal/ast"
	"github.com/vega-lang/vegac/internal/diagnostic"
	"github.com/vega-lang/vegac/internal/invariant"
)

// FuncRecord describes one emitted function or tool in the function table.
type FuncRecord struct {
	NameIdx    uint32
	ParamCount uint16
	LocalCount uint16
	CodeOffset uint32
	CodeLength uint32
}

// AgentRecord describes one emitted agent in the agent table.
type AgentRecord struct {
	NameIdx         uint32
	ModelIdx        uint32
	SystemIdx       uint32
	ToolCount       uint16
	TemperatureX100 uint16
}

type loopCtx struct {
	condStart int
	breaks    []int
}

// Emitter lowers a sequence of analyzed programs into one accumulated
// code buffer, constant pool, and function/agent table. Generate is
// callable repeatedly — once per imported module and finally the entry
// program — accumulating into a single artifact, matching the order an
// analyzer resolves modules.
type Emitter struct {
	pool  *Pool
	code  []byte
	funcs []FuncRecord
	agent []AgentRecord

	locals          []string
	loops           []*loopCtx
	lastOpWasReturn bool

	errors *diagnostic.Bag
}

// NewEmitter returns an Emitter with an empty pool, code buffer, and
// tables.
func NewEmitter() *Emitter {
	return &Emitter{
		pool:   NewPool(),
		errors: diagnostic.NewBag(diagnostic.StageEmitter),
	}
}

// HadError reports whether any emission error was recorded.
func (e *Emitter) HadError() bool { return e.errors.HadError() }

// ErrorMessage returns the first emission error's message, or "".
func (e *Emitter) ErrorMessage() string { return e.errors.Message() }

// ErrorLocation returns the first emission error's location.
func (e *Emitter) ErrorLocation() diagnostic.Location { return e.errors.Location() }

// Pool returns the emitter's constant pool.
func (e *Emitter) Pool() *Pool { return e.pool }

// Code returns the accumulated code section.
func (e *Emitter) Code() []byte { return e.code }

// Funcs returns the function table built so far.
func (e *Emitter) Funcs() []FuncRecord { return e.funcs }

// Agents returns the agent table built so far.
func (e *Emitter) Agents() []AgentRecord { return e.agent }

// Cleanup drops the emitter's buffers so a second, unrelated compilation
// starts from an empty artifact.
func (e *Emitter) Cleanup() {
	e.pool = NewPool()
	e.code = nil
	e.funcs = nil
	e.agent = nil
	e.locals = nil
	e.loops = nil
	e.lastOpWasReturn = false
	e.errors.Reset()
}

// Generate emits every agent and function declaration in program into the
// accumulated artifact. Import declarations carry no bytecode of their
// own — only the declarations they pulled in matter, and those arrive as
// their own Generate call over the imported module's program. Generate
// returns false (recording a diagnostic) if lowering hits a structural
// error such as break/continue outside any loop.
func (e *Emitter) Generate(program *ast.Program) bool {
	for _, agent := range program.Agents {
		e.emitAgent(agent)
		if e.HadError() {
			return false
		}
	}
	for _, fn := range program.Funcs {
		e.emitFunction(fn.Name, fn.Params, fn.Body)
		if e.HadError() {
			return false
		}
	}
	return !e.HadError()
}

func (e *Emitter) emitAgent(agent *ast.Decl) {
	for _, tool := range agent.Tools {
		mangled := agent.Name + "$" + tool.Name
		e.emitFunction(mangled, tool.Params, tool.Body)
		if len(tool.Params) > 0 {
			e.internToolParamDescriptor(mangled, tool.Params)
		}
	}
	nameIdx := e.pool.AddString(agent.Name)
	modelIdx := e.pool.AddString(derefOr(agent.Model, "default"))
	systemIdx := e.pool.AddString(derefOr(agent.System, ""))
	e.agent = append(e.agent, AgentRecord{
		NameIdx:         nameIdx,
		ModelIdx:        modelIdx,
		SystemIdx:       systemIdx,
		ToolCount:       uint16(len(agent.Tools)),
		TemperatureX100: uint16(math.Round(agent.Temperature * 100)),
	})
}

func (e *Emitter) internToolParamDescriptor(mangledName string, params []ast.Param) {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name + ":" + p.Type.Name
	}
	e.pool.AddString(mangledName + "$params")
	e.pool.AddString(strings.Join(parts, ","))
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func (e *Emitter) emitFunction(name string, params []ast.Param, body *ast.Stmt) {
	e.locals = nil
	for _, p := range params {
		e.findOrAddLocal(p.Name)
	}
	e.lastOpWasReturn = false
	start := len(e.code)
	if body != nil {
		e.emitBlock(body)
	}
	if !e.lastOpWasReturn {
		e.emitOp(OpPushNull)
		e.emitOp(OpReturn)
	}
	length := len(e.code) - start
	nameIdx := e.pool.AddString(name)
	e.funcs = append(e.funcs, FuncRecord{
		NameIdx:    nameIdx,
		ParamCount: uint16(len(params)),
		LocalCount: uint16(len(e.locals)),
		CodeOffset: uint32(start),
		CodeLength: uint32(length),
	})
}

func (e *Emitter) findOrAddLocal(name string) int {
	for i, n := range e.locals {
		if n == name {
			return i
		}
	}
	e.locals = append(e.locals, name)
	return len(e.locals) - 1
}

func (e *Emitter) findLocal(name string) (int, bool) {
	for i, n := range e.locals {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// --- low-level byte emission ---

func (e *Emitter) emitByte(b byte) { e.code = append(e.code, b) }

func (e *Emitter) emitOp(op Op) {
	e.code = append(e.code, byte(op))
	e.lastOpWasReturn = op == OpReturn
}

func (e *Emitter) emitU16(v uint16) { e.code = binary.LittleEndian.AppendUint16(e.code, v) }
func (e *Emitter) emitU32(v uint32) { e.code = binary.LittleEndian.AppendUint32(e.code, v) }
func (e *Emitter) emitI32(v int32)  { e.code = binary.LittleEndian.AppendUint32(e.code, uint32(v)) }
func (e *Emitter) emitI16(v int16)  { e.code = binary.LittleEndian.AppendUint16(e.code, uint16(v)) }

// emitJumpPlaceholder emits op followed by a zero 2-byte placeholder and
// returns the placeholder's position for a later patchJump call.
func (e *Emitter) emitJumpPlaceholder(op Op) int {
	e.emitOp(op)
	pos := len(e.code)
	e.emitI16(0)
	return pos
}

// patchJump fills in the placeholder at pos with the signed delta from
// just after the placeholder to the current end of the code buffer.
func (e *Emitter) patchJump(pos int) {
	invariant.Precondition(pos >= 0 && pos+2 <= len(e.code), "patchJump: placeholder at %d out of bounds (code length %d)", pos, len(e.code))
	target := len(e.code)
	delta := int16(target - (pos + 2))
	binary.LittleEndian.PutUint16(e.code[pos:pos+2], uint16(delta))
}

// emitBackJump emits an unconditional or conditional jump whose delta is
// already known: back to target, which must be <= the current position.
func (e *Emitter) emitBackJump(op Op, target int) {
	invariant.Precondition(target >= 0 && target <= len(e.code), "emitBackJump: target %d out of bounds (code length %d)", target, len(e.code))
	e.emitOp(op)
	pos := len(e.code)
	delta := int16(target - (pos + 2))
	e.emitI16(delta)
}

// --- statements ---

func (e *Emitter) emitBlock(block *ast.Stmt) {
	for _, s := range block.Stmts {
		e.emitStmt(s)
		if e.HadError() {
			return
		}
	}
}

func (e *Emitter) emitStmt(s *ast.Stmt) {
	switch s.Kind {
	case ast.StmtExpr:
		e.emitExpr(s.Expr)
		if exprPushesValue(s.Expr) {
			e.emitOp(OpPop)
		}

	case ast.StmtLet:
		if s.Init != nil {
			e.emitExpr(s.Init)
		} else {
			e.emitOp(OpPushNull)
		}
		slot := e.findOrAddLocal(s.Name)
		e.emitOp(OpStoreLocal)
		e.emitByte(byte(slot))

	case ast.StmtAssign:
		e.emitExpr(s.Value)
		if s.Target.Kind == ast.ExprIdent {
			if slot, ok := e.findLocal(s.Target.Name); ok {
				e.emitOp(OpStoreLocal)
				e.emitByte(byte(slot))
				return
			}
			idx := e.pool.AddString(s.Target.Name)
			e.emitOp(OpStoreGlobal)
			e.emitU16(uint16(idx))
			return
		}
		if s.Target.Kind == ast.ExprIndex {
			e.emitExpr(s.Target.Object)
			e.emitExpr(s.Target.Index)
			e.emitOp(OpArraySet)
			return
		}
		e.errors.Report(s.Loc, "unsupported assignment target")

	case ast.StmtIf:
		e.emitExpr(s.Expr)
		thenPatch := e.emitJumpPlaceholder(OpJumpIfNot)
		e.emitStmt(s.Then)
		if s.Else != nil {
			elsePatch := e.emitJumpPlaceholder(OpJump)
			e.patchJump(thenPatch)
			e.emitStmt(s.Else)
			e.patchJump(elsePatch)
		} else {
			e.patchJump(thenPatch)
		}

	case ast.StmtWhile:
		condStart := len(e.code)
		e.emitExpr(s.Expr)
		exitPatch := e.emitJumpPlaceholder(OpJumpIfNot)
		loop := &loopCtx{condStart: condStart}
		e.loops = append(e.loops, loop)
		e.emitStmt(s.Body)
		e.emitBackJump(OpJump, condStart)
		e.patchJump(exitPatch)
		for _, b := range loop.breaks {
			e.patchJump(b)
		}
		e.loops = e.loops[:len(e.loops)-1]

	case ast.StmtFor:
		if s.ForInit != nil {
			e.emitStmt(s.ForInit)
		}
		condStart := len(e.code)
		hasCond := s.Expr != nil
		var exitPatch int
		if hasCond {
			e.emitExpr(s.Expr)
			exitPatch = e.emitJumpPlaceholder(OpJumpIfNot)
		}
		loop := &loopCtx{condStart: condStart}
		e.loops = append(e.loops, loop)
		e.emitStmt(s.Body)
		if s.ForUpdate != nil {
			e.emitStmt(s.ForUpdate)
		}
		e.emitBackJump(OpJump, condStart)
		if hasCond {
			e.patchJump(exitPatch)
		}
		for _, b := range loop.breaks {
			e.patchJump(b)
		}
		e.loops = e.loops[:len(e.loops)-1]

	case ast.StmtReturn:
		if s.Expr != nil {
			e.emitExpr(s.Expr)
		} else {
			e.emitOp(OpPushNull)
		}
		e.emitOp(OpReturn)

	case ast.StmtBreak:
		if len(e.loops) == 0 {
			e.errors.Report(s.Loc, "'break' outside a loop")
			return
		}
		loop := e.loops[len(e.loops)-1]
		loop.breaks = append(loop.breaks, e.emitJumpPlaceholder(OpJump))

	case ast.StmtContinue:
		if len(e.loops) == 0 {
			e.errors.Report(s.Loc, "'continue' outside a loop")
			return
		}
		loop := e.loops[len(e.loops)-1]
		e.emitBackJump(OpJump, loop.condStart)

	case ast.StmtBlock:
		e.emitBlock(s)
	}
}

// exprPushesValue reports whether evaluating e leaves exactly one value
// on the stack. Every expression does except a direct call to "print",
// which is special-cased to net zero (its argument is consumed by PRINT).
func exprPushesValue(e *ast.Expr) bool {
	if e.Kind == ast.ExprCall && e.Callee.Kind == ast.ExprIdent && e.Callee.Name == "print" {
		return false
	}
	return true
}

// --- expressions ---

func (e *Emitter) emitExpr(expr *ast.Expr) {
	switch expr.Kind {
	case ast.ExprInt:
		if expr.Int >= -128 && expr.Int <= 127 {
			e.emitOp(OpPushInt)
			e.emitI32(int32(expr.Int))
		} else {
			idx := e.pool.AddInt(expr.Int)
			e.emitOp(OpPushConst)
			e.emitU16(uint16(idx))
		}

	case ast.ExprFloat:
		idx := e.pool.AddFloat(expr.Float)
		e.emitOp(OpPushConst)
		e.emitU16(uint16(idx))

	case ast.ExprString:
		idx := e.pool.AddString(processEscapes(expr.Str))
		e.emitOp(OpPushConst)
		e.emitU16(uint16(idx))

	case ast.ExprBool:
		if expr.Bool {
			e.emitOp(OpPushTrue)
		} else {
			e.emitOp(OpPushFalse)
		}

	case ast.ExprNull:
		e.emitOp(OpPushNull)

	case ast.ExprArray:
		e.emitOp(OpArrayNew)
		e.emitU16(uint16(len(expr.Elements)))
		for _, el := range expr.Elements {
			e.emitExpr(el)
			e.emitOp(OpArrayPush)
		}

	case ast.ExprIdent:
		if slot, ok := e.findLocal(expr.Name); ok {
			e.emitOp(OpLoadLocal)
			e.emitByte(byte(slot))
		} else {
			idx := e.pool.AddString(expr.Name)
			e.emitOp(OpLoadGlobal)
			e.emitU16(uint16(idx))
		}

	case ast.ExprBinary:
		e.emitExpr(expr.Left)
		e.emitExpr(expr.Right)
		e.emitOp(binaryOpcode(expr.BinOp))

	case ast.ExprUnary:
		e.emitExpr(expr.Operand)
		e.emitOp(unaryOpcode(expr.UnOp))

	case ast.ExprCall:
		e.emitCall(expr)

	case ast.ExprMethodCall:
		e.emitExpr(expr.Object)
		for _, arg := range expr.Args {
			e.emitExpr(arg)
		}
		idx := e.pool.AddString(expr.Name)
		e.emitOp(OpCallMethod)
		e.emitU16(uint16(idx))
		e.emitByte(byte(len(expr.Args)))

	case ast.ExprField:
		e.emitExpr(expr.Object)
		idx := e.pool.AddString(expr.Name)
		e.emitOp(OpGetField)
		e.emitU16(uint16(idx))

	case ast.ExprIndex:
		e.emitExpr(expr.Object)
		e.emitExpr(expr.Index)
		e.emitOp(OpArrayGet)

	case ast.ExprSpawn:
		idx := e.pool.AddString(expr.Name)
		switch {
		case expr.Supervision != nil:
			e.emitOp(OpSpawnSupervised)
			e.emitU16(uint16(idx))
			e.emitByte(strategyByte(expr.Supervision.Strategy))
			e.emitU32(uint32(expr.Supervision.MaxRestarts))
			e.emitU32(uint32(expr.Supervision.WindowMS))
		case expr.Async:
			e.emitOp(OpSpawnAsync)
			e.emitU16(uint16(idx))
		default:
			e.emitOp(OpSpawnAgent)
			e.emitU16(uint16(idx))
		}

	case ast.ExprSend:
		e.emitExpr(expr.Target)
		e.emitExpr(expr.Payload)
		if expr.Async {
			e.emitOp(OpSendAsync)
		} else {
			e.emitOp(OpSendMsg)
		}

	case ast.ExprAwait:
		e.emitExpr(expr.Operand)
		e.emitOp(OpAwait)

	case ast.ExprOk:
		if expr.Operand != nil {
			e.emitExpr(expr.Operand)
		} else {
			e.emitOp(OpPushNull)
		}
		e.emitOp(OpResultOk)

	case ast.ExprErr:
		if expr.Operand != nil {
			e.emitExpr(expr.Operand)
		} else {
			e.emitOp(OpPushNull)
		}
		e.emitOp(OpResultErr)

	case ast.ExprMatch:
		e.emitMatch(expr)
	}
}

// emitCall lowers a call per the three call-site shapes: print (PRINT,
// short-circuits), a "::"-qualified stdlib name (CALL_NATIVE), or an
// ordinary callee expression (CALL). Arguments are always pushed
// left-to-right before the callee is resolved.
func (e *Emitter) emitCall(expr *ast.Expr) {
	callee := expr.Callee
	for _, arg := range expr.Args {
		e.emitExpr(arg)
	}
	if callee.Kind == ast.ExprIdent && callee.Name == "print" {
		e.emitOp(OpPrint)
		return
	}
	if callee.Kind == ast.ExprIdent && strings.Contains(callee.Name, "::") {
		idx := e.pool.AddString(callee.Name)
		e.emitOp(OpCallNative)
		e.emitU16(uint16(idx))
		return
	}
	e.emitExpr(callee)
	e.emitOp(OpCall)
	e.emitByte(byte(len(expr.Args)))
}

// emitMatch lowers a match expression per the Ok/Err branching scheme:
// duplicate and test the scrutinee, unwrap-and-bind in each arm, and join
// past the other arm so both paths leave exactly one value on the stack.
func (e *Emitter) emitMatch(expr *ast.Expr) {
	var okArm, errArm *ast.MatchArm
	for i := range expr.Arms {
		if expr.Arms[i].IsOk && okArm == nil {
			okArm = &expr.Arms[i]
		}
		if !expr.Arms[i].IsOk && errArm == nil {
			errArm = &expr.Arms[i]
		}
	}

	e.emitExpr(expr.Scrutinee)
	e.emitOp(OpDup)
	e.emitOp(OpResultIsOk)
	exitPatch := e.emitJumpPlaceholder(OpJumpIfNot)

	e.emitOp(OpResultUnwrap)
	e.emitMatchArmBody(okArm)
	donePatch := e.emitJumpPlaceholder(OpJump)

	e.patchJump(exitPatch)
	e.emitOp(OpResultUnwrap)
	e.emitMatchArmBody(errArm)

	e.patchJump(donePatch)
}

func (e *Emitter) emitMatchArmBody(arm *ast.MatchArm) {
	if arm == nil {
		e.emitOp(OpPop)
		e.emitOp(OpPushNull)
		return
	}
	slot := e.findOrAddLocal(arm.BindingName)
	e.emitOp(OpStoreLocal)
	e.emitByte(byte(slot))
	e.emitExpr(arm.Body)
}

func binaryOpcode(op ast.BinaryOp) Op {
	switch op {
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpMod:
		return OpMod
	case ast.OpEq:
		return OpEq
	case ast.OpNe:
		return OpNe
	case ast.OpLt:
		return OpLt
	case ast.OpLe:
		return OpLe
	case ast.OpGt:
		return OpGt
	case ast.OpGe:
		return OpGe
	case ast.OpAnd:
		return OpAnd
	default: // ast.OpOr
		return OpOr
	}
}

func unaryOpcode(op ast.UnaryOp) Op {
	if op == ast.OpNeg {
		return OpNeg
	}
	return OpNot
}

// processEscapes interprets the backslash escapes a string literal's raw
// source span may contain: \n \r \t \\ \" \0; an unrecognized \x becomes
// plain x.
func processEscapes(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(raw[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
