package bytecode

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vega-lang/vegac/internal/ast"
	"github.com/vega-lang/vegac/internal/lexer"
	"github.com/vega-lang/vegac/internal/parser"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	l := lexer.New([]byte(src), "test.vega")
	p := parser.New(l)
	prog := p.ParseProgram()
	require.False(t, p.HadError(), p.ErrorMessage())
	return prog
}

func TestHelloWorldEmitsPrintThenImplicitReturn(t *testing.T) {
	prog := parseProgram(t, `fn main() { print("hi"); }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())

	require.Len(t, e.Funcs(), 1)
	code := e.Code()
	require.NotEmpty(t, code)
	assert.Equal(t, byte(OpPushConst), code[0])
	assert.Equal(t, byte(OpPrint), code[3])
	assert.Equal(t, byte(OpPushNull), code[4])
	assert.Equal(t, byte(OpReturn), code[5])
}

func TestSmallIntUsesPushIntFastPath(t *testing.T) {
	prog := parseProgram(t, `fn main() { let x = 5; }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	assert.Equal(t, byte(OpPushInt), e.Code()[0])
}

func TestLargeIntUsesConstantPool(t *testing.T) {
	prog := parseProgram(t, `fn main() { let x = 1000000; }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	assert.Equal(t, byte(OpPushConst), e.Code()[0])
	assert.Equal(t, poolKindInt, e.Pool().Bytes()[0])
}

func TestWhileLoopWithBreakPatchesJumpPastLoop(t *testing.T) {
	prog := parseProgram(t, `fn main() { while true { break; } }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	assert.NotContains(t, e.ErrorMessage(), "break")

	// PUSH_TRUE, JUMP_IF_NOT, JUMP (break) at 4, back-edge JUMP at 7, and
	// the implicit PUSH_NULL right after the loop at 10.
	code := e.Code()
	require.Equal(t, byte(OpJump), code[4])
	breakDelta := int16(binary.LittleEndian.Uint16(code[5:7]))
	assert.Equal(t, 10, 7+int(breakDelta))
	assert.Equal(t, byte(OpPushNull), code[10])
}

func TestBreakOutsideLoopIsEmissionError(t *testing.T) {
	body := &ast.Stmt{Kind: ast.StmtBlock, Stmts: []*ast.Stmt{
		{Kind: ast.StmtBreak},
	}}
	prog := &ast.Program{Funcs: []*ast.Decl{
		{Kind: ast.DeclFunction, Name: "main", Body: body},
	}}
	e := NewEmitter()
	ok := e.Generate(prog)
	assert.False(t, ok)
	assert.Contains(t, e.ErrorMessage(), "break")
}

func TestContinueJumpsToLoopCondition(t *testing.T) {
	prog := parseProgram(t, `fn main() { while true { continue; } }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())

	// The continue JUMP at 4 lands on the condition's PUSH_TRUE at 0.
	code := e.Code()
	require.Equal(t, byte(OpJump), code[4])
	continueDelta := int16(binary.LittleEndian.Uint16(code[5:7]))
	assert.Equal(t, 0, 7+int(continueDelta))
}

func TestAgentWithToolEmitsMangledFunctionAndAgentRecord(t *testing.T) {
	prog := parseProgram(t, `
agent Greeter {
	model "m";
	tool hello(who: str) -> str { return who; }
}
fn main() { let a = spawn Greeter; }
`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	require.Len(t, e.Agents(), 1)
	require.Len(t, e.Funcs(), 2) // Greeter$hello, main
}

func TestMatchLoweringProducesBalancedArms(t *testing.T) {
	prog := parseProgram(t, `
fn main() {
	let r = Ok(1);
	let v = match r { Ok(x) => x, Err(e) => 0 };
}
`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
}

func TestStringEscapeProcessing(t *testing.T) {
	prog := parseProgram(t, `fn main() { print("a\nb"); }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	poolBytes := e.Pool().Bytes()
	// kind tag, 2-byte length, then raw content
	require.Equal(t, poolKindString, poolBytes[0])
	length := int(poolBytes[1]) | int(poolBytes[2])<<8
	content := string(poolBytes[3 : 3+length])
	assert.Equal(t, "a\nb", content)
}

func TestDuplicateStringLiteralsAreDeduped(t *testing.T) {
	prog := parseProgram(t, `fn main() { print("x"); print("x"); }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())
	// Only one string entry for "x" (tag + 2-byte length + 1 content byte)
	// should exist in the pool despite two identical literal uses, followed
	// by the function name "main" (tag + 2-byte length + 4 content bytes).
	assert.Equal(t, 4+7, len(e.Pool().Bytes()))
}

func TestPatchJumpOutOfBoundsPanics(t *testing.T) {
	e := NewEmitter()
	e.emitOp(OpNop)
	assert.Panics(t, func() { e.patchJump(100) })
}

func TestEmitBackJumpOutOfBoundsPanics(t *testing.T) {
	e := NewEmitter()
	e.emitOp(OpNop)
	assert.Panics(t, func() { e.emitBackJump(OpJump, 100) })
}
