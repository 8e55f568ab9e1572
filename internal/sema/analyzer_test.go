package sema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vega-lang/vegac/internal/lexer"
	"github.com/vega-lang/vegac/internal/parser"
)

// memReader is an in-memory FileReader so import resolution and circular
// import detection can be exercised without touching disk.
type memReader map[string]string

func (m memReader) ReadFile(path string) ([]byte, error) {
	src, ok := m[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(src), nil
}

func (m memReader) Exists(path string) bool {
	_, ok := m[path]
	return ok
}

func parseSrc(t *testing.T, src, filename string) *parser.Parser {
	t.Helper()
	l := lexer.New([]byte(src), filename)
	return parser.New(l)
}

func TestAnalyzeHelloWorldSucceeds(t *testing.T) {
	p := parseSrc(t, `fn main() { print("hi"); }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.True(t, ok, a.ErrorMessage())
}

func TestUndefinedAgentSpawnReportsError(t *testing.T) {
	p := parseSrc(t, `fn main() { let a = spawn Ghost; }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "Undefined agent")
}

func TestSpawningNonAgentNameReportsNotAnAgent(t *testing.T) {
	p := parseSrc(t, `
fn helper() { }
fn main() { let a = spawn helper; }
`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "not an agent")
}

func TestCircularImportIsDetected(t *testing.T) {
	reader := memReader{
		"A.vega": `import "./B";`,
		"B.vega": `import "./A";`,
	}
	p := parseSrc(t, `import "./A";`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer(WithFileReader(reader))
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "Circular import")
}

func TestLetTypeMismatchIsRejected(t *testing.T) {
	p := parseSrc(t, `fn main() { let x: int = "oops"; }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
}

func TestForwardReferenceBetweenFunctionsResolves(t *testing.T) {
	p := parseSrc(t, `
fn main() { let r = helper(); }
fn helper() -> int { return 1; }
`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.True(t, ok, a.ErrorMessage())
}

func TestAgentWithoutModelGetsDefault(t *testing.T) {
	p := parseSrc(t, `
agent Greeter {
	tool hello(who: str) -> str { return who; }
}
fn main() { let a = spawn Greeter; }
`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	require.True(t, ok, a.ErrorMessage())
	require.NotNil(t, prog.Agents[0].Model)
	assert.Equal(t, "default", *prog.Agents[0].Model)
}

func TestBreakOutsideLoopIsRejected(t *testing.T) {
	p := parseSrc(t, `fn main() { break; }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "break")
}

func TestInvalidImportPathSyntaxIsRejected(t *testing.T) {
	p := parseSrc(t, `import "  ";`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
}

func TestPopScopeBelowGlobalPanics(t *testing.T) {
	a := NewAnalyzer()
	assert.Panics(t, func() { a.popScope() })
}

func TestDuplicateLetInSameScopeIsRejected(t *testing.T) {
	p := parseSrc(t, `fn main() { let x = 1; let x = 2; }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "already defined")
}

func TestDuplicateParameterNameIsRejected(t *testing.T) {
	p := parseSrc(t, `fn add(x: int, x: int) -> int { return x; }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.False(t, ok)
	assert.Contains(t, a.ErrorMessage(), "duplicate parameter")
}

func TestShadowingAcrossScopesIsPermitted(t *testing.T) {
	p := parseSrc(t, `fn main() { let x = 1; if true { let x = 2; } }`, "main.vega")
	prog := p.ParseProgram()
	require.False(t, p.HadError())

	a := NewAnalyzer()
	ok := a.Analyze(prog, "main.vega")
	assert.True(t, ok, a.ErrorMessage())
}
