package sema

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/mod/module"

	"github.com/vega-lang/vegac/internal/ast"
	"github.com/vega-lang/vegac/internal/diagnostic"
	"github.com/vega-lang/vegac/internal/invariant"
	"github.com/vega-lang/vegac/internal/lexer"
	"github.com/vega-lang/vegac/internal/parser"
)

// FileReader is the filesystem surface the analyzer needs to resolve
// imports. Tests inject an in-memory implementation so module resolution
// and circular-import detection are exercised without touching disk.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}

type osFileReader struct{}

func (osFileReader) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFileReader) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Option configures an Analyzer at construction time.
type Option func(*Analyzer)

// WithFileReader overrides the default os-backed FileReader.
func WithFileReader(r FileReader) Option {
	return func(a *Analyzer) { a.reader = r }
}

// WithLogger attaches a structured logger; by default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

type moduleState int

const (
	moduleUnresolved moduleState = iota
	moduleAnalyzing
	moduleAnalyzed
)

type moduleEntry struct {
	canonical string
	program   *ast.Program
	state     moduleState
}

// Analyzer resolves imports, builds the global symbol table, and
// type-checks a program and every module it transitively imports.
type Analyzer struct {
	errors *diagnostic.Bag
	logger *slog.Logger
	reader FileReader

	searchPaths []string

	global  *Scope
	current *Scope

	typeOf map[ast.NodeID]Type

	moduleCache    map[string]*moduleEntry
	modulePrograms []*ast.Program

	warnings  []string
	loopDepth int
}

// NewAnalyzer constructs an Analyzer with a fresh global scope.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		errors:      diagnostic.NewBag(diagnostic.StageSema),
		reader:      osFileReader{},
		global:      newScope(nil),
		typeOf:      make(map[ast.NodeID]Type),
		moduleCache: make(map[string]*moduleEntry),
	}
	a.current = a.global
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddSearchPath appends a directory to the ordered list the analyzer
// consults when resolving a non-relative import path. Callers (typically
// cmd/vegac) populate this from VEGA_PATH and an implicit ./stdlib entry
// before calling Analyze.
func (a *Analyzer) AddSearchPath(path string) {
	a.searchPaths = append(a.searchPaths, path)
}

// HadError reports whether any semantic error was recorded.
func (a *Analyzer) HadError() bool { return a.errors.HadError() }

// ErrorMessage returns the first semantic error's message, or "".
func (a *Analyzer) ErrorMessage() string { return a.errors.Message() }

// ErrorLocation returns the first semantic error's location.
func (a *Analyzer) ErrorLocation() diagnostic.Location { return a.errors.Location() }

// ModulePrograms returns the AST root of every module transitively
// imported by the last Analyze call, in dependency order (a module always
// appears after the modules it imports), not including the entry program
// itself.
func (a *Analyzer) ModulePrograms() []*ast.Program { return a.modulePrograms }

// TypeOf returns the type computed for an expression node during the last
// Analyze call.
func (a *Analyzer) TypeOf(id ast.NodeID) (Type, bool) {
	t, ok := a.typeOf[id]
	return t, ok
}

// Warnings returns non-fatal diagnostics accumulated during Analyze, such
// as a missing main function.
func (a *Analyzer) Warnings() []string { return a.warnings }

// Cleanup releases per-invocation state so the Analyzer can be reused for a
// second, unrelated compilation without carrying over module cache entries
// or scope pollution from the previous run.
func (a *Analyzer) Cleanup() {
	a.errors.Reset()
	a.global = newScope(nil)
	a.current = a.global
	a.typeOf = make(map[ast.NodeID]Type)
	a.moduleCache = make(map[string]*moduleEntry)
	a.modulePrograms = nil
	a.warnings = nil
	a.loopDepth = 0
}

func (a *Analyzer) report(loc diagnostic.Location, format string, args ...any) bool {
	return a.errors.Report(loc, format, args...)
}

func (a *Analyzer) pushScope() { a.current = newScope(a.current) }

func (a *Analyzer) popScope() {
	invariant.Precondition(a.current.parent != nil, "popScope: scope stack underflow (already at global scope)")
	a.current = a.current.parent
}

// suggest returns the closest visible name to want, for "did you mean"
// enrichment on undefined-name errors. Returns "" if nothing is close.
func (a *Analyzer) suggest(want string) string {
	ranks := fuzzy.RankFindFold(want, a.current.Names())
	if len(ranks) == 0 {
		return ""
	}
	best := ranks[0]
	for _, r := range ranks[1:] {
		if r.Distance < best.Distance {
			best = r
		}
	}
	return best.Target
}

func (a *Analyzer) undefinedNameError(loc diagnostic.Location, kind, name string) {
	if hint := a.suggest(name); hint != "" {
		a.report(loc, "undefined %s '%s' (did you mean '%s'?)", kind, name, hint)
		return
	}
	a.report(loc, "undefined %s '%s'", kind, name)
}

// Analyze resolves every import transitively reachable from program,
// registers all top-level agent and function declarations (including
// those pulled in from imported modules) into the global scope, then
// type-checks every retained module body followed by program's own body.
// It returns false if any stage reported an error, short-circuiting
// remaining work.
func (a *Analyzer) Analyze(program *ast.Program, sourcePath string) bool {
	dir := filepath.Dir(sourcePath)
	if !a.processImports(program, dir) {
		return false
	}
	a.registerDeclarations(program)

	for _, mod := range a.modulePrograms {
		a.typeCheckProgram(mod)
		if a.HadError() {
			return false
		}
	}
	a.typeCheckProgram(program)
	if a.HadError() {
		return false
	}

	if _, ok := a.global.Resolve("main"); !ok {
		a.warnings = append(a.warnings, "no 'main' function declared")
	}
	return !a.HadError()
}

// validateImportPath applies golang.org/x/mod's import-path syntax check
// to the non-relative portion of an import path: a leading "./" or "../"
// sequence is stripped first since CheckImportPath has no notion of
// filesystem-relative paths.
func validateImportPath(raw string) error {
	path := raw
	for strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		path = strings.TrimPrefix(path, "../")
		path = strings.TrimPrefix(path, "./")
	}
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return errEmptyImportPath
	}
	return module.CheckImportPath(path)
}

func (a *Analyzer) resolveModulePath(fromDir, importPath string) (string, error) {
	if strings.HasPrefix(importPath, ".") {
		return filepath.Clean(filepath.Join(fromDir, importPath+".vega")), nil
	}
	for _, sp := range a.searchPaths {
		candidate := filepath.Clean(filepath.Join(sp, importPath+".vega"))
		if a.reader.Exists(candidate) {
			return candidate, nil
		}
	}
	return "", errModuleNotFound
}

// processImports recursively resolves every import in program, depth
// first, so that by the time a module finishes here its own dependencies
// are already fully resolved and registered.
func (a *Analyzer) processImports(program *ast.Program, fromDir string) bool {
	for _, imp := range program.Imports {
		if err := validateImportPath(imp.Path); err != nil {
			a.report(imp.Loc, "invalid import path '%s': %v", imp.Path, err)
			return false
		}
		canonical, err := a.resolveModulePath(fromDir, imp.Path)
		if err != nil {
			a.report(imp.Loc, "module not found: %s", imp.Path)
			return false
		}
		if entry, ok := a.moduleCache[canonical]; ok {
			if entry.state == moduleAnalyzing {
				a.report(imp.Loc, "Circular import detected: %s", imp.Path)
				return false
			}
			continue
		}
		src, err := a.reader.ReadFile(canonical)
		if err != nil {
			a.report(imp.Loc, "cannot read module '%s': %v", imp.Path, err)
			return false
		}
		entry := &moduleEntry{canonical: canonical, state: moduleAnalyzing}
		a.moduleCache[canonical] = entry

		lx := lexer.New(src, canonical)
		p := parser.New(lx)
		subProgram := p.ParseProgram()
		if p.HadError() {
			a.report(p.ErrorLocation(), "%s", p.ErrorMessage())
			return false
		}
		entry.program = subProgram

		if !a.processImports(subProgram, filepath.Dir(canonical)) {
			return false
		}
		a.registerDeclarations(subProgram)
		entry.state = moduleAnalyzed
		a.modulePrograms = append(a.modulePrograms, subProgram)
	}
	return true
}

// registerDeclarations is the pre-pass: it adds every agent and function
// name at program's top level to the global scope before any body is
// type-checked, so mutual and forward references resolve regardless of
// declaration order or which module introduced the name.
func (a *Analyzer) registerDeclarations(program *ast.Program) {
	for _, fn := range program.Funcs {
		a.global.Define(&Symbol{
			Name:       fn.Name,
			Kind:       SymFunction,
			Type:       declReturnType(fn),
			DefinedAt:  fn.Loc,
			ReturnType: ptrType(declReturnType(fn)),
			ParamTypes: paramTypes(fn.Params),
		})
	}
	for _, agent := range program.Agents {
		names := make([]string, 0, len(agent.Tools))
		for _, tool := range agent.Tools {
			names = append(names, tool.Name)
		}
		a.global.Define(&Symbol{
			Name:      agent.Name,
			Kind:      SymAgent,
			Type:      Agent(agent.Name),
			DefinedAt: agent.Loc,
			ToolNames: names,
		})
	}
}

func declReturnType(fn *ast.Decl) Type {
	if fn.ReturnType == nil {
		return Void()
	}
	return typeFromAnn(fn.ReturnType)
}

func paramTypes(params []ast.Param) []Type {
	out := make([]Type, len(params))
	for i, p := range params {
		out[i] = typeFromAnn(&p.Type)
	}
	return out
}

func ptrType(t Type) *Type { return &t }

func typeFromAnn(ann *ast.TypeAnn) Type {
	if ann == nil {
		return Void()
	}
	var base Type
	switch ann.Name {
	case "int":
		base = Int()
	case "float":
		base = Float()
	case "bool":
		base = Bool()
	case "str":
		base = Str()
	case "void":
		base = Void()
	case "Result":
		base = Result()
	default:
		base = Agent(ann.Name)
	}
	if ann.IsArray {
		return Array(base)
	}
	return base
}
