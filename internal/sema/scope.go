package sema

import "github.com/vega-lang/vegac/internal/diagnostic"

// SymbolKind discriminates what a name in scope refers to.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParameter
	SymFunction
	SymAgent
	SymTool
)

// Symbol is one entry in a Scope: a name bound to a type, plus whatever
// extra shape its kind carries (a function's signature, an agent's tools).
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       Type
	DefinedAt  diagnostic.Location
	ReturnType *Type
	ParamTypes []Type
	ToolNames  []string // SymAgent only: names of its declared tools
}

// Scope is one hash-table scope in the lexical chain, linked to its parent.
// The outermost scope (no parent) holds every module's top-level agents and
// functions; each function body and block pushes a fresh child scope.
type Scope struct {
	parent  *Scope
	symbols map[string]*Symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, symbols: make(map[string]*Symbol)}
}

// Define binds name in this scope, overwriting any existing binding of the
// same name in this exact scope. It returns false when name was already
// bound in this exact scope (a same-scope redefinition); the module pre-pass
// in registerDeclarations intentionally ignores this to keep its documented
// silent-shadow behavior across modules, while local declarations (let
// statements, parameters) use it to reject redefinition per scope.
func (s *Scope) Define(sym *Symbol) bool {
	_, existed := s.symbols[sym.Name]
	s.symbols[sym.Name] = sym
	return !existed
}

// Resolve looks up name in this scope and, failing that, each ancestor in
// turn.
func (s *Scope) Resolve(name string) (*Symbol, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if sym, ok := sc.symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Names returns every name visible from this scope, nearest-scope first,
// for "did you mean" suggestion search.
func (s *Scope) Names() []string {
	var out []string
	seen := make(map[string]bool)
	for sc := s; sc != nil; sc = sc.parent {
		for name := range sc.symbols {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
