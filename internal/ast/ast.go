// Package ast defines the tagged-variant tree produced by the parser:
// Expr, Stmt, and Decl each carry a Kind discriminant plus the union of
// fields used by their variants, one struct per node family instead of one
// concrete type per node kind. Nodes are built once by the parser and are
// never mutated afterward except through a side table (see the sema
// package's TypeOf).
package ast

import "github.com/vega-lang/vegac/internal/diagnostic"

// NodeID uniquely identifies a node within one parse, used as the key for
// out-of-band semantic annotations so the tree itself stays immutable.
type NodeID uint64

// IDGen hands out NodeIDs for one parse. It is owned by the parser that
// creates it; there is no process-wide counter, so a second compiler
// invocation in the same process starts from entirely fresh state.
type IDGen struct{ next NodeID }

// Next returns the next unused NodeID.
func (g *IDGen) Next() NodeID {
	g.next++
	return g.next
}

// ExprKind discriminates the Expr union.
type ExprKind int

const (
	ExprInt ExprKind = iota
	ExprFloat
	ExprString
	ExprBool
	ExprNull
	ExprArray
	ExprIdent
	ExprBinary
	ExprUnary
	ExprCall
	ExprMethodCall
	ExprField
	ExprIndex
	ExprSpawn
	ExprSend
	ExprAwait
	ExprOk
	ExprErr
	ExprMatch
)

// BinaryOp is the closed set of binary operators the language allows.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// UnaryOp is the closed set of unary operators: negation and logical not.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// Supervision is a spawn's optional `supervised by { ... }` configuration.
type Supervision struct {
	Strategy    string // "restart" | "stop" | "escalate" | "restart_all"
	MaxRestarts int    // default 3
	WindowMS    int    // default 60000
}

// MatchArm is one arm of a match expression: `Ok(x) => expr` or `Err(e) => expr`.
type MatchArm struct {
	IsOk        bool
	BindingName string
	Body        *Expr
}

// Expr is every expression node: integer/float/string/boolean/null/array
// literals, identifiers, binary/unary operators, calls, method calls, field
// access, index, spawn, message send, await, Ok/Err, and match.
type Expr struct {
	Kind ExprKind
	ID   NodeID
	Loc  diagnostic.Location

	// Literals
	Int   int64
	Float float64
	Str   string // raw, unescaped source span for ExprString
	Bool  bool

	Elements []*Expr // ExprArray, ordered

	// ExprIdent / field name (ExprField) / method name (ExprMethodCall) /
	// agent name (ExprSpawn)
	Name string

	// ExprBinary / ExprUnary
	BinOp BinaryOp
	UnOp  UnaryOp
	Left  *Expr
	Right *Expr

	// Shared operand slot: unary operand, await operand, Ok/Err operand
	Operand *Expr

	// ExprCall / ExprMethodCall
	Callee *Expr   // ExprCall only
	Object *Expr   // ExprMethodCall / ExprField / ExprIndex receiver
	Args   []*Expr // ordered arguments, ExprCall and ExprMethodCall

	// ExprIndex
	Index *Expr

	// ExprSpawn
	Async       bool
	Supervision *Supervision // nil if no `supervised by` clause

	// ExprSend
	Target  *Expr
	Payload *Expr

	// ExprMatch
	Scrutinee *Expr
	Arms      []MatchArm
}

// StmtKind discriminates the Stmt union.
type StmtKind int

const (
	StmtExpr StmtKind = iota
	StmtLet
	StmtAssign
	StmtIf
	StmtWhile
	StmtFor
	StmtReturn
	StmtBreak
	StmtContinue
	StmtBlock
)

// TypeAnn is a type annotation: a name plus array flag plus, for Result
// types, the carried Ok/Err inner type annotations.
type TypeAnn struct {
	Name    string // "int" | "float" | "bool" | "str" | "void" | "Result" | agent name
	IsArray bool
	OkType  *TypeAnn // only set when Name == "Result"
	ErrType *TypeAnn // only set when Name == "Result"
}

// Stmt is every statement node the grammar produces.
type Stmt struct {
	Kind StmtKind
	ID   NodeID
	Loc  diagnostic.Location

	Expr *Expr // StmtExpr / StmtReturn (optional) / StmtWhile,StmtIf,StmtFor condition

	// StmtLet
	Name    string
	TypeAnn *TypeAnn // optional
	Init    *Expr    // optional

	// StmtAssign
	Target *Expr
	Value  *Expr

	// StmtIf / StmtWhile share Expr as condition
	Then *Stmt // block
	Else *Stmt // block or nested StmtIf; nil if absent

	// StmtWhile / StmtFor body
	Body *Stmt

	// StmtFor
	ForInit   *Stmt // optional
	ForUpdate *Stmt // optional; expression-statement or assignment-statement

	// StmtBlock
	Stmts []*Stmt
}

// DeclKind discriminates the Decl union.
type DeclKind int

const (
	DeclImport DeclKind = iota
	DeclAgent
	DeclFunction
	DeclTool
)

// Param is one function/tool parameter: `name : Type`.
type Param struct {
	Name string
	Type TypeAnn
}

// Decl is every top-level (or, for DeclTool, agent-nested) declaration node
// the grammar produces.
type Decl struct {
	Kind DeclKind
	ID   NodeID
	Loc  diagnostic.Location

	// DeclImport
	Path  string
	Alias string // "" if no `as` clause

	// DeclAgent / DeclFunction / DeclTool share Name
	Name string

	// DeclAgent
	Model       *string // nil until semantic analysis fills a default
	System      *string
	Temperature float64 // defaults to 0.7
	Tools       []*Decl // ordered, each DeclTool

	// DeclFunction / DeclTool
	Params     []Param
	ReturnType *TypeAnn // nil means void
	Body       *Stmt    // StmtBlock
}

// Program is the parsed root of one source file: its declarations split
// by kind for convenient access during semantic analysis and emission,
// each list in source order.
type Program struct {
	Filename string
	Imports  []*Decl
	Agents   []*Decl
	Funcs    []*Decl
}

// Decls returns every top-level declaration grouped by kind: imports,
// then agents, then functions, each group in source order. Interleaving
// across kinds in the source is not preserved.
func (p *Program) Decls() []*Decl {
	out := make([]*Decl, 0, len(p.Imports)+len(p.Agents)+len(p.Funcs))
	out = append(out, p.Imports...)
	out = append(out, p.Agents...)
	out = append(out, p.Funcs...)
	return out
}
