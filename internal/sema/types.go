// Package sema implements the semantic analyzer: scoped symbol tables,
// structural typing, and recursive module resolution with cycle detection.
package sema

import "fmt"

// Kind is the closed set of types a program's values may have.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindAgent
	KindFuture
	KindResult
	KindArray
	KindUnknown
)

// Type is a value's static type. Agent types optionally carry the agent's
// declared name (empty means a generic, unnamed agent type). Array types
// carry their element Type.
type Type struct {
	Kind      Kind
	AgentName string // only meaningful when Kind == KindAgent
	Elem      *Type  // only meaningful when Kind == KindArray
}

func Void() Type    { return Type{Kind: KindVoid} }
func Int() Type     { return Type{Kind: KindInt} }
func Float() Type   { return Type{Kind: KindFloat} }
func Bool() Type    { return Type{Kind: KindBool} }
func Str() Type     { return Type{Kind: KindStr} }
func Future() Type  { return Type{Kind: KindFuture} }
func Result() Type  { return Type{Kind: KindResult} }
func Unknown() Type { return Type{Kind: KindUnknown} }

func Agent(name string) Type { return Type{Kind: KindAgent, AgentName: name} }
func Array(elem Type) Type   { return Type{Kind: KindArray, Elem: &elem} }

func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }

func (t Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindFuture:
		return "future"
	case KindResult:
		return "result"
	case KindUnknown:
		return "unknown"
	case KindAgent:
		if t.AgentName == "" {
			return "agent"
		}
		return fmt.Sprintf("agent(%s)", t.AgentName)
	case KindArray:
		if t.Elem == nil {
			return "array(unknown)"
		}
		return fmt.Sprintf("array(%s)", t.Elem.String())
	default:
		return "?"
	}
}

// Equal reports type compatibility: unknown is compatible with anything;
// array equality is element-wise with unknown-element wildcarding; two
// agent types are equal if either is generic (no carried name) or the
// names match.
func Equal(a, b Type) bool {
	if a.Kind == KindUnknown || b.Kind == KindUnknown {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindArray:
		if a.Elem == nil || b.Elem == nil {
			return true
		}
		return Equal(*a.Elem, *b.Elem)
	case KindAgent:
		if a.AgentName == "" || b.AgentName == "" {
			return true
		}
		return a.AgentName == b.AgentName
	default:
		return true
	}
}

// Widen returns the arithmetic result type of combining a and b: float if
// either operand is float, otherwise int. Callers only use this once both
// operands are already known numeric (or unknown).
func Widen(a, b Type) Type {
	if a.Kind == KindFloat || b.Kind == KindFloat {
		return Float()
	}
	return Int()
}
