// Package diagnostic provides the single error-reporting shape shared by
// every compiler stage (lexer, parser, semantic analyzer, bytecode emitter).
package diagnostic

import "fmt"

// Stage identifies which compiler pass produced a Diagnostic.
type Stage int

const (
	StageLexer Stage = iota
	StageParser
	StageSema
	StageEmitter
)

func (s Stage) String() string {
	switch s {
	case StageLexer:
		return "lexer"
	case StageParser:
		return "parser"
	case StageSema:
		return "sema"
	case StageEmitter:
		return "emitter"
	default:
		return "unknown"
	}
}

// Location is a source position: filename, 1-indexed line/column, and the
// byte offset into the source buffer.
type Location struct {
	Filename string
	Line     int
	Column   int
	Offset   int
}

func (l Location) String() string {
	if l.Filename == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.Filename, l.Line, l.Column)
}

// Diagnostic is one reported error.
type Diagnostic struct {
	Stage    Stage
	Location Location
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: error: %s", d.Location, d.Message)
}

// Bag buffers at most one Diagnostic per stage: §7 mandates that each stage
// owns an error flag, a buffered message, and a source location, and that
// the *first* error wins. Subsequent Report calls after the first are
// dropped, which is what lets the parser recover into panic mode and
// continue scanning without the later (often cascading) errors overwriting
// the first, useful one.
type Bag struct {
	stage Stage
	first *Diagnostic
}

// NewBag creates an empty Bag for the given stage.
func NewBag(stage Stage) *Bag {
	return &Bag{stage: stage}
}

// Report records a diagnostic if none has been recorded yet. Returns true if
// this call recorded the diagnostic (i.e. it was the first).
func (b *Bag) Report(loc Location, format string, args ...any) bool {
	if b.first != nil {
		return false
	}
	b.first = &Diagnostic{
		Stage:    b.stage,
		Location: loc,
		Message:  fmt.Sprintf(format, args...),
	}
	return true
}

// HadError reports whether a diagnostic has been recorded.
func (b *Bag) HadError() bool {
	return b.first != nil
}

// Message returns the buffered diagnostic's message, or "" if none.
func (b *Bag) Message() string {
	if b.first == nil {
		return ""
	}
	return b.first.Message
}

// Location returns the buffered diagnostic's location, or the zero Location.
func (b *Bag) Location() Location {
	if b.first == nil {
		return Location{}
	}
	return b.first.Location
}

// First returns the buffered diagnostic, or nil.
func (b *Bag) First() *Diagnostic {
	return b.first
}

// Reset clears the bag so a component can be reused across invocations.
func (b *Bag) Reset() {
	b.first = nil
}
