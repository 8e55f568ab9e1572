package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Disassemble writes a header summary followed by one line per
// instruction in e's accumulated code section, each prefixed with its
// hexadecimal instruction pointer.
func Disassemble(w io.Writer, e *Emitter) error {
	if _, err := fmt.Fprintf(w, "; constants: %d bytes\n", len(e.Pool().Bytes())); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "; code: %d bytes\n", len(e.Code())); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "; functions: %d, agents: %d\n", len(e.Funcs()), len(e.Agents())); err != nil {
		return err
	}

	code := e.Code()
	ip := 0
	for ip < len(code) {
		start := ip
		op := Op(code[ip])
		ip++
		operands, n := decodeOperands(op, code[ip:])
		ip += n
		if _, err := fmt.Fprintf(w, "%04x  %-18s%s\n", start, op, operands); err != nil {
			return err
		}
	}
	return nil
}

// decodeOperands reads op's operand bytes from rest and returns them
// formatted for display plus the number of bytes consumed.
func decodeOperands(op Op, rest []byte) (string, int) {
	switch op {
	case OpPushConst, OpLoadGlobal, OpStoreGlobal, OpCallNative, OpGetField, OpArrayNew:
		if len(rest) < 2 {
			return "<truncated>", len(rest)
		}
		return fmt.Sprintf("%d", binary.LittleEndian.Uint16(rest)), 2

	case OpPushInt:
		if len(rest) < 4 {
			return "<truncated>", len(rest)
		}
		return fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(rest))), 4

	case OpLoadLocal, OpStoreLocal, OpCall:
		if len(rest) < 1 {
			return "<truncated>", len(rest)
		}
		return fmt.Sprintf("%d", rest[0]), 1

	case OpJump, OpJumpIf, OpJumpIfNot:
		if len(rest) < 2 {
			return "<truncated>", len(rest)
		}
		return fmt.Sprintf("%+d", int16(binary.LittleEndian.Uint16(rest))), 2

	case OpCallMethod:
		if len(rest) < 3 {
			return "<truncated>", len(rest)
		}
		idx := binary.LittleEndian.Uint16(rest)
		n := rest[2]
		return fmt.Sprintf("%d %d", idx, n), 3

	case OpSpawnAgent, OpSpawnAsync:
		if len(rest) < 2 {
			return "<truncated>", len(rest)
		}
		return fmt.Sprintf("%d", binary.LittleEndian.Uint16(rest)), 2

	case OpSpawnSupervised:
		if len(rest) < 11 {
			return "<truncated>", len(rest)
		}
		idx := binary.LittleEndian.Uint16(rest)
		strat := rest[2]
		maxRestarts := binary.LittleEndian.Uint32(rest[3:])
		window := binary.LittleEndian.Uint32(rest[7:])
		return fmt.Sprintf("%d %d %d %d", idx, strat, maxRestarts, window), 11

	default:
		return "", 0
	}
}
