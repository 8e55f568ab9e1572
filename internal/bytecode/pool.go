package bytecode

import (
	"encoding/binary"
	"math"
)

// Constant pool entry kind tags, each entry's first byte.
const (
	poolKindInt byte = iota
	poolKindFloat
	poolKindString
)

// Pool is the byte-addressable constant pool: entries are appended once
// and never moved, so an entry's index is its starting byte offset,
// exactly what opcode operands reference. Strings are deduplicated by
// content; the dedup table is what "owns" each processed string and is
// dropped along with the pool when Emitter.Cleanup replaces it.
type Pool struct {
	buf     []byte
	strings map[string]uint32
}

// NewPool returns an empty constant pool.
func NewPool() *Pool {
	return &Pool{strings: make(map[string]uint32)}
}

// Bytes returns the pool's raw byte contents.
func (p *Pool) Bytes() []byte { return p.buf }

// AddInt appends (or would append, pool entries are never reused for
// integers) a 4-byte little-endian signed integer entry and returns its
// offset.
func (p *Pool) AddInt(v int64) uint32 {
	offset := uint32(len(p.buf))
	p.buf = append(p.buf, poolKindInt)
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(int32(v)))
	return offset
}

// AddFloat appends an 8-byte IEEE-754 float entry and returns its offset.
func (p *Pool) AddFloat(v float64) uint32 {
	offset := uint32(len(p.buf))
	p.buf = append(p.buf, poolKindFloat)
	p.buf = binary.LittleEndian.AppendUint64(p.buf, math.Float64bits(v))
	return offset
}

// AddString interns s (already escape-processed by the caller), returning
// the offset of an existing entry with identical content if one exists,
// or appending a new 2-byte-length-prefixed entry otherwise.
func (p *Pool) AddString(s string) uint32 {
	if offset, ok := p.strings[s]; ok {
		return offset
	}
	offset := uint32(len(p.buf))
	p.buf = append(p.buf, poolKindString)
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
	p.strings[s] = offset
	return offset
}
