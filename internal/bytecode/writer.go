package bytecode

import (
	"encoding/binary"
	"os"

	"golang.org/x/crypto/blake2b"
)

const (
	magic        = uint32(0x56474143) // "VGAC"
	formatVersion = uint32(1)
)

// Writer serializes an Emitter's accumulated tables into the fixed binary
// layout: header, func_count/agent_count, function table, agent table,
// constant pool bytes, then code bytes. All multi-byte integers are
// little-endian.
type Writer struct{}

// NewWriter returns a Writer. It carries no state of its own.
func NewWriter() *Writer { return &Writer{} }

// Build assembles the artifact bytes without touching disk.
func (w *Writer) Build(e *Emitter) []byte {
	poolBytes := e.Pool().Bytes()
	codeBytes := e.Code()

	buf := make([]byte, 0, 20+4+len(e.Funcs())*14+len(e.Agents())*10+len(poolBytes)+len(codeBytes))
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = binary.LittleEndian.AppendUint32(buf, formatVersion)
	buf = binary.LittleEndian.AppendUint32(buf, 0) // flags, reserved
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(poolBytes)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(codeBytes)))

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Funcs())))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Agents())))

	for _, fn := range e.Funcs() {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(fn.NameIdx))
		buf = binary.LittleEndian.AppendUint16(buf, fn.ParamCount)
		buf = binary.LittleEndian.AppendUint16(buf, fn.LocalCount)
		buf = binary.LittleEndian.AppendUint32(buf, fn.CodeOffset)
		buf = binary.LittleEndian.AppendUint32(buf, fn.CodeLength)
	}
	for _, ag := range e.Agents() {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(ag.NameIdx))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(ag.ModelIdx))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(ag.SystemIdx))
		buf = binary.LittleEndian.AppendUint16(buf, ag.ToolCount)
		buf = binary.LittleEndian.AppendUint16(buf, ag.TemperatureX100)
	}

	buf = append(buf, poolBytes...)
	buf = append(buf, codeBytes...)
	return buf
}

// WriteFile builds the artifact, writes it to path, and returns a
// BLAKE2b-256 digest of the exact bytes written. The digest is never
// embedded in the artifact itself — it exists only for the caller (the
// CLI's -v output, and round-trip tests) to verify integrity out of band.
func (w *Writer) WriteFile(path string, e *Emitter) ([32]byte, error) {
	data := w.Build(e)
	digest := blake2b.Sum256(data)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return digest, err
	}
	return digest, nil
}
