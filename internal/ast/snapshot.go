package ast

import "github.com/fxamacker/cbor/v2"

// Snapshot serializes a Program to CBOR. Tests use this to take a golden
// snapshot of a parsed tree and assert that re-decoding it reproduces an
// identical structure (cmp.Diff against the original) — the same
// round-trip discipline applied one stage later to the bytecode artifact
// itself, applied here to the pre-bytecode tree.
func Snapshot(p *Program) ([]byte, error) {
	return cbor.Marshal(p)
}

// LoadSnapshot decodes a Program previously produced by Snapshot.
func LoadSnapshot(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
