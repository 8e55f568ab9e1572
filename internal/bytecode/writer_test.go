package bytecode

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestBuildLayoutMatchesHeaderThenTables(t *testing.T) {
	prog := parseProgram(t, `fn main() { print("hi"); }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())

	w := NewWriter()
	data := w.Build(e)

	require.GreaterOrEqual(t, len(data), 24)
	assert.Equal(t, magic, binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, formatVersion, binary.LittleEndian.Uint32(data[4:8]))
	poolSize := binary.LittleEndian.Uint32(data[12:16])
	codeSize := binary.LittleEndian.Uint32(data[16:20])
	assert.Equal(t, uint32(len(e.Pool().Bytes())), poolSize)
	assert.Equal(t, uint32(len(e.Code())), codeSize)

	funcCount := binary.LittleEndian.Uint16(data[20:22])
	agentCount := binary.LittleEndian.Uint16(data[22:24])
	assert.Equal(t, uint16(1), funcCount)
	assert.Equal(t, uint16(0), agentCount)

	tablesEnd := 24 + int(funcCount)*14 + int(agentCount)*10
	expectedLen := tablesEnd + int(poolSize) + int(codeSize)
	assert.Equal(t, expectedLen, len(data))
}

func TestWriteFileDigestMatchesWrittenBytes(t *testing.T) {
	prog := parseProgram(t, `fn main() { print("hi"); }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())

	w := NewWriter()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.vgb")
	digest, err := w.WriteFile(path, e)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, w.Build(e), data)
	assert.NotEqual(t, [32]byte{}, digest)
	assert.Equal(t, blake2b.Sum256(data), digest)
}

func TestDisassembleProducesOneLinePerInstruction(t *testing.T) {
	prog := parseProgram(t, `fn main() { let x = 1 + 2; }`)
	e := NewEmitter()
	require.True(t, e.Generate(prog), e.ErrorMessage())

	var sb strings.Builder
	err := Disassemble(&sb, e)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), "PUSH_INT")
	assert.Contains(t, sb.String(), "ADD")
	assert.Contains(t, sb.String(), "RETURN")
	// 3 header lines plus PUSH_INT, PUSH_INT, ADD, STORE_LOCAL, PUSH_NULL, RETURN.
	assert.Equal(t, 3+6, strings.Count(sb.String(), "\n"))
}
