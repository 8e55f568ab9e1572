package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestCompileOnceWritesArtifactByDefault(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { print("hi"); }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{}, &out, &errOut)
	require.True(t, ok, errOut.String())

	outPath := outputPathFor(src, "")
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestCompileOnceRespectsExplicitOutputPath(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { print("hi"); }`)
	explicit := filepath.Join(dir, "out.vgb")

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{OutPath: explicit}, &out, &errOut)
	require.True(t, ok, errOut.String())

	_, err := os.ReadFile(explicit)
	require.NoError(t, err)
}

func TestCompileOnceDisassembleWritesToStdoutNotDisk(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { let x = 1 + 2; }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{Disassemble: true}, &out, &errOut)
	require.True(t, ok, errOut.String())
	assert.Contains(t, out.String(), "ADD")

	_, err := os.ReadFile(outputPathFor(src, ""))
	assert.True(t, os.IsNotExist(err))
}

func TestCompileOnceReportsParseErrorWithLocation(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main( { }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{}, &out, &errOut)
	assert.False(t, ok)
	assert.Contains(t, errOut.String(), "error:")
}

func TestCompileOnceReportsSemanticErrorForUndefinedAgent(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { let a = spawn Ghost; }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{}, &out, &errOut)
	assert.False(t, ok)
	assert.Contains(t, errOut.String(), "Ghost")
}

func TestCompileOnceDumpASTListsDeclarations(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { print("hi"); }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{DumpAST: true}, &out, &errOut)
	require.True(t, ok, errOut.String())
	assert.Contains(t, out.String(), "fn main")
}

func TestCompileOnceDumpTokensListsEOF(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() {}`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{DumpTokens: true}, &out, &errOut)
	require.True(t, ok, errOut.String())
	assert.Contains(t, out.String(), "EOF")
}

func TestCompileOnceDumpASTJSONValidatesAgainstSchema(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "main.vega", `fn main() { print("hi"); }`)

	var out, errOut bytes.Buffer
	ok := compileOnce(src, compileOptions{DumpASTJSON: true}, &out, &errOut)
	require.True(t, ok, errOut.String())
	assert.Contains(t, out.String(), `"Filename"`)
}

func TestOutputPathForDefaultsToVgbExtension(t *testing.T) {
	assert.Equal(t, "/tmp/prog.vgb", outputPathFor("/tmp/prog.vega", ""))
}

func TestOutputPathForHonorsExplicitOverride(t *testing.T) {
	assert.Equal(t, "/tmp/out.vgb", outputPathFor("/tmp/prog.vega", "/tmp/out.vgb"))
}
