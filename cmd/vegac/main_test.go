package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstNonEmptyPrefersFirstArgument(t *testing.T) {
	assert.Equal(t, "a", firstNonEmpty("a", "b"))
	assert.Equal(t, "b", firstNonEmpty("", "b"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestBuildSearchPathsIncludesVegaPathAndConfigEntries(t *testing.T) {
	t.Setenv("VEGA_PATH", "/opt/libs"+string(os.PathListSeparator)+"/opt/more")
	paths := buildSearchPaths([]string{"./vendor"})
	assert.Contains(t, paths, "/opt/libs")
	assert.Contains(t, paths, "/opt/more")
	assert.Contains(t, paths, "./vendor")
}

func TestBuildSearchPathsIncludesStdlibWhenPresent(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { require.NoError(t, os.Chdir(wd)) }()
	require.NoError(t, os.Chdir(dir))
	require.NoError(t, os.Mkdir("stdlib", 0o755))

	t.Setenv("VEGA_PATH", "")
	paths := buildSearchPaths(nil)
	assert.Contains(t, paths, "./stdlib")
}

func TestRootCommandCompilesGivenSourceFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.vega")
	require.NoError(t, os.WriteFile(src, []byte(`fn main() { print("hi"); }`), 0o644))

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{src})

	require.NoError(t, cmd.Execute())
	_, err := os.Stat(filepath.Join(dir, "main.vgb"))
	require.NoError(t, err)
}

func TestRootCommandReturnsErrorOnCompileFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.vega")
	require.NoError(t, os.WriteFile(src, []byte(`fn main( { }`), 0o644))

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{src})

	err := cmd.Execute()
	assert.Error(t, err)
}
