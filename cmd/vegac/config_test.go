package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFindsFileInStartDir(t *testing.T) {
	dir := t.TempDir()
	yaml := "output: build/out.vgb\nverbose: true\nsearch_paths:\n  - ./vendor\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".vegac.yaml"), []byte(yaml), 0o644))

	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "build/out.vgb", cfg.Output)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, []string{"./vendor"}, cfg.SearchPaths)
}

func TestLoadConfigWalksUpwardToParentDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".vegac.yaml"), []byte("watch: true\n"), 0o644))
	child := filepath.Join(root, "src")
	require.NoError(t, os.Mkdir(child, 0o755))

	cfg, err := loadConfig(child)
	require.NoError(t, err)
	assert.True(t, cfg.Watch)
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, fileConfig{}, cfg)
}
