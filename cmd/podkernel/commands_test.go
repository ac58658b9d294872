package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBuildPathUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, "kernels", "mykernel")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	path, err := normalizeBuildPath(dir)
	require.NoError(t, err)
	assert.Equal(t, "~/kernels/mykernel", path)
}

func TestNormalizeBuildPathOutsideHome(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	outside := t.TempDir()

	path, err := normalizeBuildPath(outside)
	require.NoError(t, err)
	assert.Equal(t, outside, path)
}
