package kernelspec

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), testLogger())
}

func writeRawSpec(t *testing.T, root, id string, body []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, id), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, id, SpecFilename), body, 0o644))
}

func TestRootFor(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	linux, err := RootFor("linux")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "jupyter", "kernels"), linux)

	darwin, err := RootFor("darwin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Library", "Jupyter", "kernels"), darwin)

	t.Setenv("APPDATA", filepath.Join("C:", "Users", "test", "AppData", "Roaming"))
	windows, err := RootFor("windows")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("C:", "Users", "test", "AppData", "Roaming", "jupyter", "kernels"), windows)
}

func TestRootForUnsupported(t *testing.T) {
	_, err := RootFor("plan9")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestRootForCurrentPlatform(t *testing.T) {
	root, err := RootFor(runtime.GOOS)
	if err != nil {
		t.Skipf("unsupported platform %s", runtime.GOOS)
	}
	assert.True(t, filepath.IsAbs(root))
}

func TestListEmptyStore(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "does-not-exist"), testLogger())
	specs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestListFiltersUnmanaged(t *testing.T) {
	st := testStore(t)

	_, _, created, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)
	require.True(t, created)

	// A kernelspec installed by some other tool: valid, but no podkernel
	// metadata.
	writeRawSpec(t, st.Root(), "plain-python", []byte(`{
		"argv": ["python", "-m", "ipykernel", "-f", "{connection_file}"],
		"display_name": "Plain Python",
		"language": "python"
	}`))

	// A stray file at the top level, and a dir without kernel.json.
	require.NoError(t, os.WriteFile(filepath.Join(st.Root(), "README"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(st.Root(), "empty-dir"), 0o755))

	specs, err := st.List()
	require.NoError(t, err)
	require.Len(t, specs, 1)
	for id, spec := range specs {
		assert.NoError(t, ValidateKernelID(id))
		assert.Equal(t, "Python 3.11", spec.DisplayName)
	}
}

func TestReadNotFound(t *testing.T) {
	st := testStore(t)
	_, err := st.Read("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadCorruptSpec(t *testing.T) {
	st := testStore(t)
	require.NoError(t, os.MkdirAll(filepath.Join(st.Root(), "broken"), 0o755))
	_, err := st.Read("broken")
	assert.ErrorIs(t, err, ErrCorruptSpec)
}

func TestReadUnmanagedIsNotFound(t *testing.T) {
	st := testStore(t)
	writeRawSpec(t, st.Root(), "other", []byte(`{"argv":["x"],"display_name":"x","language":"x"}`))
	_, err := st.Read("other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadRoundTrip(t *testing.T) {
	st := testStore(t)
	id, installed, _, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)

	spec, err := st.Read(id)
	require.NoError(t, err)
	assert.Equal(t, installed.Argv, spec.Argv)
	assert.Equal(t, InterruptModeMessage, spec.InterruptMode)

	meta, err := spec.PodKernelMetadata()
	require.NoError(t, err)
	assert.Equal(t, "python:3.11", meta.ImageName)
	assert.Equal(t, []string{"--network", "host"}, meta.RunArgs)
	assert.Equal(t, []string{"python", "-m", "ipykernel"}, meta.CmdArgs)
	assert.Empty(t, meta.BuildArgs)
}

func TestDeleteDryRun(t *testing.T) {
	st := testStore(t)
	id, _, _, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)

	require.NoError(t, st.Delete(id, false))
	_, err = st.Read(id)
	assert.NoError(t, err, "dry run must not mutate the store")
}

func TestDelete(t *testing.T) {
	st := testStore(t)
	id, _, _, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)

	require.NoError(t, st.Delete(id, true))
	_, err = st.Read(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	st := testStore(t)
	assert.ErrorIs(t, st.Delete("missing", true), ErrNotFound)
}

func TestDeleteRefusesUnmanaged(t *testing.T) {
	st := testStore(t)
	writeRawSpec(t, st.Root(), "other", []byte(`{"argv":["x"],"display_name":"x","language":"x"}`))
	assert.ErrorIs(t, st.Delete("other", true), ErrNotFound)
}

func TestInstallSuffixesOnCollision(t *testing.T) {
	st := testStore(t)
	spec := &KernelSpec{
		Argv:        []string{"podkernel", "start", "x", ConnectionFilePlaceholder},
		DisplayName: "X",
		Language:    "python",
	}

	first, err := st.Install(spec, "mykernel")
	require.NoError(t, err)
	assert.Equal(t, "mykernel", first)

	second, err := st.Install(spec, "mykernel")
	require.NoError(t, err)
	assert.Equal(t, "mykernel_0", second)

	third, err := st.Install(spec, "mykernel")
	require.NoError(t, err)
	assert.Equal(t, "mykernel_1", third)
}

func TestInstallRejectsInvalidID(t *testing.T) {
	st := testStore(t)
	_, err := st.Install(&KernelSpec{}, "my kernel")
	assert.ErrorIs(t, err, ErrInvalidKernelID)
}

func TestInstallDeterministicIdempotent(t *testing.T) {
	st := testStore(t)

	id1, _, created1, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)
	assert.True(t, created1)

	id2, existing, created2, err := st.InstallDeterministic(testMeta(), "ignored on reinstall", "python")
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, id1, id2)
	assert.Equal(t, "Python 3.11", existing.DisplayName)

	entries, err := os.ReadDir(st.Root())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "second install must not create another dir")
}

func TestInstallDeterministicSpecFile(t *testing.T) {
	st := testStore(t)
	id, _, _, err := st.InstallDeterministic(testMeta(), "Python 3.11", "python")
	require.NoError(t, err)

	data, err := os.ReadFile(st.SpecPath(id))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "argv")
	assert.Contains(t, raw, "metadata")

	spec, err := st.Read(id)
	require.NoError(t, err)
	require.Len(t, spec.Argv, 4)
	assert.Equal(t, "podkernel", spec.Argv[0])
	assert.Equal(t, "start", spec.Argv[1])
	assert.Equal(t, id, spec.Argv[2])
	assert.Equal(t, ConnectionFilePlaceholder, spec.Argv[3])
}
