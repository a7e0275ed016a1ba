package artifactcache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	be "github.com/fraware/artifactcache/backend"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestDirectoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Backends: []be.Backend{newMemBackend("a")}})

	src := filepath.Join(t.TempDir(), "bindings")
	files := map[string]string{
		"module.cc":           "#include <pybind11/pybind11.h>\n",
		"gen/wrapper.py":      "import zlib\n",
		"gen/deep/notes.txt":  "generated - do not edit\n",
		"empty_hint/.gitkeep": "",
	}
	writeTree(t, src, files)

	key := BindingKey("zlib", "pybind11", "abc123")
	require.True(t, CacheDirectory(ctx, m, src, key))

	// the entry carries archive metadata and a day-long expiry
	e, ok := m.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "directory_archive", e.Metadata["type"])
	assert.Equal(t, src, e.Metadata["original_path"])
	require.False(t, e.ExpiresAt.IsZero())

	// restore under a fresh parent; the archive's top-level entry supplies
	// the directory name
	parent := t.TempDir()
	target := filepath.Join(parent, "bindings")
	require.True(t, RestoreDirectory(ctx, m, key, target))

	assert.Equal(t, files, readTree(t, filepath.Join(parent, "bindings")))
}

func TestRestoreExtractsIntoParentOfTarget(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Backends: []be.Backend{newMemBackend("a")}})

	src := filepath.Join(t.TempDir(), "out")
	writeTree(t, src, map[string]string{"bin": "ELF"})
	require.True(t, CacheDirectory(ctx, m, src, "k"))

	// target base differs from the archived directory name: the tree lands
	// next to target, under the archive's own top-level name
	parent := t.TempDir()
	target := filepath.Join(parent, "restored")
	require.True(t, RestoreDirectory(ctx, m, "k", target))

	assert.FileExists(t, filepath.Join(parent, "out", "bin"))
	assert.DirExists(t, target, "target itself is still created")
}

func TestRestoreMissReturnsFalse(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Backends: []be.Backend{newMemBackend("a")}})

	target := filepath.Join(t.TempDir(), "never")
	assert.False(t, RestoreDirectory(ctx, m, "missing", target))
	assert.NoDirExists(t, target, "a miss must not create the target")
}

func TestCacheDirectoryMissingSource(t *testing.T) {
	ctx := context.Background()
	m := New(Options{Backends: []be.Backend{newMemBackend("a")}})

	assert.False(t, CacheDirectory(ctx, m, filepath.Join(t.TempDir(), "absent"), "k"))
	_, ok := m.Get(ctx, "k")
	assert.False(t, ok, "failed pack must not store anything")
}

func TestCacheDirectoryFailsWithNoBackends(t *testing.T) {
	ctx := context.Background()
	m := New(Options{})

	src := t.TempDir()
	writeTree(t, src, map[string]string{"f": "x"})
	assert.False(t, CacheDirectory(ctx, m, src, "k"))
}
