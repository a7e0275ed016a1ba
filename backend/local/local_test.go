package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraware/artifactcache/backend"
)

func newTestBackend(t *testing.T, defaultTTL time.Duration) (*Local, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := New(Config{Dir: dir, DefaultTTL: defaultTTL})
	require.NoError(t, err)
	return b, dir
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, dir := newTestBackend(t, 0)

	e := backend.NewEntry("build:zlib:abc:release", []byte("artifact"), time.Hour, map[string]any{"v": "1"})
	ok, err := b.Set(ctx, e)
	require.NoError(t, err)
	require.True(t, ok)

	// one file, named by key digest, not by the raw key
	files, err := filepath.Glob(filepath.Join(dir, "*.cache"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.NotContains(t, files[0], "zlib")

	got, ok, err := b.Get(ctx, e.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("artifact"), got.Payload)
	assert.Equal(t, int64(len("artifact")), got.SizeBytes)
}

func TestExpiredEntryDeletedOnRead(t *testing.T) {
	ctx := context.Background()
	b, dir := newTestBackend(t, 0)

	e := backend.NewEntry("k", []byte("v"), 30*time.Millisecond, nil)
	ok, err := b.Set(ctx, e)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	files, _ := filepath.Glob(filepath.Join(dir, "*.cache"))
	assert.Empty(t, files, "expired entry file must be removed on read")
}

func TestDefaultTTLAppliesToUnexpiringEntries(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBackend(t, 50*time.Millisecond)

	ok, err := b.Set(ctx, backend.NewEntry("a", []byte("hello"), 0, nil))
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := b.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got.Payload)

	time.Sleep(100 * time.Millisecond)

	_, ok, err = b.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after the backend default TTL")

	ok, err = b.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "exists must not report expired entries")
}

func TestRejectsAlreadyExpiredWrite(t *testing.T) {
	ctx := context.Background()
	b, dir := newTestBackend(t, 0)

	ok, err := b.Set(ctx, backend.NewEntry("k", []byte("v"), -time.Second, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	files, _ := filepath.Glob(filepath.Join(dir, "*.cache"))
	assert.Empty(t, files, "rejected write must leave no file behind")
}

func TestCorruptFileSelfHeals(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBackend(t, 0)

	ok, err := b.Set(ctx, backend.NewEntry("k", []byte("v"), 0, nil))
	require.NoError(t, err)
	require.True(t, ok)

	p := b.path("k")
	require.NoError(t, os.WriteFile(p, []byte("garbage"), 0o644))

	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	_, statErr := os.Stat(p)
	assert.True(t, os.IsNotExist(statErr), "corrupt file must be removed")
}

func TestClearOnlyTouchesCacheFiles(t *testing.T) {
	ctx := context.Background()
	b, dir := newTestBackend(t, 0)

	for _, k := range []string{"a", "b", "c"} {
		ok, err := b.Set(ctx, backend.NewEntry(k, []byte(k), 0, nil))
		require.NoError(t, err)
		require.True(t, ok)
	}
	foreign := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(foreign, []byte("keep me"), 0o644))

	ok, err := b.Clear(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	files, _ := filepath.Glob(filepath.Join(dir, "*.cache"))
	assert.Empty(t, files)
	_, err = os.Stat(foreign)
	assert.NoError(t, err, "clear must not delete files outside its namespace")
}

func TestDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestBackend(t, 0)

	ok, err := b.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Set(ctx, backend.NewEntry("k", []byte("v"), 0, nil))
	require.NoError(t, err)
	ok, err = b.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	b, dir := newTestBackend(t, 0)

	for _, k := range []string{"x", "y"} {
		_, err := b.Set(ctx, backend.NewEntry(k, []byte("0123456789"), 0, nil))
		require.NoError(t, err)
	}

	st := b.Stats(ctx)
	assert.Equal(t, "local", st["backend"])
	assert.Equal(t, dir, st["cache_dir"])
	assert.Equal(t, 2, st["total_files"])
	assert.Greater(t, st["total_size_bytes"].(int64), int64(0))
}
