package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraware/artifactcache/backend"
)

func newTestBackend(t *testing.T, defaultTTL time.Duration) *Memory {
	t.Helper()
	b, err := New(Config{DefaultTTL: defaultTTL})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, 0)

	e := backend.NewEntry("binding:zlib:pybind11:abc", []byte("generated"), time.Hour, nil)
	ok, err := b.Set(ctx, e)
	require.NoError(t, err)
	require.True(t, ok)

	got, ok, err := b.Get(ctx, e.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("generated"), got.Payload)
}

func TestEntryTTLExpires(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, 0)

	ok, err := b.Set(ctx, backend.NewEntry("k", []byte("v"), 30*time.Millisecond, nil))
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRejectsAlreadyExpiredWrite(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, 0)

	ok, err := b.Set(ctx, backend.NewEntry("k", []byte("v"), -time.Second, nil))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, 0)

	for _, k := range []string{"a", "b"} {
		ok, err := b.Set(ctx, backend.NewEntry(k, []byte(k), 0, nil))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := b.Clear(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t, 0)

	_, err := b.Set(ctx, backend.NewEntry("k", []byte("v"), 0, nil))
	require.NoError(t, err)
	_, _, err = b.Get(ctx, "k")
	require.NoError(t, err)

	st := b.Stats(ctx)
	assert.Equal(t, "memory", st["backend"])
	assert.Contains(t, st, "hits")
	assert.Contains(t, st, "keys_added")
}
