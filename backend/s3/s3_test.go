package s3

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{})
	require.Error(t, err)

	_, err = New(ctx, Config{Bucket: "b"})
	require.Error(t, err, "region is required without an injected client")

	b, err := New(ctx, Config{Bucket: "b", Region: "eu-west-1", Prefix: "ac/"})
	require.NoError(t, err, "construction is lazy and must not dial")
	assert.Equal(t, "s3", b.Name())
	assert.Equal(t, "ac/k", b.key("k"))
}

func TestExpiredMeta(t *testing.T) {
	past := time.Now().Add(-time.Minute).Format(time.RFC3339Nano)
	future := time.Now().Add(time.Minute).Format(time.RFC3339Nano)

	assert.False(t, expiredMeta(nil))
	assert.False(t, expiredMeta(map[string]string{}))
	assert.False(t, expiredMeta(map[string]string{metaExpiresAt: ""}))
	assert.False(t, expiredMeta(map[string]string{metaExpiresAt: future}))
	assert.True(t, expiredMeta(map[string]string{metaExpiresAt: past}))
	// unparseable metadata defers to the record's own expiry check
	assert.False(t, expiredMeta(map[string]string{metaExpiresAt: "soon"}))
}
