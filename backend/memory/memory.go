// Package memory implements the cache contract in-process on top of
// Ristretto. Entries carry per-entry TTLs; eviction under memory pressure is
// cost-based with cost = encoded record size. The store is exclusively owned
// by its backend, so Clear drops everything it holds. Intended for tests and
// single-process runs where a warm cache need not outlive the process.
package memory

import (
	"context"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/fraware/artifactcache/backend"
	"github.com/fraware/artifactcache/internal/wire"
)

type Memory struct {
	c          *rc.Cache
	defaultTTL time.Duration
	codec      wire.Codec
	maxRecord  int
}

var _ backend.Backend = (*Memory)(nil)

type Config struct {
	// MaxBytes caps the total cost (encoded record bytes) held. 0 => 256 MiB.
	MaxBytes int64
	// DefaultTTL applies to entries without an expiry. 0 = keep until evicted.
	DefaultTTL time.Duration
	// Codec selects record serialization; 0 = msgpack.
	Codec wire.Codec
	// MaxRecordBytes bounds record bodies read back. 0 = unlimited.
	MaxRecordBytes int
}

func New(cfg Config) (*Memory, error) {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 256 << 20
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: 1 << 16,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{
		c:          c,
		defaultTTL: cfg.DefaultTTL,
		codec:      cfg.Codec,
		maxRecord:  cfg.MaxRecordBytes,
	}, nil
}

func (b *Memory) Name() string { return "memory" }

func (b *Memory) Get(_ context.Context, key string) (*backend.Entry, bool, error) {
	v, ok := b.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, _ := v.([]byte)
	if raw == nil {
		b.c.Del(key) // self-heal unexpected entry shape
		return nil, false, nil
	}
	e, err := backend.DecodeRecord(raw, b.maxRecord)
	if err != nil {
		b.c.Del(key)
		return nil, false, nil
	}
	if e.Expired() {
		b.c.Del(key) // lazy eviction
		return nil, false, nil
	}
	return e, true, nil
}

func (b *Memory) Set(_ context.Context, e *backend.Entry) (bool, error) {
	ttl, ok := e.TTL(b.defaultTTL)
	if !ok {
		return false, nil // already expired; reject without side effects
	}
	raw, err := backend.EncodeRecord(b.codec, e)
	if err != nil {
		return false, err
	}
	accepted := b.c.SetWithTTL(e.Key, raw, int64(len(raw)), ttl)
	// make the write visible to an immediate Get
	b.c.Wait()
	return accepted, nil
}

func (b *Memory) Delete(_ context.Context, key string) (bool, error) {
	_, existed := b.c.Get(key)
	b.c.Del(key)
	return existed, nil
}

func (b *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := b.Get(ctx, key)
	return ok, err
}

func (b *Memory) Clear(_ context.Context) (bool, error) {
	b.c.Clear()
	return true, nil
}

func (b *Memory) Stats(_ context.Context) backend.Stats {
	m := b.c.Metrics
	return backend.Stats{
		"backend":    b.Name(),
		"hits":       m.Hits(),
		"misses":     m.Misses(),
		"keys_added": m.KeysAdded(),
		"cost_added": m.CostAdded(),
	}
}

func (b *Memory) Close(context.Context) error {
	b.c.Wait()
	b.c.Close()
	return nil
}
