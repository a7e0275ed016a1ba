// Package redis implements the cache contract on a Redis server. Records are
// stored under prefix+key with Redis-native expiry from the effective TTL,
// so most expired entries vanish server-side; the record's own expiry is
// still checked on read to cover clock drift between writers.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fraware/artifactcache/backend"
	"github.com/fraware/artifactcache/internal/wire"
)

type Redis struct {
	rdb         goredis.UniversalClient
	prefix      string
	defaultTTL  time.Duration
	codec       wire.Codec
	maxRecord   int
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	// Client, when set, is used as-is and Host/Port/DB/Password are ignored.
	Client goredis.UniversalClient
	// CloseClient true only if this backend exclusively owns the client.
	CloseClient bool

	Host     string
	Port     int
	DB       int
	Password string

	// Prefix namespaces every key. Clear only touches this prefix.
	Prefix string
	// DefaultTTL applies to entries without an expiry. 0 = no expiry.
	DefaultTTL time.Duration
	// Codec selects record serialization; 0 = msgpack.
	Codec wire.Codec
	// MaxRecordBytes bounds record bodies read back. 0 = unlimited.
	MaxRecordBytes int
}

// New builds the backend. The client connects lazily; an unreachable server
// surfaces as per-operation errors, not as a construction failure.
func New(cfg Config) (*Redis, error) {
	rdb := cfg.Client
	closeClient := cfg.CloseClient
	if rdb == nil {
		if cfg.Host == "" {
			return nil, errors.New("redis backend: host is required")
		}
		if cfg.Port == 0 {
			return nil, errors.New("redis backend: port is required")
		}
		rdb = goredis.NewClient(&goredis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			DB:       cfg.DB,
			Password: cfg.Password,
		})
		closeClient = true
	}
	return &Redis{
		rdb:         rdb,
		prefix:      cfg.Prefix,
		defaultTTL:  cfg.DefaultTTL,
		codec:       cfg.Codec,
		maxRecord:   cfg.MaxRecordBytes,
		closeClient: closeClient,
	}, nil
}

func (b *Redis) Name() string { return "redis" }

func (b *Redis) key(key string) string { return b.prefix + key }

func (b *Redis) Get(ctx context.Context, key string) (*backend.Entry, bool, error) {
	k := b.key(key)
	raw, err := b.rdb.Get(ctx, k).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	e, err := backend.DecodeRecord(raw, b.maxRecord)
	if err != nil {
		_ = b.rdb.Del(ctx, k).Err() // self-heal corrupt record
		return nil, false, nil
	}
	if e.Expired() {
		_, _ = b.Delete(ctx, key) // lazy eviction
		return nil, false, nil
	}
	return e, true, nil
}

func (b *Redis) Set(ctx context.Context, e *backend.Entry) (bool, error) {
	ttl, ok := e.TTL(b.defaultTTL)
	if !ok {
		return false, nil // already expired; reject without side effects
	}
	raw, err := backend.EncodeRecord(b.codec, e)
	if err != nil {
		return false, err
	}
	if ttl < 0 {
		ttl = 0 // no expiry
	}
	if err := b.rdb.Set(ctx, b.key(e.Key), raw, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := b.rdb.Del(ctx, b.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := b.rdb.Exists(ctx, b.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes every key under the configured prefix and nothing else, even
// when other namespaces share the server.
func (b *Redis) Clear(ctx context.Context) (bool, error) {
	iter := b.rdb.Scan(ctx, 0, b.prefix+"*", 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := b.rdb.Del(ctx, batch...).Err(); err != nil {
				return false, err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return false, err
	}
	if len(batch) > 0 {
		if err := b.rdb.Del(ctx, batch...).Err(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (b *Redis) Stats(ctx context.Context) backend.Stats {
	count := 0
	iter := b.rdb.Scan(ctx, 0, b.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return backend.Stats{"backend": b.Name(), "error": err.Error()}
	}
	return backend.Stats{
		"backend":    b.Name(),
		"prefix":     b.prefix,
		"total_keys": count,
	}
}

// Close releases the underlying client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (b *Redis) Close(context.Context) error {
	if b.closeClient {
		if err := b.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
