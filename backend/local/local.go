// Package local implements the cache contract on the local filesystem: one
// file per entry under a configured cache directory. File names are the
// sha256 digest of the logical key, so arbitrary keys never touch path
// semantics. The cache directory may be shared across processes; there is no
// file locking, concurrent writers to one key race last-write-wins.
package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/fraware/artifactcache/backend"
	"github.com/fraware/artifactcache/internal/wire"
)

const fileExt = ".cache"

type Local struct {
	dir        string
	defaultTTL time.Duration
	codec      wire.Codec
	maxRecord  int
}

var _ backend.Backend = (*Local)(nil)

type Config struct {
	// Dir is the cache directory; created on construction. Required.
	Dir string
	// DefaultTTL applies to entries without an expiry. 0 = keep forever.
	DefaultTTL time.Duration
	// Codec selects record serialization; 0 = msgpack.
	Codec wire.Codec
	// MaxRecordBytes bounds record bodies read back from disk. 0 = unlimited.
	MaxRecordBytes int
}

func New(cfg Config) (*Local, error) {
	if cfg.Dir == "" {
		return nil, errors.New("local backend: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{
		dir:        cfg.Dir,
		defaultTTL: cfg.DefaultTTL,
		codec:      cfg.Codec,
		maxRecord:  cfg.MaxRecordBytes,
	}, nil
}

func (b *Local) Name() string { return "local" }

func (b *Local) path(key string) string {
	return filepath.Join(b.dir, digest.SHA256.FromString(key).Encoded()+fileExt)
}

func (b *Local) load(key string) (*backend.Entry, bool, error) {
	p := b.path(key)
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	e, err := backend.DecodeRecord(raw, b.maxRecord)
	if err != nil {
		_ = os.Remove(p) // self-heal corrupt record
		return nil, false, nil
	}
	if e.Expired() {
		_ = os.Remove(p) // lazy eviction
		return nil, false, nil
	}
	return e, true, nil
}

func (b *Local) Get(_ context.Context, key string) (*backend.Entry, bool, error) {
	return b.load(key)
}

func (b *Local) Set(_ context.Context, e *backend.Entry) (bool, error) {
	ttl, ok := e.TTL(b.defaultTTL)
	if !ok {
		return false, nil // already expired; reject without side effects
	}
	stored := *e
	if stored.ExpiresAt.IsZero() && ttl > 0 {
		// the filesystem has no native expiry; stamp the default TTL into
		// the stored record so reads can enforce it
		stored.ExpiresAt = time.Now().Add(ttl)
	}
	raw, err := backend.EncodeRecord(b.codec, &stored)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(b.path(e.Key), raw, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Local) Delete(_ context.Context, key string) (bool, error) {
	err := os.Remove(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Exists decodes the record to honor expiry; a stat alone would report
// expired entries as live.
func (b *Local) Exists(_ context.Context, key string) (bool, error) {
	_, ok, err := b.load(key)
	return ok, err
}

func (b *Local) Clear(_ context.Context) (bool, error) {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*"+fileExt))
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	return true, nil
}

func (b *Local) Stats(_ context.Context) backend.Stats {
	matches, err := filepath.Glob(filepath.Join(b.dir, "*"+fileExt))
	if err != nil {
		return backend.Stats{"backend": b.Name(), "error": err.Error()}
	}
	var total int64
	count := 0
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		total += fi.Size()
		count++
	}
	return backend.Stats{
		"backend":          b.Name(),
		"cache_dir":        b.dir,
		"total_files":      count,
		"total_size_bytes": total,
	}
}

func (b *Local) Close(context.Context) error { return nil }
