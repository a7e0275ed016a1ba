package artifactcache

import (
	"context"
	"time"

	be "github.com/fraware/artifactcache/backend"
)

// Entry is re-exported for callers that only import the root package.
type Entry = be.Entry

// BackendStats aggregates every backend's stats snapshot. Never carries an
// error; unreachable backends contribute an error-field entry instead.
type BackendStats struct {
	Backends      []be.Stats `json:"backends"`
	TotalBackends int        `json:"total_backends"`
}

// Manager presents one logical cache fronting zero or more backends in
// priority order. All operations are best-effort and never return errors:
// per-backend failures are logged and degrade the result instead of failing
// it. With zero backends every operation is a no-op reporting absent/false.
type Manager interface {
	// Get queries backends in priority order and returns the first hit.
	// A backend error is logged and the next backend is tried.
	Get(ctx context.Context, key string) (*Entry, bool)

	// Set builds one immutable entry (created now; expiry = now+ttl when
	// ttl > 0) and fans it out to every backend. Returns true when at least
	// one backend accepted the write.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration, metadata map[string]any) bool

	// Delete fans out to all backends; true if any backend removed the key.
	Delete(ctx context.Context, key string) bool

	// Exists reports whether any backend holds a live entry for the key.
	Exists(ctx context.Context, key string) bool

	// Clear fans out to all backends; true only if every backend cleared.
	Clear(ctx context.Context) bool

	// Stats aggregates per-backend stats. Never fails.
	Stats(ctx context.Context) BackendStats

	// Close releases every backend.
	Close(ctx context.Context) error
}

// Options tune the manager. A nil/empty Backends list is allowed and yields
// a functioning manager whose operations are no-ops.
type Options struct {
	// Backends in priority order: first is queried first on reads.
	Backends []be.Backend

	Logger Logger // if nil, NopLogger is used

	// PromoteOnHit writes a fallback hit back into the backends ahead of the
	// one that served it. Off by default: fallback reads do not backfill.
	PromoteOnHit bool
}

func New(opts Options) Manager {
	return newManager(opts)
}
