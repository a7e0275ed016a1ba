// Package backend defines the storage contract the cache manager fans out to.
//
// A Backend stores immutable entries keyed by the caller's logical key and is
// free to namespace that key internally (path hashing, key prefixes); the
// logical key visible to callers never includes the namespace.
//
// Expiry is enforced lazily: a Get that finds an expired entry MUST delete it
// and report a miss. There is no background sweep. Set computes an effective
// TTL from the entry (see Entry.TTL) and MUST reject writes whose effective
// TTL is already non-positive.
//
// Implementations must be safe for concurrent use. Transport errors are
// returned to the manager, which logs them and moves on; deserialization
// problems are handled inside the backend as a self-healing miss (delete the
// corrupt record, report absent).
package backend

import "context"

// Stats is a backend-specific observability snapshot. Implementations never
// fail: when the store is unreachable the map carries an "error" field.
type Stats map[string]any

// Backend is one concrete storage medium implementing the cache contract.
type Backend interface {
	// Name identifies the backend variant in logs and stats ("local",
	// "redis", "s3", "memory").
	Name() string

	// Get returns (entry, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores the entry. Returns ok=false when the write was rejected
	// (entry already expired, or the store refused it).
	Set(ctx context.Context, e *Entry) (bool, error)

	// Delete removes a key. Returns true iff an entry existed and was removed.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether a live (non-expired) entry is present. Cheap
	// where the store allows it; correctness of the expiry check is not
	// optional.
	Exists(ctx context.Context, key string) (bool, error)

	// Clear removes every entry in this backend's namespace, and nothing
	// outside it.
	Clear(ctx context.Context) (bool, error)

	// Stats reports backend-specific counters. Never errors.
	Stats(ctx context.Context) Stats

	// Close releases resources.
	Close(ctx context.Context) error
}
