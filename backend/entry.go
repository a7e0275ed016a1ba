package backend

import "time"

// Entry is the stored unit: a logical key, an opaque payload, timestamps and
// free-form metadata. Entries are immutable once constructed; an update is a
// replacement under the same key.
type Entry struct {
	Key       string         `msgpack:"key" cbor:"key" json:"key"`
	Payload   []byte         `msgpack:"payload" cbor:"payload" json:"payload"`
	CreatedAt time.Time      `msgpack:"created_at" cbor:"created_at" json:"created_at"`
	ExpiresAt time.Time      `msgpack:"expires_at" cbor:"expires_at" json:"expires_at"` // zero => never expires
	SizeBytes int64          `msgpack:"size_bytes" cbor:"size_bytes" json:"size_bytes"`
	Metadata  map[string]any `msgpack:"metadata" cbor:"metadata" json:"metadata"`
}

// NewEntry builds an entry created now. SizeBytes is fixed to len(payload) at
// construction and never recomputed. ttl == 0 means no expiry; a negative ttl
// yields an already-expired entry, which every backend rejects on write.
func NewEntry(key string, payload []byte, ttl time.Duration, metadata map[string]any) *Entry {
	now := time.Now()
	e := &Entry{
		Key:       key,
		Payload:   payload,
		CreatedAt: now,
		SizeBytes: int64(len(payload)),
		Metadata:  metadata,
	}
	if ttl != 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// Expired reports whether the entry is past its expiry. An ExpiresAt that is
// not strictly later than CreatedAt marks a malformed entry, which counts as
// already expired.
func (e *Entry) Expired() bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	if !e.ExpiresAt.After(e.CreatedAt) {
		return true
	}
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the duration a backend should keep the entry for.
// With no expiry set, the backend's default TTL applies (0 = unlimited where
// the store supports it). ok=false means the effective TTL is non-positive
// and the write must be rejected.
func (e *Entry) TTL(defaultTTL time.Duration) (ttl time.Duration, ok bool) {
	if e.ExpiresAt.IsZero() {
		return defaultTTL, true
	}
	d := time.Until(e.ExpiresAt)
	if d <= 0 {
		return 0, false
	}
	return d, true
}
