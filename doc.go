// Package artifactcache implements a layered cache for opaque build
// artifacts: compiled outputs, generated binding code, packed directory
// trees. One Manager fronts an ordered list of storage backends; reads fall
// back through the list and return the first hit, writes fan out to every
// backend and succeed when at least one write lands.
//
// Components:
//   - backend.Backend: the storage contract (local disk, Redis, S3, memory).
//   - backend.Entry: the stored unit with creation/expiry timestamps and
//     free-form metadata. Expired entries are evicted lazily on read.
//   - codec + internal/wire: self-describing record serialization
//     (msgpack by default, CBOR or JSON by configuration).
//   - key derivation: deterministic keys over build/binding/dependency/file
//     tuples, plus a streaming file content hash.
//   - directory archiver: packs a directory tree into one tar.gz artifact
//     and restores it from cache.
//
// Typical flow:
//
//	cfg, _ := artifactcache.LoadConfig("cache.yaml")
//	m, _ := artifactcache.FromConfig(ctx, cfg, logger)
//	key := artifactcache.BuildKey("zlib", commit, "release")
//	if e, ok := m.Get(ctx, key); ok {
//		use(e.Payload)
//	} else {
//		out := build()
//		m.Set(ctx, key, out, time.Hour, nil)
//	}
//
// Manager operations never return errors: a failing backend is logged and
// degrades the result (a miss, a partial write) instead of failing it.
package artifactcache
