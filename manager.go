package artifactcache

import (
	"context"
	"time"

	be "github.com/fraware/artifactcache/backend"
)

type manager struct {
	backends []be.Backend
	log      Logger
	promote  bool
}

func newManager(opts Options) *manager {
	return &manager{
		backends: opts.Backends,
		log:      coalesce[Logger](opts.Logger, NopLogger{}),
		promote:  opts.PromoteOnHit,
	}
}

func (m *manager) Get(ctx context.Context, key string) (*Entry, bool) {
	for i, b := range m.backends {
		e, ok, err := b.Get(ctx, key)
		if err != nil {
			m.log.Warn("backend get failed", Fields{"backend": b.Name(), "key": key, "err": err})
			continue
		}
		if !ok {
			continue
		}
		m.log.Debug("cache hit", Fields{"backend": b.Name(), "key": key})
		if m.promote && i > 0 {
			m.promoteHit(ctx, key, e, m.backends[:i])
		}
		return e, true
	}
	return nil, false
}

// promoteHit copies a fallback hit into the backends that missed ahead of the
// serving one. Best effort; failures are logged and ignored.
func (m *manager) promoteHit(ctx context.Context, key string, e *Entry, ahead []be.Backend) {
	for _, b := range ahead {
		if ok, err := b.Set(ctx, e); err != nil || !ok {
			m.log.Debug("promote on hit skipped", Fields{"backend": b.Name(), "key": key, "err": err})
		}
	}
}

func (m *manager) Set(ctx context.Context, key string, data []byte, ttl time.Duration, metadata map[string]any) bool {
	e := be.NewEntry(key, data, ttl, metadata)
	success := false
	for _, b := range m.backends {
		ok, err := b.Set(ctx, e)
		if err != nil {
			m.log.Warn("backend set failed", Fields{"backend": b.Name(), "key": key, "err": err})
			continue
		}
		if ok {
			success = true
		} else {
			m.log.Debug("backend rejected write", Fields{"backend": b.Name(), "key": key})
		}
	}
	return success
}

func (m *manager) Delete(ctx context.Context, key string) bool {
	success := false
	for _, b := range m.backends {
		ok, err := b.Delete(ctx, key)
		if err != nil {
			m.log.Warn("backend delete failed", Fields{"backend": b.Name(), "key": key, "err": err})
			continue
		}
		if ok {
			success = true
		}
	}
	return success
}

func (m *manager) Exists(ctx context.Context, key string) bool {
	for _, b := range m.backends {
		ok, err := b.Exists(ctx, key)
		if err != nil {
			m.log.Warn("backend exists failed", Fields{"backend": b.Name(), "key": key, "err": err})
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (m *manager) Clear(ctx context.Context) bool {
	success := true
	for _, b := range m.backends {
		ok, err := b.Clear(ctx)
		if err != nil {
			m.log.Warn("backend clear failed", Fields{"backend": b.Name(), "err": err})
			success = false
			continue
		}
		if !ok {
			success = false
		}
	}
	return success
}

func (m *manager) Stats(ctx context.Context) BackendStats {
	out := BackendStats{
		Backends:      make([]be.Stats, 0, len(m.backends)),
		TotalBackends: len(m.backends),
	}
	for _, b := range m.backends {
		out.Backends = append(out.Backends, b.Stats(ctx))
	}
	return out
}

func (m *manager) Close(ctx context.Context) error {
	var firstErr error
	for _, b := range m.backends {
		if err := b.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
