package artifactcache

import "fmt"

// BackendConfigError reports a backend definition that could not be turned
// into a running backend: a missing required field or a failing constructor.
// The manager logs it and skips the backend rather than failing startup.
type BackendConfigError struct {
	Type  string // configured backend type ("local", "kv", "object", "memory")
	Index int    // position in the backends list
	Err   error
}

func (e *BackendConfigError) Error() string {
	return fmt.Sprintf("artifactcache: backend %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *BackendConfigError) Unwrap() error { return e.Err }
