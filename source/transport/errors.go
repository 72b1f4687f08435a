package transport

import "errors"

// errIO mirrors session.ErrIOError without importing the session package
// (transport sits below session in the dependency graph); callers that need
// the taxonomy in spec.md §7 wrap this at the session layer.
var errIO = errors.New("transport: io error")
