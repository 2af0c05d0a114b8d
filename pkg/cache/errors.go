package cache

import "errors"

// Sentinel errors for cache backends.
var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown cache backend")

	// ErrMissingConfig is returned by Open when a backend lacks its address.
	ErrMissingConfig = errors.New("missing cache configuration")
)
