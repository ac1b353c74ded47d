package repository

import "errors"

var (
	// ErrCacheMiss is returned by cache repositories when a key is absent or expired.
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrSessionUnavailable is returned when a remote session cannot be connected to.
	ErrSessionUnavailable = errors.New("browser session unavailable")
)
