package cache

import "errors"

var (
	// ErrDisabled indicates Redis is disabled in configuration.
	ErrDisabled = errors.New("cache: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("cache: connection failed")
)
