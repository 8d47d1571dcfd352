// Package cache provides a Redis-backed byte cache.
//
// The weather client uses it to share snapshots between instances and to
// keep a last-known value for stale fallback across restarts. When Redis
// is disabled the weather package's in-memory cache is used instead.
package cache
