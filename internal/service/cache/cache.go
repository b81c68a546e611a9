// Package cache holds the small in-process response cache used by the API
// handlers. It is separate from pkg/cache, which backs the news supplier
// with Redis; this one only shaves repeated analysis work off hot symbols.
package cache

import "time"

// BytesCache is a minimal cache API storing raw bytes with TTL. The analysis
// endpoint stores marshaled response envelopes under it.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
