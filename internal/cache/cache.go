// Package cache keeps fetched feed documents between runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store holds raw documents keyed by Key
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a feed URL
func Key(feedURL string) string {
	hash := sha256.Sum256([]byte(feedURL))
	return "popimport:v1:" + hex.EncodeToString(hash[:])
}
