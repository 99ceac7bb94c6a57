package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores val under key for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Key hashes the given parts into a stable hex key. Parts are length
// prefixed so ("ab", "c") and ("a", "bc") never collide.
func Key(parts ...[]byte) string {
	h := sha256.New()

	var size [8]byte

	for _, p := range parts {
		n := uint64(len(p))
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}

		h.Write(size[:])
		h.Write(p)
	}

	return hex.EncodeToString(h.Sum(nil))
}
