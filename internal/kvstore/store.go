// Package kvstore provides the small key-value persistence layer used by the
// persisted vault mode: string keys, opaque byte values, an enforced size
// quota, and durable writes.
package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned when a value does not fit in the store's
	// quota. The write is rejected and the previous value stays intact.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Store is a durable key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set writes the value for key, replacing any previous value. Returns
	// ErrQuotaExceeded when the value does not fit.
	Set(key string, value []byte) error
	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string) error
}

// validateKey rejects keys that cannot be used as a file name.
func validateKey(key string) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("invalid key %q", key)
		}
	}
	if key[0] == '.' {
		return fmt.Errorf("invalid key %q", key)
	}
	return nil
}

func checkQuota(maxBytes int64, value []byte) error {
	if maxBytes > 0 && int64(len(value)) > maxBytes {
		return fmt.Errorf("%w: %d bytes over the %d byte limit", ErrQuotaExceeded, int64(len(value))-maxBytes, maxBytes)
	}
	return nil
}
