package kvstore

import "sync"

// MemStore is an in-memory Store with the same quota behavior as FileStore.
// Nothing survives a restart; it exists for tests and throwaway vaults.
type MemStore struct {
	maxBytes int64

	mu     sync.Mutex
	values map[string][]byte
}

// NewMemStore returns an empty in-memory store. maxBytes limits the size of
// any single value; 0 means unlimited.
func NewMemStore(maxBytes int64) *MemStore {
	return &MemStore{maxBytes: maxBytes, values: make(map[string][]byte)}
}

// Get returns the value for key, or ErrNotFound.
func (s *MemStore) Get(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Set writes the value for key.
func (s *MemStore) Set(key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := checkQuota(s.maxBytes, value); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.values[key] = v
	return nil
}

// Delete removes key.
func (s *MemStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
