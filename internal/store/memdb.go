package store

import (
	"sync"
)

// MemDB is an in-memory DB used by tests and by the development mode of the
// serve command when no db path is configured.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailPuts makes every Put fail; tests use it to exercise the
	// secondary-index failure policy.
	FailPuts error
}

var _ DB = (*MemDB)(nil)

// NewMemDB creates an empty in-memory store.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

// Get returns the value for key in namespace, or ErrNotFound.
func (m *MemDB) Get(namespace, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[string(nsKey(namespace, key))]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores value under key in namespace.
func (m *MemDB) Put(namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPuts != nil {
		return m.FailPuts
	}
	m.data[string(nsKey(namespace, key))] = append([]byte(nil), value...)
	return nil
}

// Delete removes key from namespace.
func (m *MemDB) Delete(namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(nsKey(namespace, key)))
	return nil
}

// Iterate walks all entries of a namespace.
func (m *MemDB) Iterate(namespace string, fn func(key string, value []byte) bool) error {
	prefix := string(nsPrefix(namespace))

	// Snapshot under the read lock so the callback may mutate the store.
	m.mu.RLock()
	type pair struct {
		key   string
		value []byte
	}
	pairs := make([]pair, 0, len(m.data))
	for k, v := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			pairs = append(pairs, pair{key: k[len(prefix):], value: append([]byte(nil), v...)})
		}
	}
	m.mu.RUnlock()

	for _, p := range pairs {
		if !fn(p.key, p.value) {
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemDB) Close() error {
	return nil
}

// Len returns the number of keys in a namespace. Test helper.
func (m *MemDB) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := string(nsPrefix(namespace))
	n := 0
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
