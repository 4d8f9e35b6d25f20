package accum

import "sync"

// Policy decides what happens when a key is inserted twice
type Policy int

const (
	// FirstWriteWins keeps the value stored first and ignores later inserts
	FirstWriteWins Policy = iota
	// LastWriteWins replaces the stored value on every insert
	LastWriteWins
)

// OrderedMap is an identity-keyed merge map that remembers first insertion order.
// Overwriting a key keeps its original position.
type OrderedMap[V any] struct {
	mu     sync.RWMutex
	policy Policy
	order  []string
	values map[string]V
}

// NewOrderedMap creates an empty map with the given overwrite policy
func NewOrderedMap[V any](policy Policy) *OrderedMap[V] {
	return &OrderedMap[V]{
		policy: policy,
		values: make(map[string]V),
	}
}

// Put inserts or updates a value according to the map's policy.
// It reports whether the value was stored.
func (m *OrderedMap[V]) Put(key string, value V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.values[key]; exists {
		if m.policy == FirstWriteWins {
			return false
		}
		m.values[key] = value
		return true
	}

	m.order = append(m.order, key)
	m.values[key] = value
	return true
}

// Update applies fn to an existing value under the lock.
// It returns false if the key is absent.
func (m *OrderedMap[V]) Update(key string, fn func(V) V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.values[key]
	if !ok {
		return false
	}
	m.values[key] = fn(v)
	return true
}

// Get returns the value stored under key
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of distinct keys
func (m *OrderedMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Keys returns the keys in first insertion order
func (m *OrderedMap[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...)
}

// Values returns the values in first insertion order
func (m *OrderedMap[V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]V, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, m.values[k])
	}
	return out
}
