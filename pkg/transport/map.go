package transport

import "sync"

// peers is a concurrent-safe set of connected workers.
type peers[K comparable, V any] struct {
	m  map[K]V
	mu sync.Mutex
}

func newPeers[K comparable, V any]() *peers[K, V] { return &peers[K, V]{m: make(map[K]V, 4)} }

func (m *peers[K, V]) Put(key K, v V)    { m.mu.Lock(); m.m[key] = v; m.mu.Unlock() }
func (m *peers[K, _]) RemoveByKey(key K) { m.mu.Lock(); delete(m.m, key); m.mu.Unlock() }
func (m *peers[_, _]) Len() int          { m.mu.Lock(); defer m.mu.Unlock(); return len(m.m) }

// ForEach processes every element with the provided callback function.
func (m *peers[_, V]) ForEach(fn func(v V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.m {
		fn(v)
	}
}
