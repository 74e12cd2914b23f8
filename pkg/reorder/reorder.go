// Package reorder restores the order of items that arrive shuffled.
package reorder

import (
	"cmp"
	"container/heap"
)

// Key is a gapless sequence number type.
type Key interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int | ~int32 | ~int64
}

type item[K Key, V any] struct {
	key K
	val V
}

type minHeap[K Key, V any] []item[K, V]

func (h minHeap[K, V]) Len() int           { return len(h) }
func (h minHeap[K, V]) Less(i, j int) bool { return cmp.Less(h[i].key, h[j].key) }
func (h minHeap[K, V]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap[K, V]) Push(x any)        { *h = append(*h, x.(item[K, V])) }
func (h *minHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = item[K, V]{}
	*h = old[:n-1]
	return x
}

// Buffer hands out values strictly by ascending key starting at the
// first key, without gaps. Keys below the cursor or already buffered
// are dropped. Keys marked with Skip are stepped over.
//
// Not safe for concurrent use.
type Buffer[K Key, V any] struct {
	next    K
	items   minHeap[K, V]
	pending map[K]struct{}
	skipped map[K]struct{}
}

func New[K Key, V any](first K) *Buffer[K, V] {
	return &Buffer[K, V]{next: first, pending: map[K]struct{}{}, skipped: map[K]struct{}{}}
}

// Next is the key expected to come out next.
func (b *Buffer[K, V]) Next() K { return b.next }

// Len is the number of buffered values.
func (b *Buffer[K, V]) Len() int { return len(b.items) }

// Min returns the smallest buffered key.
func (b *Buffer[K, V]) Min() (K, bool) {
	if len(b.items) == 0 {
		var zero K
		return zero, false
	}
	return b.items[0].key, true
}

// Push buffers the value, it reports false if the key was dropped as stale
// or duplicate.
func (b *Buffer[K, V]) Push(key K, val V) bool {
	if key < b.next {
		return false
	}
	if _, ok := b.pending[key]; ok {
		return false
	}
	if _, ok := b.skipped[key]; ok {
		return false
	}
	b.pending[key] = struct{}{}
	heap.Push(&b.items, item[K, V]{key: key, val: val})
	return true
}

// Skip marks the key as never coming.
func (b *Buffer[K, V]) Skip(key K) {
	if key < b.next {
		return
	}
	if _, ok := b.pending[key]; ok {
		return
	}
	b.skipped[key] = struct{}{}
}

// SkipTo marks every missing key below the key as never coming.
func (b *Buffer[K, V]) SkipTo(key K) {
	for k := b.next; k < key; k++ {
		b.Skip(k)
	}
}

// Drain releases everything that is in order now.
// The visit func gets each value, skipped keys come with ok == false.
func (b *Buffer[K, V]) Drain(visit func(key K, val V, ok bool)) (n int) {
	for {
		if _, ok := b.skipped[b.next]; ok {
			delete(b.skipped, b.next)
			var zero V
			visit(b.next, zero, false)
			b.next++
			n++
			continue
		}
		if len(b.items) == 0 || b.items[0].key != b.next {
			return n
		}
		it := heap.Pop(&b.items).(item[K, V])
		delete(b.pending, it.key)
		visit(it.key, it.val, true)
		b.next++
		n++
	}
}
