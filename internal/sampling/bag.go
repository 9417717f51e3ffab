package sampling

import "sync"

// Bag draws items of a fixed library without repetition. Once every item
// has been drawn the bag is refilled with a fresh permutation, so any
// window of len(items) consecutive draws aligned to a refill contains each
// item exactly once.
type Bag[T any] struct {
	mu        sync.Mutex
	items     []T
	remaining []int
	rng       Rand
}

func NewBag[T any](rng Rand, items []T) *Bag[T] {
	if rng == nil {
		rng = Global()
	}
	return &Bag[T]{items: items, rng: rng}
}

// Draw returns the next item. An empty library yields the zero value.
func (b *Bag[T]) Draw() T {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if len(b.items) == 0 {
		return zero
	}
	if len(b.remaining) == 0 {
		b.refill()
	}
	last := len(b.remaining) - 1
	idx := b.remaining[last]
	b.remaining = b.remaining[:last]
	return b.items[idx]
}

// Remaining reports how many draws are left before the next refill.
func (b *Bag[T]) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.remaining)
}

// Len is the size of the library.
func (b *Bag[T]) Len() int {
	return len(b.items)
}

// Reset discards the current permutation.
func (b *Bag[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = nil
}

// refill builds a Fisher-Yates shuffled permutation of item indices.
func (b *Bag[T]) refill() {
	n := len(b.items)
	b.remaining = make([]int, n)
	for i := range b.remaining {
		b.remaining[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := b.rng.IntN(i + 1)
		b.remaining[i], b.remaining[j] = b.remaining[j], b.remaining[i]
	}
}
