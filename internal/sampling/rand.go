// Package sampling holds the random draws the personalities are built on:
// a non-repeating shuffle bag, weighted and uniform picks, probability gates
// and ranged durations.
package sampling

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Rand is the subset of *rand.Rand the package needs. Seeded generators
// satisfy it directly, which keeps tests reproducible.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// Global returns a Rand backed by the runtime's concurrency-safe generator.
func Global() Rand {
	return globalRand{}
}

// Seeded returns a deterministic generator. It is not safe for concurrent use.
func Seeded(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type lockedRand struct {
	mu sync.Mutex
	r  Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// Locked serializes access to r so a seeded generator can be shared by
// goroutines.
func Locked(r Rand) Rand {
	return &lockedRand{r: r}
}

// Chance reports true with probability p.
func Chance(r Rand, p float64) bool {
	if p <= 0 {
		return false
	}
	return r.Float64() < p
}

// Duration returns a duration drawn uniformly from [lo, hi).
func Duration(r Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}

// IntBetween returns an int in [lo, hi).
func IntBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo)
}

// Pick returns a uniformly chosen element, or the zero value for an empty slice.
func Pick[T any](r Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[r.IntN(len(items))]
}

// Weighted pairs a value with its relative weight.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// WeightedPick draws a value with probability proportional to its weight.
// Non-positive weights are never chosen; if every weight is non-positive the
// zero value is returned.
func WeightedPick[T any](r Rand, items []Weighted[T]) T {
	var (
		zero  T
		total float64
	)
	for _, it := range items {
		if it.Weight > 0 {
			total += it.Weight
		}
	}
	if total <= 0 {
		return zero
	}

	x := r.Float64() * total
	var last T
	for _, it := range items {
		if it.Weight <= 0 {
			continue
		}
		if x < it.Weight {
			return it.Value
		}
		x -= it.Weight
		last = it.Value
	}
	return last
}
