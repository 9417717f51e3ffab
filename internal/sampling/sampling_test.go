package sampling_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/fairy-agent/internal/sampling"
)

func TestBagDrawsPermutations(t *testing.T) {
	for _, n := range []int{1, 2, 7, 16} {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		bag := sampling.NewBag(sampling.Seeded(uint64(n)), items)

		for round := 0; round < 3; round++ {
			seen := make(map[int]int, n)
			for i := 0; i < n; i++ {
				seen[bag.Draw()]++
			}
			require.Len(t, seen, n, "round %d of size %d", round, n)
			for v, c := range seen {
				assert.Equal(t, 1, c, "item %d drawn %d times", v, c)
			}
			assert.Equal(t, 0, bag.Remaining())
		}
	}
}

func TestBagRefillIsFreshPermutation(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	bag := sampling.NewBag(sampling.Seeded(42), items)

	var orders [][]string
	for round := 0; round < 10; round++ {
		var order []string
		for range items {
			order = append(order, bag.Draw())
		}
		orders = append(orders, order)
	}

	distinct := map[string]bool{}
	for _, o := range orders {
		distinct[joined(o)] = true
	}
	assert.Greater(t, len(distinct), 1, "refills should not replay the same order")
}

func TestBagEmptyLibrary(t *testing.T) {
	bag := sampling.NewBag[string](nil, nil)
	assert.Equal(t, "", bag.Draw())
	assert.Equal(t, 0, bag.Len())
}

func TestBagReset(t *testing.T) {
	bag := sampling.NewBag(sampling.Seeded(1), []int{1, 2, 3})
	bag.Draw()
	require.Equal(t, 2, bag.Remaining())
	bag.Reset()
	assert.Equal(t, 0, bag.Remaining())
}

func TestWeightedPick(t *testing.T) {
	r := sampling.Seeded(7)
	items := []sampling.Weighted[string]{
		{Value: "never", Weight: 0},
		{Value: "rare", Weight: 1},
		{Value: "common", Weight: 9},
	}

	counts := map[string]int{}
	for i := 0; i < 5000; i++ {
		counts[sampling.WeightedPick(r, items)]++
	}
	assert.Zero(t, counts["never"])
	assert.Greater(t, counts["common"], counts["rare"]*4)
	assert.Equal(t, "", sampling.WeightedPick[string](r, nil))
}

func TestDurationRange(t *testing.T) {
	r := sampling.Seeded(3)
	for i := 0; i < 1000; i++ {
		d := sampling.Duration(r, 200*time.Millisecond, 300*time.Millisecond)
		require.GreaterOrEqual(t, d, 200*time.Millisecond)
		require.Less(t, d, 300*time.Millisecond)
	}
	assert.Equal(t, time.Second, sampling.Duration(r, time.Second, time.Second))
}

func TestChanceEdges(t *testing.T) {
	r := sampling.Seeded(9)
	for i := 0; i < 100; i++ {
		assert.False(t, sampling.Chance(r, 0))
		assert.True(t, sampling.Chance(r, 1))
	}
}

func joined(s []string) string {
	out := ""
	for _, v := range s {
		out += v
	}
	return out
}

func TestLockedMatchesSeededSequence(t *testing.T) {
	a, b := sampling.Seeded(99), sampling.Locked(sampling.Seeded(99))
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = sampling.Chance(b, 0.5)
			}
		}()
	}
	wg.Wait()
}
