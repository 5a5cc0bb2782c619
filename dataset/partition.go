package dataset

import (
	"math/rand"
)

// Shuffle returns a copy of items in an order determined by seed.
func Shuffle[T any](items []T, seed int64) []T {
	out := append([]T{}, items...)
	//nolint:gosec
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Partition splits items into n contiguous, disjoint parts covering every item. Part sizes differ by at most
// one and the larger parts come first. n < 1 is treated as 1.
func Partition[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	parts := make([][]T, 0, n)
	base, extra := len(items)/n, len(items)%n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		parts = append(parts, items[start:start+size:start+size])
		start += size
	}
	return parts
}
