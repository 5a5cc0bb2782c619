package dataset

import (
	"sort"
	"testing"

	"github.com/samber/lo"
	"go.viam.com/test"
)

func TestPartition(t *testing.T) {
	items := lo.Range(10)

	parts := Partition(items, 4)
	test.That(t, lo.Map(parts, func(p []int, _ int) int { return len(p) }), test.ShouldResemble, []int{3, 3, 2, 2})
	test.That(t, lo.Flatten(parts), test.ShouldResemble, items)

	t.Run("sizes differ by at most one", func(t *testing.T) {
		for n := 1; n <= 12; n++ {
			for count := 0; count < 40; count += 7 {
				parts := Partition(lo.Range(count), n)
				test.That(t, parts, test.ShouldHaveLength, n)
				sizes := lo.Map(parts, func(p []int, _ int) int { return len(p) })
				test.That(t, lo.Max(sizes)-lo.Min(sizes), test.ShouldBeLessThanOrEqualTo, 1)
				test.That(t, lo.Flatten(parts), test.ShouldResemble, lo.Range(count))
			}
		}
	})

	t.Run("fewer items than parts", func(t *testing.T) {
		parts := Partition([]int{1, 2}, 8)
		test.That(t, parts, test.ShouldHaveLength, 8)
		test.That(t, parts[0], test.ShouldResemble, []int{1})
		test.That(t, parts[1], test.ShouldResemble, []int{2})
		test.That(t, parts[7], test.ShouldBeEmpty)
	})

	t.Run("at least one part", func(t *testing.T) {
		test.That(t, Partition(items, 0), test.ShouldResemble, [][]int{items})
	})

	t.Run("parts do not alias", func(t *testing.T) {
		parts := Partition(lo.Range(4), 2)
		parts[0] = append(parts[0], 100)
		test.That(t, parts[1], test.ShouldResemble, []int{2, 3})
	})
}

func TestShuffle(t *testing.T) {
	items := lo.Range(50)
	a := Shuffle(items, 7)
	b := Shuffle(items, 7)
	test.That(t, a, test.ShouldResemble, b)
	test.That(t, a, test.ShouldNotResemble, items)
	test.That(t, items, test.ShouldResemble, lo.Range(50))

	sorted := append([]int{}, a...)
	sort.Ints(sorted)
	test.That(t, sorted, test.ShouldResemble, items)

	test.That(t, Shuffle([]int{}, 1), test.ShouldBeEmpty)
}
