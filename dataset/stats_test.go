package dataset

import (
	"testing"

	"go.viam.com/test"
)

func TestDistribution(t *testing.T) {
	var d Distribution
	test.That(t, d.Count(), test.ShouldEqual, 0)
	test.That(t, d.Mean(), test.ShouldEqual, 0)
	test.That(t, d.Median(), test.ShouldEqual, 0)
	test.That(t, d.Percentile(90), test.ShouldEqual, 0)

	for i := 1; i <= 100; i++ {
		d.Add(float64(i))
	}
	test.That(t, d.Count(), test.ShouldEqual, 100)
	test.That(t, d.Mean(), test.ShouldAlmostEqual, 50.5)
	test.That(t, d.Max(), test.ShouldEqual, 100)
	test.That(t, d.Median(), test.ShouldAlmostEqual, 50.5)
	test.That(t, d.Percentile(90), test.ShouldBeBetween, 88.0, 92.0)

	t.Run("reservoir", func(t *testing.T) {
		var big Distribution
		for i := 0; i < 3*reservoirSize; i++ {
			big.Add(1)
		}
		big.Add(5)
		test.That(t, big.Count(), test.ShouldEqual, 3*reservoirSize+1)
		test.That(t, big.Max(), test.ShouldEqual, 5)
		test.That(t, len(big.reservoir), test.ShouldEqual, reservoirSize)
		test.That(t, big.Median(), test.ShouldEqual, 1)
	})
}

func TestSampleStatsMerge(t *testing.T) {
	a := SampleStats{Targets: 2, SkippedTargets: 1, Attempts: 8, Failures: 3, Records: 5}
	a.Displacement.Add(1)
	b := SampleStats{Targets: 1, Attempts: 8, Records: 8}
	b.Displacement.Add(3)

	var total SampleStats
	total.Merge(a)
	total.Merge(b)
	test.That(t, total.Targets, test.ShouldEqual, 3)
	test.That(t, total.SkippedTargets, test.ShouldEqual, 1)
	test.That(t, total.Attempts, test.ShouldEqual, 16)
	test.That(t, total.Failures, test.ShouldEqual, 3)
	test.That(t, total.Records, test.ShouldEqual, 13)
	test.That(t, total.Displacement.Count(), test.ShouldEqual, 2)
	test.That(t, total.Displacement.Mean(), test.ShouldEqual, 2)
	test.That(t, total.Displacement.Max(), test.ShouldEqual, 3)
}
