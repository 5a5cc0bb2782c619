package dataset

import (
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
)

// reservoirSize bounds the samples a Distribution keeps for percentiles.
const reservoirSize = 4096

// Distribution summarizes a stream of non-negative values. Count, mean and max are exact. Percentiles are
// computed over a uniform reservoir of at most reservoirSize values.
type Distribution struct {
	count     int
	sum       float64
	max       float64
	reservoir []float64
	rand      *rand.Rand
}

// Add records one value.
func (d *Distribution) Add(v float64) {
	d.count++
	d.sum += v
	d.max = math.Max(d.max, v)
	if len(d.reservoir) < reservoirSize {
		d.reservoir = append(d.reservoir, v)
		return
	}
	if d.rand == nil {
		//nolint:gosec
		d.rand = rand.New(rand.NewSource(1))
	}
	if i := d.rand.Intn(d.count); i < reservoirSize {
		d.reservoir[i] = v
	}
}

// Merge folds other into d.
func (d *Distribution) Merge(other Distribution) {
	d.count += other.count
	d.sum += other.sum
	d.max = math.Max(d.max, other.max)
	d.reservoir = append(d.reservoir, other.reservoir...)
}

// Count returns the number of values added.
func (d Distribution) Count() int {
	return d.count
}

// Mean returns the mean of the values, 0 when empty.
func (d Distribution) Mean() float64 {
	if d.count == 0 {
		return 0
	}
	return d.sum / float64(d.count)
}

// Max returns the largest value, 0 when empty.
func (d Distribution) Max() float64 {
	return d.max
}

// Percentile returns the given percentile (0, 100] of the values, 0 when empty.
func (d Distribution) Percentile(p float64) float64 {
	if len(d.reservoir) == 0 {
		return 0
	}
	v, err := stats.Percentile(stats.Float64Data(d.reservoir), p)
	if err != nil {
		return 0
	}
	return v
}

// Median returns the median of the values, 0 when empty.
func (d Distribution) Median() float64 {
	if len(d.reservoir) == 0 {
		return 0
	}
	v, err := stats.Median(stats.Float64Data(d.reservoir))
	if err != nil {
		return 0
	}
	return v
}

// SampleStats counts what a sampler did.
type SampleStats struct {
	// Targets is the number of reachable targets visited and SkippedTargets how many of them could not be
	// solved for.
	Targets        int
	SkippedTargets int
	// Attempts is the number of perturbations tried around solved targets, Failures how many of them did not
	// converge and Records how many produced a record.
	Attempts int
	Failures int
	Records  int
	// Displacement is the distance the end effector moved between the before and after snapshot of each record.
	Displacement Distribution
}

// Merge folds other into s.
func (s *SampleStats) Merge(other SampleStats) {
	s.Targets += other.Targets
	s.SkippedTargets += other.SkippedTargets
	s.Attempts += other.Attempts
	s.Failures += other.Failures
	s.Records += other.Records
	s.Displacement.Merge(other.Displacement)
}
