// Package dataset generates inverse kinematics training samples: it finds reachable targets, samples the
// neighborhood of each with IK re-solves, shards that work over parallel workers and assembles the output.
package dataset

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ikdata/utils"
)

// Grid is a cubic lattice of offsets. Each axis takes the values i*Step for i in [Min, Max).
type Grid struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Step float64 `json:"step"`
}

// Validate ensures all parts of the grid are valid.
func (g Grid) Validate() error {
	if g.Max <= g.Min {
		return errors.Errorf("grid max %d must be greater than min %d", g.Max, g.Min)
	}
	if g.Step <= 0 {
		return errors.Errorf("grid step %f must be positive", g.Step)
	}
	return nil
}

// Len returns the number of points in the grid.
func (g Grid) Len() int {
	n := g.Max - g.Min
	if n <= 0 {
		return 0
	}
	return n * n * n
}

// Slices returns the number of z slices of the grid.
func (g Grid) Slices() int {
	if g.Max <= g.Min {
		return 0
	}
	return g.Max - g.Min
}

// Points returns every offset of the grid with z varying slowest and x fastest.
func (g Grid) Points() []r3.Vector {
	values := utils.FloatRange(g.Min, g.Max, g.Step)
	points := make([]r3.Vector, 0, g.Len())
	for _, z := range values {
		for _, y := range values {
			for _, x := range values {
				points = append(points, r3.Vector{X: x, Y: y, Z: z})
			}
		}
	}
	return points
}
