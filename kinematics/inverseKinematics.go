package kinematics

import (
	"context"

	spatial "go.viam.com/ikdata/spatialmath"
)

// InverseKinematics solves for the joint positions that place a chain's end effector at a target pose.
type InverseKinematics interface {
	// Solve moves the chain's joints so that its end effector reaches target along the enforced axes.
	// On success the joint positions are updated and the chain's transforms are stale. On failure an
	// ErrIKFailure is returned and the chain holds the last positions tried.
	Solve(ctx context.Context, chain *Chain, target spatial.Pose, constraints Constraints) error
}

// Constraints selects which axes of the end effector pose the solver must match. An axis set to false is free.
type Constraints struct {
	PositionX bool `json:"position_x"`
	PositionY bool `json:"position_y"`
	PositionZ bool `json:"position_z"`
	RotationX bool `json:"rotation_x"`
	RotationY bool `json:"rotation_y"`
	RotationZ bool `json:"rotation_z"`
}

// DefaultConstraints enforces every axis.
func DefaultConstraints() Constraints {
	return Constraints{
		PositionX: true,
		PositionY: true,
		PositionZ: true,
		RotationX: true,
		RotationY: true,
		RotationZ: true,
	}
}

// mask returns the enforced axes in the order of spatialmath.PoseDeltaR3.
func (c Constraints) mask() []bool {
	return []bool{c.PositionX, c.PositionY, c.PositionZ, c.RotationX, c.RotationY, c.RotationZ}
}

// SquaredNorm returns the dot product of a vector with itself.
func SquaredNorm(vec []float64) float64 {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	return norm
}
