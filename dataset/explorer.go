package dataset

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
)

// ReachabilityExplorer sweeps a grid of offsets around the end effector's reference pose and keeps the
// end effector positions the solver reaches.
type ReachabilityExplorer struct {
	Chain       *kinematics.Chain
	IK          kinematics.InverseKinematics
	Constraints kinematics.Constraints
	Grid        Grid
	// Reference is the joint vector every grid point starts from. The chain's positions are used when empty.
	Reference []float64
	Logger    logging.Logger
	// Progress, when set, is called after every z slice of the grid.
	Progress func(done, total int)
}

// Explore tries every grid point independently, starting each solve from the reference configuration, and
// returns the reached end effector translations in grid order.
func (e *ReachabilityExplorer) Explore(ctx context.Context) ([]r3.Vector, error) {
	if err := e.Grid.Validate(); err != nil {
		return nil, err
	}
	reference := e.Reference
	if len(reference) == 0 {
		reference = e.Chain.JointPositions()
	}
	reset := func() error {
		if err := e.Chain.SetJointPositions(reference); err != nil {
			return err
		}
		e.Chain.RecomputeTransforms()
		return nil
	}
	if err := reset(); err != nil {
		return nil, errors.Wrap(err, "cannot pose chain at its reference configuration")
	}
	start, err := e.Chain.EndEffectorPose()
	if err != nil {
		return nil, err
	}

	offsets := e.Grid.Points()
	perSlice := len(offsets) / e.Grid.Slices()
	reachable := []r3.Vector{}
	for i, offset := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		solveErr := e.IK.Solve(ctx, e.Chain, start.Translate(offset), e.Constraints)
		switch {
		case solveErr == nil:
			e.Chain.RecomputeTransforms()
			reached, err := e.Chain.EndEffectorPose()
			if err != nil {
				return nil, err
			}
			reachable = append(reachable, reached.Point())
		case errors.Is(solveErr, kinematics.ErrIKFailure):
		default:
			return nil, solveErr
		}
		if err := reset(); err != nil {
			return nil, err
		}

		if (i+1)%perSlice == 0 {
			slice := (i + 1) / perSlice
			e.Logger.Debugw("explored slice", "slice", slice, "slices", e.Grid.Slices(), "reachable", len(reachable))
			if e.Progress != nil {
				e.Progress(slice, e.Grid.Slices())
			}
		}
	}
	e.Logger.Infof("found %d reachable targets out of %d grid points", len(reachable), len(offsets))
	return reachable, nil
}
