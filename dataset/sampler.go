package dataset

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
	spatial "go.viam.com/ikdata/spatialmath"
)

// NeighborhoodSampler records how the chain responds to small perturbations of reachable targets.
type NeighborhoodSampler struct {
	Chain       *kinematics.Chain
	IK          kinematics.InverseKinematics
	Constraints kinematics.Constraints
	Grid        Grid
	// TrackedLinks are the joints whose world state is recorded. Defaults to the movable joints.
	TrackedLinks []string
	// IncludeBulkTransforms adds the leading entries of the full transform list to every record.
	IncludeBulkTransforms bool
	// ReseedEachSample restores the configuration solved at the target before every perturbation. Otherwise
	// each perturbation starts from wherever the previous one left the chain.
	ReseedEachSample bool
	Logger           logging.Logger
	// OnTarget, when set, is called after every target, solved or skipped.
	OnTarget func()
}

// Sample visits every target in order and writes the records it produces to sink. Targets share the end
// effector orientation the chain has when Sample is called. Solver failures are counted and skipped; any
// other error stops sampling.
func (s *NeighborhoodSampler) Sample(ctx context.Context, targets []r3.Vector, sink RecordSink) (SampleStats, error) {
	var st SampleStats
	if err := s.Grid.Validate(); err != nil {
		return st, err
	}
	tracked := s.TrackedLinks
	if len(tracked) == 0 {
		tracked = s.Chain.MovableJointNames()
	}
	s.Chain.RecomputeTransforms()
	if _, err := snapshot(s.Chain, tracked); err != nil {
		return st, err
	}
	start, err := s.Chain.EndEffectorPose()
	if err != nil {
		return st, err
	}
	orientation := start.Orientation()
	offsets := s.Grid.Points()

	for _, p := range targets {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Targets++
		target := spatial.NewPose(p, orientation)
		if err := s.solve(ctx, target); err != nil {
			if !errors.Is(err, kinematics.ErrIKFailure) {
				return st, err
			}
			st.SkippedTargets++
			s.Logger.Debugw("skipping target", "target", p, "error", err)
			s.done()
			continue
		}
		s.Chain.RecomputeTransforms()
		solved := s.Chain.JointPositions()

		for _, offset := range offsets {
			if s.ReseedEachSample {
				if err := s.Chain.SetJointPositions(solved); err != nil {
					return st, err
				}
			}
			s.Chain.RecomputeTransforms()
			rec, ok, err := s.sampleOne(ctx, target, offset, tracked, &st)
			if err != nil {
				return st, err
			}
			if !ok {
				continue
			}
			if err := sink.Write(rec); err != nil {
				return st, err
			}
			st.Records++
		}
		s.done()
	}
	return st, nil
}

// sampleOne records the current state, re-solves for target moved by offset and records the result.
func (s *NeighborhoodSampler) sampleOne(
	ctx context.Context,
	target spatial.Pose,
	offset r3.Vector,
	tracked []string,
	st *SampleStats,
) (Record, bool, error) {
	before, err := snapshot(s.Chain, tracked)
	if err != nil {
		return Record{}, false, err
	}
	beforeEnd, err := s.Chain.EndEffectorPose()
	if err != nil {
		return Record{}, false, err
	}
	beforeJoints := s.Chain.JointPositions()

	st.Attempts++
	if err := s.solve(ctx, target.Translate(offset)); err != nil {
		if errors.Is(err, kinematics.ErrIKFailure) {
			st.Failures++
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	transforms := s.Chain.RecomputeTransforms()
	after, err := snapshot(s.Chain, tracked)
	if err != nil {
		return Record{}, false, err
	}
	afterEnd := transforms[len(transforms)-1]
	st.Displacement.Add(afterEnd.Point().Sub(beforeEnd.Point()).Norm())

	rec := Record{
		Before:       before,
		After:        after,
		BeforeJoints: beforeJoints,
		AfterJoints:  s.Chain.JointPositions(),
	}
	if s.IncludeBulkTransforms {
		n := len(tracked)
		if n > len(transforms) {
			n = len(transforms)
		}
		rec.Bulk = make([]LinkState, 0, n)
		for _, pose := range transforms[:n] {
			rec.Bulk = append(rec.Bulk, linkStateFromPose(pose))
		}
	}
	return rec, true, nil
}

func (s *NeighborhoodSampler) solve(ctx context.Context, target spatial.Pose) error {
	return s.IK.Solve(ctx, s.Chain, target, s.Constraints)
}

func (s *NeighborhoodSampler) done() {
	if s.OnTarget != nil {
		s.OnTarget()
	}
}
