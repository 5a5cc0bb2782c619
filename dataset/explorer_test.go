package dataset

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
	spatial "go.viam.com/ikdata/spatialmath"
)

func TestExploreWithSolver(t *testing.T) {
	c := twoLink(t)
	start := endEffectorPoint(t, c)
	e := &ReachabilityExplorer{
		Chain:       c,
		IK:          kinematics.NewJacobianIK(logging.NewTestLogger(t), kinematics.JacobianOptions{MaxIterations: 30}),
		Constraints: planarConstraints,
		Grid:        Grid{Min: -1, Max: 2, Step: 0.05},
		Logger:      logging.NewTestLogger(t),
	}
	reachable, err := e.Explore(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(reachable), test.ShouldBeGreaterThan, 0)
	test.That(t, len(reachable), test.ShouldBeLessThanOrEqualTo, e.Grid.Len())

	foundStart := false
	for _, p := range reachable {
		test.That(t, r3.Vector{X: p.X, Y: p.Y}.Norm(), test.ShouldBeLessThanOrEqualTo, 2.0+1e-9)
		test.That(t, p.Z, test.ShouldAlmostEqual, start.Z)
		if p.Sub(start).Norm() < 0.001 {
			foundStart = true
		}
	}
	test.That(t, foundStart, test.ShouldBeTrue)

	// the chain is back at its reference
	test.That(t, c.JointPositions(), test.ShouldResemble, twoLinkReference)
}

func TestExploreResetsBetweenPoints(t *testing.T) {
	c := twoLink(t)
	reference := []float64{0.1, 0.2}
	atReference := c.Clone()
	test.That(t, atReference.SetJointPositions(reference), test.ShouldBeNil)
	atReference.RecomputeTransforms()
	start := endEffectorPoint(t, atReference)
	ik := &fakeIK{
		fail: func(target spatial.Pose) bool { return target.Point().X > start.X+0.01 },
		move: func(q []float64) []float64 { return []float64{q[0] + 1, q[1] - 1} },
	}
	var progress [][2]int
	e := &ReachabilityExplorer{
		Chain:       c,
		IK:          ik,
		Constraints: planarConstraints,
		Grid:        Grid{Min: -1, Max: 2, Step: 0.1},
		Reference:   reference,
		Logger:      logging.NewTestLogger(t),
		Progress:    func(done, total int) { progress = append(progress, [2]int{done, total}) },
	}
	reachable, err := e.Explore(context.Background())
	test.That(t, err, test.ShouldBeNil)

	// offsets are taken from the end effector at the reference, not the chain's pose when called
	test.That(t, ik.targets, test.ShouldHaveLength, 27)
	for _, q := range ik.starts {
		test.That(t, q, test.ShouldResemble, reference)
	}
	// x offsets of -0.1 and 0 succeed
	test.That(t, reachable, test.ShouldHaveLength, 18)

	moved := c.Clone()
	test.That(t, moved.SetJointPositions([]float64{1.1, -0.8}), test.ShouldBeNil)
	moved.RecomputeTransforms()
	expected := endEffectorPoint(t, moved)
	for _, p := range reachable {
		test.That(t, spatial.R3VectorAlmostEqual(p, expected, 1e-9), test.ShouldBeTrue)
	}

	test.That(t, c.JointPositions(), test.ShouldResemble, reference)
	test.That(t, progress, test.ShouldResemble, [][2]int{{1, 3}, {2, 3}, {3, 3}})
}

func TestExploreErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	grid := Grid{Min: 0, Max: 2, Step: 0.1}

	t.Run("solver error", func(t *testing.T) {
		boom := errors.New("boom")
		e := &ReachabilityExplorer{Chain: twoLink(t), IK: &fakeIK{err: boom}, Grid: grid, Logger: logger}
		_, err := e.Explore(context.Background())
		test.That(t, err, test.ShouldEqual, boom)
	})
	t.Run("bad reference", func(t *testing.T) {
		e := &ReachabilityExplorer{Chain: twoLink(t), IK: &fakeIK{}, Grid: grid, Reference: []float64{1}, Logger: logger}
		_, err := e.Explore(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
	})
	t.Run("bad grid", func(t *testing.T) {
		e := &ReachabilityExplorer{Chain: twoLink(t), IK: &fakeIK{}, Grid: Grid{Min: 1, Max: 0, Step: 1}, Logger: logger}
		_, err := e.Explore(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
	})
	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := &ReachabilityExplorer{Chain: twoLink(t), IK: &fakeIK{}, Grid: grid, Logger: logger}
		_, err := e.Explore(ctx)
		test.That(t, err, test.ShouldEqual, context.Canceled)
	})
}
