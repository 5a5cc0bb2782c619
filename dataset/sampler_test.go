package dataset

import (
	"context"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/ikdata/kinematics"
	"go.viam.com/ikdata/logging"
	"go.viam.com/ikdata/referenceframe"
	spatial "go.viam.com/ikdata/spatialmath"
)

var twoLinkReference = []float64{0.3, 0.6}

func newTwoLink() (*kinematics.Chain, error) {
	z := referenceframe.AxisConfig{Z: 1}
	c, err := kinematics.NewChain("twolink", []referenceframe.JointConfig{
		{ID: "shoulder", Type: referenceframe.RevoluteJoint, Axis: z},
		{ID: "elbow", Type: referenceframe.RevoluteJoint, Axis: z, Translation: referenceframe.AxisConfig{X: 1}},
		{ID: "tip", Type: referenceframe.FixedJoint, Translation: referenceframe.AxisConfig{X: 1}},
	})
	if err != nil {
		return nil, err
	}
	if err := c.SetJointPositions(twoLinkReference); err != nil {
		return nil, err
	}
	c.RecomputeTransforms()
	return c, nil
}

// twoLink is a planar arm in the XY plane with two unit links, posed at twoLinkReference.
func twoLink(t *testing.T) *kinematics.Chain {
	t.Helper()
	c, err := newTwoLink()
	test.That(t, err, test.ShouldBeNil)
	return c
}

var planarConstraints = kinematics.Constraints{PositionX: true, PositionY: true}

// fakeIK reports failure for the targets fail matches and otherwise applies move to the joint positions.
type fakeIK struct {
	mu      sync.Mutex
	fail    func(target spatial.Pose) bool
	move    func(q []float64) []float64
	err     error
	targets []spatial.Pose
	starts  [][]float64
}

func (ik *fakeIK) Solve(ctx context.Context, chain *kinematics.Chain, target spatial.Pose, _ kinematics.Constraints) error {
	ik.mu.Lock()
	ik.targets = append(ik.targets, target)
	ik.starts = append(ik.starts, chain.JointPositions())
	ik.mu.Unlock()
	if ik.err != nil {
		return ik.err
	}
	if ik.fail != nil && ik.fail(target) {
		return errors.Wrap(kinematics.ErrIKFailure, "fake failure")
	}
	if ik.move != nil {
		return chain.SetJointPositions(ik.move(chain.JointPositions()))
	}
	return nil
}

type failingSink struct{}

func (failingSink) Write(Record) error { return errors.Wrap(ErrIO, "disk full") }
func (failingSink) Close() error       { return nil }

func endEffectorPoint(t *testing.T, c *kinematics.Chain) r3.Vector {
	t.Helper()
	pose, err := c.EndEffectorPose()
	test.That(t, err, test.ShouldBeNil)
	return pose.Point()
}

func TestSampleZeroOffsetIsIdentity(t *testing.T) {
	c := twoLink(t)
	start := endEffectorPoint(t, c)
	s := &NeighborhoodSampler{
		Chain:                 c,
		IK:                    kinematics.NewJacobianIK(logging.NewTestLogger(t), kinematics.JacobianOptions{MaxIterations: 12}),
		Constraints:           planarConstraints,
		Grid:                  Grid{Min: 0, Max: 1, Step: 0.1},
		IncludeBulkTransforms: true,
		Logger:                logging.NewTestLogger(t),
	}
	var sink MemorySink
	st, err := s.Sample(context.Background(), []r3.Vector{start}, &sink)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st.Targets, test.ShouldEqual, 1)
	test.That(t, st.Attempts, test.ShouldEqual, 1)
	test.That(t, st.Records, test.ShouldEqual, 1)
	test.That(t, st.Displacement.Max(), test.ShouldEqual, 0)

	records := sink.Records()
	test.That(t, records, test.ShouldHaveLength, 1)
	rec := records[0]
	test.That(t, rec.Before, test.ShouldHaveLength, 2)
	test.That(t, rec.After, test.ShouldResemble, rec.Before)
	test.That(t, rec.BeforeJoints, test.ShouldResemble, twoLinkReference)
	test.That(t, rec.AfterJoints, test.ShouldResemble, twoLinkReference)
	// the leading transforms are the tracked joints here
	test.That(t, rec.Bulk, test.ShouldResemble, rec.Before)
}

func TestSampleNearbyTargets(t *testing.T) {
	c := twoLink(t)
	start := endEffectorPoint(t, c)
	s := &NeighborhoodSampler{
		Chain:        c,
		IK:           kinematics.NewJacobianIK(logging.NewTestLogger(t), kinematics.JacobianOptions{MaxIterations: 30}),
		Constraints:  planarConstraints,
		Grid:         Grid{Min: -1, Max: 1, Step: 0.02},
		TrackedLinks: []string{"elbow", "tip"},
		Logger:       logging.NewTestLogger(t),
	}
	var sink MemorySink
	st, err := s.Sample(context.Background(), []r3.Vector{start}, &sink)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st.Attempts, test.ShouldEqual, 8)
	test.That(t, st.Failures, test.ShouldEqual, 0)
	test.That(t, st.Records, test.ShouldEqual, 8)
	test.That(t, st.Displacement.Max(), test.ShouldBeLessThan, 0.03)

	for _, rec := range sink.Records() {
		test.That(t, rec.Before, test.ShouldHaveLength, 2)
		test.That(t, rec.Bulk, test.ShouldBeNil)
		// the tip stays within reach of the target
		test.That(t, rec.After[1].Translation.Sub(start).Norm(), test.ShouldBeLessThan, 0.03+0.001)
	}
}

func TestSampleSkipsFailures(t *testing.T) {
	c := twoLink(t)
	start := endEffectorPoint(t, c)
	far := start.Add(r3.Vector{X: 10})
	ik := &fakeIK{fail: func(target spatial.Pose) bool {
		p := target.Point()
		return p.X > start.X+5 || p.X < start.X-0.05
	}}
	targetsDone := 0
	s := &NeighborhoodSampler{
		Chain:       c,
		IK:          ik,
		Constraints: planarConstraints,
		Grid:        Grid{Min: -1, Max: 1, Step: 0.1},
		Logger:      logging.NewTestLogger(t),
		OnTarget:    func() { targetsDone++ },
	}
	var sink MemorySink
	st, err := s.Sample(context.Background(), []r3.Vector{start, far}, &sink)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, st.Targets, test.ShouldEqual, 2)
	test.That(t, st.SkippedTargets, test.ShouldEqual, 1)
	test.That(t, st.Attempts, test.ShouldEqual, 8)
	test.That(t, st.Failures, test.ShouldEqual, 4)
	test.That(t, st.Records, test.ShouldEqual, 4)
	test.That(t, sink.Records(), test.ShouldHaveLength, 4)
	test.That(t, targetsDone, test.ShouldEqual, 2)

	// every target keeps the starting orientation
	for _, target := range ik.targets {
		test.That(t, spatial.QuaternionAlmostEqual(target.Orientation(), ik.targets[0].Orientation(), 1e-12), test.ShouldBeTrue)
	}
}

func TestSampleReseed(t *testing.T) {
	drift := func(q []float64) []float64 {
		q[0] += 0.1
		return q
	}
	grid := Grid{Min: 0, Max: 2, Step: 0.01}

	run := func(t *testing.T, reseed bool) []Record {
		t.Helper()
		c := twoLink(t)
		s := &NeighborhoodSampler{
			Chain:            c,
			IK:               &fakeIK{move: drift},
			Constraints:      planarConstraints,
			Grid:             grid,
			ReseedEachSample: reseed,
			Logger:           logging.NewTestLogger(t),
		}
		var sink MemorySink
		_, err := s.Sample(context.Background(), []r3.Vector{endEffectorPoint(t, c)}, &sink)
		test.That(t, err, test.ShouldBeNil)
		records := sink.Records()
		test.That(t, records, test.ShouldHaveLength, grid.Len())
		return records
	}

	t.Run("reseed", func(t *testing.T) {
		for _, rec := range run(t, true) {
			test.That(t, rec.BeforeJoints[0], test.ShouldAlmostEqual, 0.4)
			test.That(t, rec.AfterJoints[0], test.ShouldAlmostEqual, 0.5)
		}
	})
	t.Run("chained", func(t *testing.T) {
		records := run(t, false)
		for i, rec := range records {
			test.That(t, rec.BeforeJoints[0], test.ShouldAlmostEqual, 0.4+0.1*float64(i))
			if i > 0 {
				test.That(t, rec.Before, test.ShouldResemble, records[i-1].After)
			}
		}
	})
}

func TestSampleErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)

	t.Run("solver error", func(t *testing.T) {
		c := twoLink(t)
		boom := errors.New("boom")
		s := &NeighborhoodSampler{Chain: c, IK: &fakeIK{err: boom}, Grid: Grid{Min: 0, Max: 1, Step: 1}, Logger: logger}
		_, err := s.Sample(context.Background(), []r3.Vector{{}}, &MemorySink{})
		test.That(t, err, test.ShouldEqual, boom)
	})
	t.Run("sink error", func(t *testing.T) {
		c := twoLink(t)
		s := &NeighborhoodSampler{Chain: c, IK: &fakeIK{}, Grid: Grid{Min: 0, Max: 1, Step: 1}, Logger: logger}
		_, err := s.Sample(context.Background(), []r3.Vector{{}}, failingSink{})
		test.That(t, err, test.ShouldWrap, ErrIO)
	})
	t.Run("unknown link", func(t *testing.T) {
		c := twoLink(t)
		s := &NeighborhoodSampler{
			Chain: c, IK: &fakeIK{}, Grid: Grid{Min: 0, Max: 1, Step: 1},
			TrackedLinks: []string{"wrist"}, Logger: logger,
		}
		_, err := s.Sample(context.Background(), []r3.Vector{{}}, &MemorySink{})
		test.That(t, err, test.ShouldWrap, kinematics.ErrJointNotFound)
	})
	t.Run("bad grid", func(t *testing.T) {
		c := twoLink(t)
		s := &NeighborhoodSampler{Chain: c, IK: &fakeIK{}, Grid: Grid{Min: 0, Max: 0, Step: 1}, Logger: logger}
		_, err := s.Sample(context.Background(), []r3.Vector{{}}, &MemorySink{})
		test.That(t, err, test.ShouldNotBeNil)
	})
	t.Run("canceled", func(t *testing.T) {
		c := twoLink(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := &NeighborhoodSampler{Chain: c, IK: &fakeIK{}, Grid: Grid{Min: 0, Max: 1, Step: 1}, Logger: logger}
		_, err := s.Sample(ctx, []r3.Vector{{}}, &MemorySink{})
		test.That(t, err, test.ShouldEqual, context.Canceled)
	})
}
