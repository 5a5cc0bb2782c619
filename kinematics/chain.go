// Package kinematics contains the serial chain model and the inverse kinematics solvers that act on it.
package kinematics

import (
	"github.com/pkg/errors"

	"go.viam.com/ikdata/referenceframe"
	spatial "go.viam.com/ikdata/spatialmath"
)

// Chain is a single open kinematic chain: an ordered list of joints from the root to the end effector, a root
// pose, one position per movable joint and the world transforms last computed from them.
//
// World transforms are cached. Any mutation marks them stale and they must be recomputed with
// RecomputeTransforms before WorldTransform will return them again. A Chain is not safe for concurrent use.
type Chain struct {
	name       string
	frames     []referenceframe.Frame
	index      map[string]int
	dof        int
	root       spatial.Pose
	positions  []float64
	transforms []spatial.Pose
	stale      bool
}

// NewChain builds a chain from joint configs listed from the root to the end effector. Joint parents are
// implied by the order and the Parent field is ignored.
func NewChain(name string, joints []referenceframe.JointConfig) (*Chain, error) {
	frames := make([]referenceframe.Frame, 0, len(joints))
	for _, joint := range joints {
		f, err := joint.ToFrame()
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}
	return NewChainFromFrames(name, spatial.NewZeroPose(), frames)
}

// NewChainFromModel builds a chain from a parsed model. If the model carries reference angles the chain is
// posed at them and its transforms are computed.
func NewChainFromModel(model *referenceframe.Model) (*Chain, error) {
	c, err := NewChainFromFrames(model.Name, model.RootPose, model.Frames)
	if err != nil {
		return nil, err
	}
	if model.ReferenceAngles != nil {
		if err := c.SetJointPositions(model.ReferenceAngles); err != nil {
			return nil, err
		}
		c.RecomputeTransforms()
	}
	return c, nil
}

// NewChainFromFrames builds a chain from frames ordered from the root to the end effector.
func NewChainFromFrames(name string, root spatial.Pose, frames []referenceframe.Frame) (*Chain, error) {
	if len(frames) == 0 {
		return nil, errors.Wrapf(referenceframe.ErrConfig, "chain %q has no joints", name)
	}
	c := &Chain{
		name:   name,
		frames: make([]referenceframe.Frame, 0, len(frames)),
		index:  make(map[string]int, len(frames)),
		root:   root,
		stale:  true,
	}
	for i, f := range frames {
		if _, ok := c.index[f.Name()]; ok {
			return nil, referenceframe.NewDuplicateJointError(f.Name())
		}
		c.index[f.Name()] = i
		c.frames = append(c.frames, f)
		c.dof += len(f.DoF())
	}
	c.positions = make([]float64, c.dof)
	return c, nil
}

// Name returns the name of the chain.
func (c *Chain) Name() string {
	return c.name
}

// DoF returns the number of movable joints.
func (c *Chain) DoF() int {
	return c.dof
}

// Frames returns the joints of the chain from the root to the end effector.
func (c *Chain) Frames() []referenceframe.Frame {
	return append([]referenceframe.Frame{}, c.frames...)
}

// Joints returns the configs that rebuild the chain's joints, each naming its predecessor as parent.
func (c *Chain) Joints() []referenceframe.JointConfig {
	cfgs := make([]referenceframe.JointConfig, 0, len(c.frames))
	parent := referenceframe.World
	for _, f := range c.frames {
		cfgs = append(cfgs, referenceframe.JointConfigFromFrame(f, parent))
		parent = f.Name()
	}
	return cfgs
}

// JointNames returns the joint names from the root to the end effector.
func (c *Chain) JointNames() []string {
	names := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		names = append(names, f.Name())
	}
	return names
}

// MovableJointNames returns the names of the joints that take a position, in chain order.
func (c *Chain) MovableJointNames() []string {
	names := make([]string, 0, c.dof)
	for _, f := range c.frames {
		if len(f.DoF()) > 0 {
			names = append(names, f.Name())
		}
	}
	return names
}

// EndEffector returns the name of the last joint of the chain.
func (c *Chain) EndEffector() string {
	return c.frames[len(c.frames)-1].Name()
}

// Limits returns the limit of every movable joint, in chain order.
func (c *Chain) Limits() []referenceframe.Limit {
	limits := make([]referenceframe.Limit, 0, c.dof)
	for _, f := range c.frames {
		limits = append(limits, f.DoF()...)
	}
	return limits
}

// RootPose returns the world pose of the chain's base.
func (c *Chain) RootPose() spatial.Pose {
	return c.root
}

// SetRootPose sets the world pose of the chain's base.
func (c *Chain) SetRootPose(pose spatial.Pose) {
	c.root = pose
	c.stale = true
}

// JointPositions returns a copy of the current joint positions in chain order.
func (c *Chain) JointPositions() []float64 {
	return append([]float64{}, c.positions...)
}

// SetJointPositions sets the position of every movable joint in chain order. The chain is left untouched if the
// number of values is wrong or any value lies outside its joint's limit.
func (c *Chain) SetJointPositions(values []float64) error {
	if len(values) != c.dof {
		return referenceframe.NewIncorrectDoFError(len(values), c.dof)
	}
	idx := 0
	for _, f := range c.frames {
		for _, limit := range f.DoF() {
			if !limit.Contains(values[idx]) {
				return referenceframe.NewOutOfLimitsError(f.Name(), values[idx], limit)
			}
			idx++
		}
	}
	copy(c.positions, values)
	c.stale = true
	return nil
}

// Transforms returns the world pose of every joint for the given positions without touching the chain's state.
// Positions outside joint limits are evaluated anyway.
func (c *Chain) Transforms(positions []float64) ([]spatial.Pose, error) {
	if len(positions) != c.dof {
		return nil, referenceframe.NewIncorrectDoFError(len(positions), c.dof)
	}
	out := make([]spatial.Pose, 0, len(c.frames))
	world := c.root
	idx := 0
	for _, f := range c.frames {
		n := len(f.DoF())
		local, err := f.Transform(referenceframe.FloatsToInputs(positions[idx : idx+n]))
		if err != nil && !errors.Is(err, referenceframe.ErrOutOfLimits) {
			return nil, err
		}
		idx += n
		world = spatial.Compose(world, local)
		out = append(out, world)
	}
	return out, nil
}

// RecomputeTransforms propagates the root pose through every joint and caches the resulting world poses, which
// are returned in chain order with the root joint first.
func (c *Chain) RecomputeTransforms() []spatial.Pose {
	transforms, err := c.Transforms(c.positions)
	if err != nil {
		// positions always have the chain's dimension
		panic(err)
	}
	c.transforms = transforms
	c.stale = false
	return append([]spatial.Pose{}, transforms...)
}

// WorldTransform returns the last computed world pose of the named joint.
func (c *Chain) WorldTransform(name string) (spatial.Pose, error) {
	idx, ok := c.index[name]
	if !ok {
		return spatial.Pose{}, NewJointNotFoundError(name)
	}
	if c.stale {
		return spatial.Pose{}, ErrStaleTransforms
	}
	return c.transforms[idx], nil
}

// EndEffectorPose returns the last computed world pose of the end effector.
func (c *Chain) EndEffectorPose() (spatial.Pose, error) {
	return c.WorldTransform(c.EndEffector())
}

// Clone returns an independent copy of the chain. Joint frames are immutable and shared.
func (c *Chain) Clone() *Chain {
	clone := *c
	clone.frames = append([]referenceframe.Frame{}, c.frames...)
	clone.index = make(map[string]int, len(c.index))
	for k, v := range c.index {
		clone.index[k] = v
	}
	clone.positions = append([]float64{}, c.positions...)
	if c.transforms != nil {
		clone.transforms = append([]spatial.Pose{}, c.transforms...)
	}
	return &clone
}
