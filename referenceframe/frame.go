// Package referenceframe describes the joints of a serial kinematic chain: their type, their fixed
// offset from the parent joint and the motion their input produces.
package referenceframe

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "go.viam.com/ikdata/spatialmath"
	"go.viam.com/ikdata/utils"
)

// JointType describes how a joint moves.
type JointType string

// Supported joint types.
const (
	FixedJoint     JointType = "fixed"
	RevoluteJoint  JointType = "revolute"
	PrismaticJoint JointType = "prismatic"
)

// axisTolerance is how far from unit length a joint axis may be.
const axisTolerance = 1e-6

// Limit represents the limits of motion for a joint.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Unlimited returns a limit that admits every value.
func Unlimited() Limit {
	return Limit{Min: math.Inf(-1), Max: math.Inf(1)}
}

// IsUnlimited returns true if neither bound is finite.
func (l Limit) IsUnlimited() bool {
	return math.IsInf(l.Min, -1) && math.IsInf(l.Max, 1)
}

// Contains returns true if value lies within the limit.
func (l Limit) Contains(value float64) bool {
	return value >= l.Min && value <= l.Max
}

func limitsAlmostEqual(a, b []Limit) bool {
	if len(a) != len(b) {
		return false
	}

	const epsilon = 1e-5
	for idx, x := range a {
		if x.IsUnlimited() && b[idx].IsUnlimited() {
			continue
		}
		if !utils.Float64AlmostEqual(x.Min, b[idx].Min, epsilon) ||
			!utils.Float64AlmostEqual(x.Max, b[idx].Max, epsilon) {
			return false
		}
	}

	return true
}

// Frame is a single joint of a serial chain. Its transform FROM the joint TO the parent joint is the fixed
// offset followed by the motion produced by the joint's input.
type Frame interface {
	// Name returns the name of the joint.
	Name() string

	// Type returns how the joint moves.
	Type() JointType

	// Axis returns the unit motion axis in the joint's own frame. Fixed joints return the zero vector.
	Axis() r3.Vector

	// Offset returns the fixed translation from the parent joint.
	Offset() r3.Vector

	// Transform is the pose that goes FROM this joint TO the parent joint for the given inputs.
	// Out of bounds inputs still produce a pose, alongside a non-nil error.
	Transform([]Input) (spatial.Pose, error)

	// DoF will return a slice with length equal to the number of degrees of freedom.
	// Each element describes the min and max movement limit of that degree of freedom.
	// Fixed joints return an empty slice.
	DoF() []Limit

	// AlmostEquals returns if the otherFrame is close to the frame.
	// differences should just be things like floating point inprecision
	AlmostEquals(otherFrame Frame) bool

	json.Marshaler
}

// a static Frame is a fixed translation from the parent joint.
type staticFrame struct {
	name   string
	offset r3.Vector
}

// NewStaticFrame creates a fixed joint given its translation relative to its parent.
func NewStaticFrame(name string, offset r3.Vector) (Frame, error) {
	if name == "" {
		return nil, errors.Wrap(ErrConfig, "joint name cannot be empty")
	}
	return &staticFrame{name, offset}, nil
}

// Name is the name of the frame.
func (sf *staticFrame) Name() string {
	return sf.name
}

func (sf *staticFrame) Type() JointType {
	return FixedJoint
}

func (sf *staticFrame) Axis() r3.Vector {
	return r3.Vector{}
}

func (sf *staticFrame) Offset() r3.Vector {
	return sf.offset
}

// Transform returns the pose associated with this static frame.
func (sf *staticFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 0 {
		return spatial.Pose{}, NewIncorrectDoFError(len(input), 0)
	}
	return spatial.NewPoseFromPoint(sf.offset), nil
}

// DoF are the degrees of freedom of the transform. In the staticFrame, it is always 0.
func (sf *staticFrame) DoF() []Limit {
	return []Limit{}
}

func (sf *staticFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(JointConfigFromFrame(sf, ""))
}

func (sf *staticFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*staticFrame)
	return ok && sf.name == other.name && spatial.R3VectorAlmostEqual(sf.offset, other.offset, 1e-8)
}

// a translationalFrame is a prismatic joint: it translates along a single axis.
type translationalFrame struct {
	name      string
	offset    r3.Vector
	transAxis r3.Vector
	limit     []Limit
}

// NewTranslationalFrame creates a prismatic joint given a name, its offset from the parent and the unit axis along
// which it translates.
func NewTranslationalFrame(name string, offset, axis r3.Vector, limit Limit) (Frame, error) {
	if name == "" {
		return nil, errors.Wrap(ErrConfig, "joint name cannot be empty")
	}
	if err := checkUnitAxis(name, axis); err != nil {
		return nil, err
	}
	return &translationalFrame{name: name, offset: offset, transAxis: axis, limit: []Limit{limit}}, nil
}

// Name is the name of the frame.
func (pf *translationalFrame) Name() string {
	return pf.name
}

func (pf *translationalFrame) Type() JointType {
	return PrismaticJoint
}

func (pf *translationalFrame) Axis() r3.Vector {
	return pf.transAxis
}

func (pf *translationalFrame) Offset() r3.Vector {
	return pf.offset
}

// Transform returns the offset pose translated by the amount specified in the inputs.
func (pf *translationalFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 1 {
		return spatial.Pose{}, NewIncorrectDoFError(len(input), 1)
	}
	var err error
	// We allow out-of-bounds calculations, but will return a non-nil error
	if !pf.limit[0].Contains(input[0].Value) {
		err = NewOutOfLimitsError(pf.name, input[0].Value, pf.limit[0])
	}
	return spatial.NewPoseFromPoint(pf.offset.Add(pf.transAxis.Mul(input[0].Value))), err
}

// DoF are the degrees of freedom of the transform.
func (pf *translationalFrame) DoF() []Limit {
	return pf.limit
}

func (pf *translationalFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(JointConfigFromFrame(pf, ""))
}

func (pf *translationalFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*translationalFrame)
	return ok && pf.name == other.name &&
		spatial.R3VectorAlmostEqual(pf.transAxis, other.transAxis, 1e-8) &&
		spatial.R3VectorAlmostEqual(pf.offset, other.offset, 1e-8) &&
		limitsAlmostEqual(pf.DoF(), other.DoF())
}

type rotationalFrame struct {
	name    string
	offset  r3.Vector
	rotAxis r3.Vector
	limit   []Limit
}

// NewRotationalFrame creates a new revolute joint given a name, its offset from the parent and the unit axis
// about which it rotates. A standard revolute joint will have 1 DoF.
func NewRotationalFrame(name string, offset, axis r3.Vector, limit Limit) (Frame, error) {
	if name == "" {
		return nil, errors.Wrap(ErrConfig, "joint name cannot be empty")
	}
	if err := checkUnitAxis(name, axis); err != nil {
		return nil, err
	}
	return &rotationalFrame{
		name:    name,
		offset:  offset,
		rotAxis: axis,
		limit:   []Limit{limit},
	}, nil
}

// Name returns the name of the frame.
func (rf *rotationalFrame) Name() string {
	return rf.name
}

func (rf *rotationalFrame) Type() JointType {
	return RevoluteJoint
}

func (rf *rotationalFrame) Axis() r3.Vector {
	return rf.rotAxis
}

func (rf *rotationalFrame) Offset() r3.Vector {
	return rf.offset
}

// Transform returns the Pose representing the joint's offset followed by its rotation. Requires a slice
// of inputs that has length equal to the degrees of freedom of the frame.
func (rf *rotationalFrame) Transform(input []Input) (spatial.Pose, error) {
	if len(input) != 1 {
		return spatial.Pose{}, NewIncorrectDoFError(len(input), 1)
	}
	var err error
	// We allow out-of-bounds calculations, but will return a non-nil error
	if !rf.limit[0].Contains(input[0].Value) {
		err = NewOutOfLimitsError(rf.name, input[0].Value, rf.limit[0])
	}
	// Create a copy of the r4aa for thread safety
	rot := &spatial.R4AA{Theta: input[0].Value, RX: rf.rotAxis.X, RY: rf.rotAxis.Y, RZ: rf.rotAxis.Z}
	return spatial.NewPose(rf.offset, rot.ToQuat()), err
}

// DoF returns the number of degrees of freedom that a joint has. This would be 1 for a standard revolute joint.
func (rf *rotationalFrame) DoF() []Limit {
	return rf.limit
}

func (rf *rotationalFrame) MarshalJSON() ([]byte, error) {
	return json.Marshal(JointConfigFromFrame(rf, ""))
}

func (rf *rotationalFrame) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*rotationalFrame)
	return ok && rf.name == other.name &&
		spatial.R3VectorAlmostEqual(rf.rotAxis, other.rotAxis, 1e-8) &&
		spatial.R3VectorAlmostEqual(rf.offset, other.offset, 1e-8) &&
		limitsAlmostEqual(rf.DoF(), other.DoF())
}

func checkUnitAxis(name string, axis r3.Vector) error {
	if math.Abs(axis.Norm()-1) > axisTolerance {
		return errors.Wrapf(ErrConfig, "joint %q axis %v is not a unit vector", name, axis)
	}
	return nil
}
