package referenceframe

import "github.com/pkg/errors"

// OOBErrString is a string that all OOB errors should contain, so that they can be checked for distinct from other Transform errors.
const OOBErrString = "input out of bounds"

var (
	// ErrConfig is returned, wrapped, when a joint or chain description is invalid.
	ErrConfig = errors.New("invalid chain configuration")

	// ErrDimensionMismatch is returned, wrapped, when a joint vector does not match the number of movable joints.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrOutOfLimits is returned, wrapped, when a joint value lies outside the joint's limits.
	ErrOutOfLimits = errors.New(OOBErrString)

	// ErrNoModelInformation is used when there is no model information.
	ErrNoModelInformation = errors.New("no model information")

	// ErrCircularReference is returned when a joint is found to be its own ancestor.
	ErrCircularReference = errors.Wrap(ErrConfig, "infinite loop finding path from end effector to world")

	// ErrNeedOneEndEffector is returned when a model does not form a single unbranched chain.
	ErrNeedOneEndEffector = errors.Wrap(ErrConfig, "need exactly one end effector")
)

// NewIncorrectDoFError returns an error indicating that the length of an input slice does not match the DoF of a frame.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Wrapf(ErrDimensionMismatch, "number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}

// NewDuplicateJointError returns an error indicating that a joint name is used more than once.
func NewDuplicateJointError(name string) error {
	return errors.Wrapf(ErrConfig, "joint name %q is used more than once", name)
}

// NewFrameMissingError returns an error indicating that a joint refers to a parent that is not part of the model.
func NewFrameMissingError(name string) error {
	return errors.Wrapf(ErrConfig, "parent frame %q is not part of the model", name)
}

// NewUnsupportedJointTypeError returns an error indicating that the given joint type is not supported.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Wrapf(ErrConfig, "unsupported joint type detected: %q", jointType)
}

// NewOutOfLimitsError returns an error indicating that value lies outside of limit.
func NewOutOfLimitsError(name string, value float64, limit Limit) error {
	return errors.Wrapf(ErrOutOfLimits, "joint %q value %.5f not in [%.5f, %.5f]", name, value, limit.Min, limit.Max)
}
