package kinematics

import "github.com/pkg/errors"

var (
	// ErrIKFailure is returned, wrapped, when the solver cannot reach a target within its iteration budget or
	// hits a singular configuration.
	ErrIKFailure = errors.New("inverse kinematics failed")

	// ErrStaleTransforms is returned when world transforms are read after a mutation and before they are recomputed.
	ErrStaleTransforms = errors.New("world transforms are stale, recompute them first")

	// ErrJointNotFound is returned, wrapped, when a joint name is not part of the chain.
	ErrJointNotFound = errors.New("joint not found")
)

// NewJointNotFoundError returns an error indicating that name is not a joint of the chain.
func NewJointNotFoundError(name string) error {
	return errors.Wrapf(ErrJointNotFound, "%q", name)
}
