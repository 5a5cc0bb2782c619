// Package spatialmath defines spatial mathematical operations
package spatialmath

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// defaultPrecision is the tolerance used by the AlmostEqual helpers.
const defaultPrecision = 1e-6

// Pose is a rigid transform: a translation plus a unit quaternion rotation. Poses are values and
// are safe to copy.
type Pose struct {
	point       r3.Vector
	orientation quat.Number
}

// NewZeroPose returns a pose with no translation and the identity rotation.
func NewZeroPose() Pose {
	return Pose{orientation: quat.Number{Real: 1}}
}

// NewPose returns a pose at the given point with the given rotation. The rotation is normalized.
func NewPose(point r3.Vector, orientation quat.Number) Pose {
	return Pose{point: point, orientation: Normalize(orientation)}
}

// NewPoseFromPoint returns a pose at the given point with the identity rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return Pose{point: point, orientation: quat.Number{Real: 1}}
}

// NewPoseFromOrientation returns a pose at the origin with the given rotation.
func NewPoseFromOrientation(orientation quat.Number) Pose {
	return NewPose(r3.Vector{}, orientation)
}

// Point returns the translation of the pose.
func (p Pose) Point() r3.Vector {
	return p.point
}

// Orientation returns the unit quaternion rotation of the pose.
func (p Pose) Orientation() quat.Number {
	return p.orientation
}

// WithPoint returns a copy of the pose moved to the given point, keeping its rotation.
func (p Pose) WithPoint(point r3.Vector) Pose {
	p.point = point
	return p
}

// Translate returns a copy of the pose whose translation is offset by the given vector.
func (p Pose) Translate(offset r3.Vector) Pose {
	p.point = p.point.Add(offset)
	return p
}

// Matrix returns the homogeneous 4x4 matrix of the pose.
func (p Pose) Matrix() mgl64.Mat4 {
	q := mgl64.Quat{W: p.orientation.Real, V: mgl64.Vec3{p.orientation.Imag, p.orientation.Jmag, p.orientation.Kmag}}
	return mgl64.Translate3D(p.point.X, p.point.Y, p.point.Z).Mul4(q.Mat4())
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.6f Y:%.6f Z:%.6f Q:[%.6f %.6f %.6f %.6f]}",
		p.point.X, p.point.Y, p.point.Z,
		p.orientation.Real, p.orientation.Imag, p.orientation.Jmag, p.orientation.Kmag)
}

// Compose returns the pose obtained by applying b in the frame of a, i.e. a * b.
func Compose(a, b Pose) Pose {
	return Pose{
		point:       a.point.Add(RotateVector(a.orientation, b.point)),
		orientation: quat.Mul(a.orientation, b.orientation),
	}
}

// PoseInverse returns the inverse transform of p.
func PoseInverse(p Pose) Pose {
	inv := quat.Conj(p.orientation)
	return Pose{
		point:       RotateVector(inv, p.point).Mul(-1),
		orientation: inv,
	}
}

// PoseBetween returns the pose that takes a to b, i.e. inverse(a) * b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDeltaR3 returns the world-frame difference between two poses as a 6-vector: the translation
// from `from` to `to`, followed by the R3 axis angle of the rotation taking `from` to `to`.
func PoseDeltaR3(from, to Pose) []float64 {
	trans := to.point.Sub(from.point)
	rot := QuatToR3AA(quat.Mul(to.orientation, quat.Conj(from.orientation)))
	return []float64{trans.X, trans.Y, trans.Z, rot.X, rot.Y, rot.Z}
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, defaultPrecision)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same within epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.point, b.point, epsilon) && QuaternionAlmostEqual(a.orientation, b.orientation, epsilon)
}

// R3VectorAlmostEqual compares two r3.Vectors and returns if they are within epsilon of each other.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return a.Sub(b).Norm() < epsilon
}
