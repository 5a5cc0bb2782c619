package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() quat.Number {
	return quat.Number{Real: 1}
}

// NewQuaternionFromEuler returns the rotation built from roll, pitch and yaw (radians) applied in
// the fixed-axis order X, then Y, then Z; equivalently Rz(yaw) * Ry(pitch) * Rx(roll).
func NewQuaternionFromEuler(roll, pitch, yaw float64) quat.Number {
	qx := (&R4AA{Theta: roll, RX: 1}).ToQuat()
	qy := (&R4AA{Theta: pitch, RY: 1}).ToQuat()
	qz := (&R4AA{Theta: yaw, RZ: 1}).ToQuat()
	return quat.Mul(qz, quat.Mul(qy, qx))
}

// EulerAngles are three angles (in radians) used to represent the rotation of an object in 3D Euclidean space.
// The rotation is Rz(yaw) * Ry(pitch) * Rx(roll).
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Quaternion returns orientation in quaternion representation.
func (ea EulerAngles) Quaternion() quat.Number {
	return NewQuaternionFromEuler(ea.Roll, ea.Pitch, ea.Yaw)
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	rotated := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: rotated.Imag, Y: rotated.Jmag, Z: rotated.Kmag}
}

// Normalize scales q to unit length. The zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if length == 0 {
		return NewZeroOrientation()
	}
	return quat.Scale(1/length, q)
}

// QuaternionAlmostEqual is an equality test for rotations. q and -q encode the same rotation and
// compare equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	same := math.Abs(a.Real-b.Real) < tol && math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol && math.Abs(a.Kmag-b.Kmag) < tol
	if same {
		return true
	}
	b = Flip(b)
	return math.Abs(a.Real-b.Real) < tol && math.Abs(a.Imag-b.Imag) < tol &&
		math.Abs(a.Jmag-b.Jmag) < tol && math.Abs(a.Kmag-b.Kmag) < tol
}

// QuaternionCoords returns the quaternion coordinates ordered imaginary first: x, y, z, w.
func QuaternionCoords(q quat.Number) []float64 {
	return []float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

// QuatToEuler converts a rotation unit quaternion to euler angles (roll, pitch, yaw) in radians.
// See the following wikipedia page for the formulas used here:
// https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles#Quaternion_to_Euler_angles_conversion
// Euler angles are terrible, don't use them.
func QuatToEuler(q quat.Number) []float64 {
	w := q.Real
	x := q.Imag
	y := q.Jmag
	z := q.Kmag

	sinp := 2 * (w*y - x*z)
	// clamp for floating point drift near the poles
	if sinp > 1 {
		sinp = 1
	} else if sinp < -1 {
		sinp = -1
	}

	return []float64{
		math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		math.Asin(sinp),
		math.Atan2(2*(w*z+y*x), 1-2*(y*y+z*z)),
	}
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}
