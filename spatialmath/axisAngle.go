package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// R4AA is a rotation of Theta radians about the axis (RX, RY, RZ). The axis need not be unit length;
// it is normalized on conversion. Joint motion and pose deltas are both expressed this way.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA returns the zero rotation about +Z.
func NewR4AA() *R4AA {
	return &R4AA{RZ: 1}
}

// Axis returns the rotation axis as a vector.
func (r4 *R4AA) Axis() r3.Vector {
	return r3.Vector{X: r4.RX, Y: r4.RY, Z: r4.RZ}
}

// ToR3 returns the scaled axis, whose length is the angle.
func (r4 *R4AA) ToR3() r3.Vector {
	return r4.Axis().Mul(r4.Theta)
}

// ToQuat returns the unit quaternion of the rotation. A zero axis gives the identity.
func (r4 *R4AA) ToQuat() quat.Number {
	axis := r4.Axis()
	norm := axis.Norm()
	if norm == 0 {
		return NewZeroOrientation()
	}
	axis = axis.Mul(math.Sin(r4.Theta/2) / norm)
	return quat.Number{Real: math.Cos(r4.Theta / 2), Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
}

// QuatToR4AA returns the axis angle of q. The angle is negative when q's real part is.
func QuatToR4AA(q quat.Number) R4AA {
	sinHalf := Norm(q)
	angle := 2 * math.Atan2(sinHalf, math.Abs(q.Real))
	if q.Real < 0 {
		angle = -angle
	}
	if sinHalf < 1e-6 {
		return R4AA{Theta: angle, RX: 1}
	}
	return R4AA{Theta: angle, RX: q.Imag / sinHalf, RY: q.Jmag / sinHalf, RZ: q.Kmag / sinHalf}
}

// QuatToR3AA converts a quat to the scaled axis (R3 axis angle) of its shortest rotation.
// The identity rotation maps to the zero vector.
func QuatToR3AA(q quat.Number) r3.Vector {
	if q.Real < 0 {
		q = Flip(q)
	}
	sinHalf := Norm(q)
	if sinHalf < 1e-12 {
		return r3.Vector{}
	}
	angle := 2 * math.Atan2(sinHalf, q.Real)
	return r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}.Mul(angle / sinHalf)
}

// R3ToR4 splits a scaled axis into angle and unit axis.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	axis := aa.Mul(1 / theta)
	return &R4AA{Theta: theta, RX: axis.X, RY: axis.Y, RZ: axis.Z}
}
