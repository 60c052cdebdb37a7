// Package quaternion implements unit-rotation quaternions over vecmath.Vector3d
// with Hamilton multiplication, vector rotation and slerp/nlerp interpolation.
//
// A rotation of θ about unit axis n is stored as V = n·sin(θ/2), W = cos(θ/2).
package quaternion

import (
	"fmt"
	"math"

	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Quaternion is a value-type rotation. The zero value is not a rotation; use
// Identity.
type Quaternion struct {
	V vecmath.Vector3d
	W float64
}

// Identity returns the no-rotation quaternion.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// New builds a quaternion from its vector components and scalar part.
func New(x, y, z, w float64) Quaternion {
	return Quaternion{V: vecmath.Vector3d{x, y, z}, W: w}
}

// FromVector builds a quaternion from a vector part and scalar part.
func FromVector(v vecmath.Vector3d, w float64) Quaternion {
	return Quaternion{V: v, W: w}
}

func (q Quaternion) X() float64 { return q.V[0] }
func (q Quaternion) Y() float64 { return q.V[1] }
func (q Quaternion) Z() float64 { return q.V[2] }

// IsIdentity reports whether q is exactly the identity rotation.
func (q Quaternion) IsIdentity() bool {
	return q.W == 1 && q.V[0] == 0 && q.V[1] == 0 && q.V[2] == 0
}

// LengthSquared returns |V|² + W².
func (q Quaternion) LengthSquared() float64 {
	return q.V.LengthSquare() + q.W*q.W
}

// Length returns the quaternion norm.
func (q Quaternion) Length() float64 {
	return math.Sqrt(q.LengthSquared())
}

// Conj returns (−V, W).
func (q Quaternion) Conj() Quaternion {
	return Quaternion{V: q.V.Inv(), W: q.W}
}

// Mul returns the Hamilton product q·r.
func (q Quaternion) Mul(r Quaternion) Quaternion {
	v := r.V.Scale(q.W).Add(q.V.Scale(r.W)).Add(vecmath.Cross(q.V, r.V))
	return Quaternion{
		V: v,
		W: q.W*r.W - vecmath.Dot(q.V, r.V),
	}
}

// Add returns the componentwise sum.
func (q Quaternion) Add(r Quaternion) Quaternion {
	return Quaternion{V: q.V.Add(r.V), W: q.W + r.W}
}

// Sub returns the componentwise difference.
func (q Quaternion) Sub(r Quaternion) Quaternion {
	return Quaternion{V: q.V.Sub(r.V), W: q.W - r.W}
}

// Scale multiplies every component by s.
func (q Quaternion) Scale(s float64) Quaternion {
	return Quaternion{V: q.V.Scale(s), W: q.W * s}
}

// Normalize rescales q to unit length. It does nothing when the squared
// length is already within the null threshold of 0 or of 1.
func (q *Quaternion) Normalize() {
	q.NormalizeTol(vecmath.DefaultTolerance())
}

// NormalizeTol is Normalize with explicit thresholds.
func (q *Quaternion) NormalizeTol(tol vecmath.Tolerance) {
	l := q.LengthSquared()
	if tol.IsNull(l) || tol.IsNull(l-1.0) {
		return
	}
	inv := 1.0 / math.Sqrt(l)
	q.V.ScaleAssign(inv)
	q.W *= inv
}

// Normalized returns a normalized copy of q.
func (q Quaternion) Normalized() Quaternion {
	q.Normalize()
	return q
}

// RotatedVector rotates p by q, computing the vector part of q·(p,0)·conj(q).
func (q Quaternion) RotatedVector(p vecmath.Vector3d) vecmath.Vector3d {
	return q.Mul(Quaternion{V: p}).Mul(q.Conj()).V
}

// FromAxisAndAngle returns the rotation of angleDeg degrees about axis.
func FromAxisAndAngle(axis vecmath.Vector3d, angleDeg float64) Quaternion {
	half := vecmath.DegToRad(angleDeg) / 2.0
	q := Quaternion{
		V: axis.Normalized().Scale(math.Sin(half)),
		W: math.Cos(half),
	}
	q.Normalize()
	return q
}

// FromAxisAndAngleXYZ is FromAxisAndAngle with the axis given by components.
func FromAxisAndAngleXYZ(x, y, z, angleDeg float64) Quaternion {
	return FromAxisAndAngle(vecmath.Vector3d{x, y, z}, angleDeg)
}

// AxisAngle returns the rotation axis and angle in degrees. The identity
// rotation reports a zero axis.
func (q Quaternion) AxisAngle() (vecmath.Vector3d, float64) {
	q.Normalize()
	w := math.Max(-1, math.Min(1, q.W))
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < vecmath.LengthEpsilon {
		return vecmath.Vector3d{}, vecmath.RadToDeg(angle)
	}
	return q.V.Scale(1 / s), vecmath.RadToDeg(angle)
}

// Dot returns V1·V2 + W1·W2.
func Dot(q1, q2 Quaternion) float64 {
	return vecmath.Dot(q1.V, q2.V) + q1.W*q2.W
}

func (q Quaternion) String() string {
	return fmt.Sprintf("(%v [%v, %v, %v])", q.W, q.V[0], q.V[1], q.V[2])
}
