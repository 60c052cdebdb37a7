// Package vecmath implements a fixed three-component vector over any numeric
// element type. Vector3f, Vector3d and Vector3i are the instantiations used for
// sensor readings and attitude math.
package vecmath

import (
	"errors"
	"fmt"
	"math"
)

// ErrIndexOutOfRange is returned by indexed access outside [0, Count).
var ErrIndexOutOfRange = errors.New("vecmath: index out of range")

// Count is the number of components in a Vector3.
const Count = 3

// Number is the set of element types a Vector3 may hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Vector3 is a value-type 3D vector.
type Vector3[T Number] [Count]T

type (
	Vector3f = Vector3[float32]
	Vector3d = Vector3[float64]
	Vector3i = Vector3[int32]
)

// New builds a vector from its components.
func New[T Number](x, y, z T) Vector3[T] {
	return Vector3[T]{x, y, z}
}

// Convert casts every component of v to element type T.
func Convert[T, P Number](v Vector3[P]) Vector3[T] {
	return Vector3[T]{T(v[0]), T(v[1]), T(v[2])}
}

func (v Vector3[T]) X() T { return v[0] }
func (v Vector3[T]) Y() T { return v[1] }
func (v Vector3[T]) Z() T { return v[2] }

func (v *Vector3[T]) SetX(x T) { v[0] = x }
func (v *Vector3[T]) SetY(y T) { v[1] = y }
func (v *Vector3[T]) SetZ(z T) { v[2] = z }

// At returns component i.
func (v Vector3[T]) At(i int) (T, error) {
	if i < 0 || i >= Count {
		var zero T
		return zero, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return v[i], nil
}

// MustAt returns component i and panics when i is out of range.
func (v Vector3[T]) MustAt(i int) T {
	c, err := v.At(i)
	if err != nil {
		panic(err)
	}
	return c
}

// Set assigns component i.
func (v *Vector3[T]) Set(i int, value T) error {
	if i < 0 || i >= Count {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	v[i] = value
	return nil
}

// Clear zeroes every component.
func (v *Vector3[T]) Clear() {
	*v = Vector3[T]{}
}

// Add returns v + o.
func (v Vector3[T]) Add(o Vector3[T]) Vector3[T] {
	return Vector3[T]{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns v - o.
func (v Vector3[T]) Sub(o Vector3[T]) Vector3[T] {
	return Vector3[T]{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Mul returns the elementwise product of v and o.
func (v Vector3[T]) Mul(o Vector3[T]) Vector3[T] {
	return Vector3[T]{v[0] * o[0], v[1] * o[1], v[2] * o[2]}
}

// Scale returns v multiplied by s.
func (v Vector3[T]) Scale(s T) Vector3[T] {
	return Vector3[T]{v[0] * s, v[1] * s, v[2] * s}
}

func (v *Vector3[T]) AddAssign(o Vector3[T]) { *v = v.Add(o) }

func (v *Vector3[T]) SubAssign(o Vector3[T]) { *v = v.Sub(o) }

func (v *Vector3[T]) ScaleAssign(s T) { *v = v.Scale(s) }

// Inv returns the negated vector.
func (v Vector3[T]) Inv() Vector3[T] {
	return Vector3[T]{-v[0], -v[1], -v[2]}
}

// LengthSquare returns the sum of squared components, computed in float64.
func (v Vector3[T]) LengthSquare() float64 {
	var res float64
	for _, c := range v {
		f := float64(c)
		res += f * f
	}
	return res
}

// Length returns the Euclidean norm.
func (v Vector3[T]) Length() float64 {
	return math.Sqrt(v.LengthSquare())
}

// IsNull reports whether the squared length is below NullEpsilon.
func (v Vector3[T]) IsNull() bool {
	return v.LengthSquare() < NullEpsilon
}

// Normalize scales v to unit length. Vectors shorter than LengthEpsilon are
// left unchanged.
func (v *Vector3[T]) Normalize() {
	v.NormalizeTol(DefaultTolerance())
}

// NormalizeTol is Normalize with an explicit length threshold.
func (v *Vector3[T]) NormalizeTol(tol Tolerance) {
	l := v.Length()
	if math.Abs(l) < tol.Length {
		return
	}
	inv := 1.0 / l
	for i := range v {
		v[i] = T(float64(v[i]) * inv)
	}
}

// Normalized returns a normalized copy of v.
func (v Vector3[T]) Normalized() Vector3[T] {
	v.Normalize()
	return v
}

func (v Vector3[T]) String() string {
	return fmt.Sprintf("[%v; %v; %v]", v[0], v[1], v[2])
}

// Dot returns the scalar product of a and b in float64.
func Dot[T Number](a, b Vector3[T]) float64 {
	var res float64
	for i := range a {
		res += float64(a[i]) * float64(b[i])
	}
	return res
}

// Cross returns the right-handed cross product a × b.
func Cross[T Number](a, b Vector3[T]) Vector3[T] {
	return Vector3[T]{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
