package quaternion

import (
	"math"

	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Nlerp blends p0 and p1 linearly and normalizes the result. t is clamped:
// t ≤ 0 returns p0 and t ≥ 1 returns p1 unchanged.
func Nlerp(p0, p1 Quaternion, t float64) Quaternion {
	if t <= 0 {
		return p0
	}
	if t >= 1 {
		return p1
	}
	return p0.Scale(1 - t).Add(p1.Scale(t)).Normalized()
}

// Slerp interpolates along the great arc between p0 and p1 using the default
// tolerances.
func Slerp(p0, p1 Quaternion, t float64) Quaternion {
	return SlerpTol(p0, p1, t, vecmath.DefaultTolerance())
}

// SlerpTol is Slerp with explicit thresholds.
//
// When p0 and p1 are orthogonal (dot within tol.Null of zero) the result is
// p0 regardless of t. This mirrors the behaviour deployed on the vehicle and
// is kept until the intended quarter-turn semantics are confirmed.
// When the arc is too short for a stable sine ratio the weights fall back to
// the linear (1−t, t).
func SlerpTol(p0, p1 Quaternion, t float64, tol vecmath.Tolerance) Quaternion {
	if t <= 0 {
		return p0
	}
	if t >= 1 {
		return p1
	}
	dot := Dot(p0, p1)
	if tol.IsNull(dot) {
		return p0
	}

	f0, f1 := 1-t, t
	if 1-dot > tol.Length {
		theta := math.Acos(math.Max(-1, math.Min(dot, 1)))
		sinTheta := math.Sin(theta)
		if sinTheta > tol.Length {
			f0 = math.Sin((1-t)*theta) / sinTheta
			f1 = math.Sin(t*theta) / sinTheta
		}
	}
	res := p0.Scale(f0).Add(p1.Scale(f1))
	res.NormalizeTol(tol)
	return res
}
