package vecmath

import "math"

// Default thresholds. NullEpsilon is the squared-magnitude (and general
// floating) zero test; LengthEpsilon guards divisions by a vector length.
const (
	NullEpsilon   = 1e-9
	LengthEpsilon = 1e-7
)

// Tolerance groups the two thresholds used across vector and quaternion code
// so callers can tune them together.
type Tolerance struct {
	Null   float64 `json:"null_epsilon" yaml:"null_epsilon"`
	Length float64 `json:"length_epsilon" yaml:"length_epsilon"`
}

// DefaultTolerance returns the stock thresholds.
func DefaultTolerance() Tolerance {
	return Tolerance{Null: NullEpsilon, Length: LengthEpsilon}
}

// IsNull reports whether |v| is below the null threshold.
func (t Tolerance) IsNull(v float64) bool {
	return math.Abs(v) < t.Null
}

// IsNull reports whether |v| < NullEpsilon.
func IsNull(v float64) bool {
	return math.Abs(v) < NullEpsilon
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
