package quaternion

import (
	"math"

	"github.com/banshee-data/flightlink/internal/vecmath"
)

// FromEuler builds a rotation from aerospace Tait-Bryan angles in degrees,
// applied yaw (Z), then pitch (Y), then roll (X).
func FromEuler(pitchDeg, rollDeg, yawDeg float64) Quaternion {
	sp, cp := math.Sincos(vecmath.DegToRad(pitchDeg) / 2)
	sr, cr := math.Sincos(vecmath.DegToRad(rollDeg) / 2)
	sy, cy := math.Sincos(vecmath.DegToRad(yawDeg) / 2)

	return Quaternion{
		V: vecmath.Vector3d{
			sr*cp*cy - cr*sp*sy,
			cr*sp*cy + sr*cp*sy,
			cr*cp*sy - sr*sp*cy,
		},
		W: cr*cp*cy + sr*sp*sy,
	}
}

// Euler returns pitch, roll and yaw in degrees. Pitch is in [-90, 90], roll
// and yaw in (-180, 180].
func (q Quaternion) Euler() (pitchDeg, rollDeg, yawDeg float64) {
	q.Normalize()
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sinPitch := math.Max(-1, math.Min(1, 2*(w*y-z*x)))
	pitch := math.Asin(sinPitch)
	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return vecmath.RadToDeg(pitch), vecmath.RadToDeg(roll), vecmath.RadToDeg(yaw)
}

// Course returns yaw as a compass course in [0, 360).
func (q Quaternion) Course() float64 {
	_, _, yaw := q.Euler()
	if yaw < 0 {
		yaw += 360
	}
	return yaw
}
