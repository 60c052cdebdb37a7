// Package attitude converts raw inertial readings into physical rates and
// integrates them into an orientation estimate.
package attitude

import (
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// FullScaleCounts is the raw count corresponding to the selected full-scale
// range of the inertial sensor.
const FullScaleCounts = 32768

var (
	gyroRanges  = [...]float64{250, 500, 1000, 2000} // degrees/second
	accelRanges = [...]float64{2, 4, 8, 16}          // g
)

// GyroRange returns the full-scale gyro range in degrees/second for fsSel.
// Selectors outside 0..3 fall back to the 250 deg/s range.
func GyroRange(fsSel uint8) float64 {
	if int(fsSel) >= len(gyroRanges) {
		return gyroRanges[0]
	}
	return gyroRanges[fsSel]
}

// GyroScale returns degrees/second per raw count for fsSel.
func GyroScale(fsSel uint8) float64 {
	return GyroRange(fsSel) / FullScaleCounts
}

// AccelRange returns the full-scale accelerometer range in g for afsSel.
// Selectors outside 0..3 fall back to the 2 g range.
func AccelRange(afsSel uint8) float64 {
	if int(afsSel) >= len(accelRanges) {
		return accelRanges[0]
	}
	return accelRanges[afsSel]
}

// AccelScale returns g per raw count for afsSel.
func AccelScale(afsSel uint8) float64 {
	return AccelRange(afsSel) / FullScaleCounts
}

// Acceleration returns the accelerometer reading of g in units of g.
func Acceleration(g records.Gyroscope) vecmath.Vector3d {
	return vecmath.Convert[float64](g.Accel).Scale(AccelScale(g.AfsSel))
}
