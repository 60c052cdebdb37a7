package attitude

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// AngularSpeed returns the body rotation rate of g in degrees/second after
// subtracting the calibration offset (in raw counts). The rate does not
// depend on the sample frequency.
func AngularSpeed(g records.Gyroscope, offset vecmath.Vector3d) vecmath.Vector3d {
	raw := vecmath.Convert[float64](g.Gyro)
	return raw.Sub(offset).Scale(GyroScale(g.FsSel))
}

// AngularSpeedPerSample returns the rotation accumulated over one sample
// period, in degrees: AngularSpeed divided by the sample frequency. A zero
// Freq is treated as records.DefaultFreq.
func AngularSpeedPerSample(g records.Gyroscope, offset vecmath.Vector3d) vecmath.Vector3d {
	return AngularSpeed(g, offset).Scale(1 / g.SampleFreq())
}

// EstimateGyroOffset returns the mean raw gyro reading of samples taken
// while the vehicle is stationary. An empty slice yields a zero offset.
func EstimateGyroOffset(samples []records.Gyroscope) vecmath.Vector3d {
	var offset vecmath.Vector3d
	if len(samples) == 0 {
		return offset
	}
	axis := make([]float64, len(samples))
	for i := range offset {
		for j, s := range samples {
			axis[j] = float64(s.Gyro[i])
		}
		offset[i] = stat.Mean(axis, nil)
	}
	return offset
}
