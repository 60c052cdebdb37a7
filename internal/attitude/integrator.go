package attitude

import (
	"github.com/banshee-data/flightlink/internal/quaternion"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Integrator accumulates gyroscope samples into an attitude quaternion.
// It is not safe for concurrent use.
type Integrator struct {
	// Offset is the raw gyro calibration offset subtracted from every sample.
	Offset vecmath.Vector3d
	// TickPeriod is the duration of one sensor tick in seconds. When zero,
	// or when tick deltas are unusable, each sample advances by 1/Freq.
	TickPeriod float64

	q        quaternion.Quaternion
	lastTick int64
	primed   bool
	samples  int
}

// NewIntegrator returns an Integrator starting at the identity attitude.
func NewIntegrator(offset vecmath.Vector3d, tickPeriod float64) *Integrator {
	return &Integrator{Offset: offset, TickPeriod: tickPeriod, q: quaternion.Identity()}
}

// Update rotates the current attitude by the rate in g over the elapsed
// interval and returns the new attitude.
func (in *Integrator) Update(g records.Gyroscope) quaternion.Quaternion {
	q := in.Attitude()
	dt := in.interval(g)
	in.lastTick = g.Tick
	in.primed = true
	in.samples++

	rate := AngularSpeed(g, in.Offset)
	if !rate.IsNull() {
		q = q.Mul(quaternion.FromAxisAndAngle(rate.Normalized(), rate.Length()*dt))
		q.Normalize()
	}
	in.q = q
	return q
}

func (in *Integrator) interval(g records.Gyroscope) float64 {
	if in.TickPeriod > 0 && in.primed && g.Tick > in.lastTick {
		return float64(g.Tick-in.lastTick) * in.TickPeriod
	}
	return 1 / g.SampleFreq()
}

// Attitude returns the current orientation estimate.
func (in *Integrator) Attitude() quaternion.Quaternion {
	if in.q == (quaternion.Quaternion{}) {
		return quaternion.Identity()
	}
	return in.q
}

// Samples returns the number of samples integrated since the last Reset.
func (in *Integrator) Samples() int { return in.samples }

// Reset returns the integrator to the identity attitude and forgets the last
// tick. Offset and TickPeriod are kept.
func (in *Integrator) Reset() {
	in.q = quaternion.Identity()
	in.lastTick = 0
	in.primed = false
	in.samples = 0
}
