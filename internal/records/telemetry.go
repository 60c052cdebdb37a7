package records

import "github.com/banshee-data/flightlink/internal/bytestream"

// EngineCount is the number of engine power channels in a Telemetry frame.
const EngineCount = 4

// Telemetry is the aggregate frame reported by the vehicle.
type Telemetry struct {
	PowerOn   bool
	Power     [EngineCount]float32
	Pitch     float32 // tangaj, degrees
	Roll      float32 // bank, degrees
	Course    float32 // degrees
	Height    float32 // metres
	Gyroscope Gyroscope
	Compass   Compass
	Barometer Barometer
}

// NewTelemetry returns a zeroed frame whose gyroscope block carries the
// default sample rate.
func NewTelemetry() Telemetry {
	return Telemetry{Gyroscope: NewGyroscope()}
}

func (t *Telemetry) EncodeTo(s *bytestream.Stream) {
	beginFrame(s)

	s.WriteBool(t.PowerOn)
	for _, p := range t.Power {
		s.WriteFloat(p)
	}
	s.WriteFloat(t.Pitch)
	s.WriteFloat(t.Roll)
	s.WriteFloat(t.Course)
	s.WriteFloat(t.Height)
	t.Gyroscope.EncodeTo(s)
	t.Compass.EncodeTo(s)
	t.Barometer.EncodeTo(s)
}

func (t *Telemetry) DecodeFrom(s *bytestream.Stream) {
	beginFrame(s)

	t.PowerOn = s.ReadBool()
	for i := range t.Power {
		t.Power[i] = s.ReadFloat()
	}
	t.Pitch = s.ReadFloat()
	t.Roll = s.ReadFloat()
	t.Course = s.ReadFloat()
	t.Height = s.ReadFloat()
	t.Gyroscope.DecodeFrom(s)
	t.Compass.DecodeFrom(s)
	t.Barometer.DecodeFrom(s)
}

func (t *Telemetry) EncodedSize() int { return TelemetrySize }
