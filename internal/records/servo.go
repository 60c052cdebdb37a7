package records

import "github.com/banshee-data/flightlink/internal/bytestream"

// Servo is the actuator command block embedded in Controls.
type Servo struct {
	FreqMeander   float32 // PWM carrier frequency, Hz
	Angle         float32 // target angle, degrees
	SpeedOfChange float32 // slew rate, degrees/second
	TimeworkMs    int32   // run time, milliseconds
	FlagStart     bool
	Pin           uint8
}

// TriggerStart reports a false→true edge of FlagStart relative to last.
func (sv Servo) TriggerStart(last Servo) bool {
	return sv.FlagStart && !last.FlagStart
}

func (sv *Servo) EncodeTo(s *bytestream.Stream) {
	s.WriteFloat(sv.FreqMeander)
	s.WriteFloat(sv.Angle)
	s.WriteFloat(sv.SpeedOfChange)
	s.WriteInt32(sv.TimeworkMs)
	s.WriteBool(sv.FlagStart)
	s.WriteUint8(sv.Pin)
}

func (sv *Servo) DecodeFrom(s *bytestream.Stream) {
	sv.FreqMeander = s.ReadFloat()
	sv.Angle = s.ReadFloat()
	sv.SpeedOfChange = s.ReadFloat()
	sv.TimeworkMs = s.ReadInt32()
	sv.FlagStart = s.ReadBool()
	sv.Pin = s.ReadUint8()
}

func (sv *Servo) EncodedSize() int { return ServoSize }
