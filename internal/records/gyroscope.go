package records

import (
	"github.com/banshee-data/flightlink/internal/bytestream"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// RawCount is the size of the sensor register dump carried in every
// Gyroscope block.
const RawCount = 46

// DefaultFreq is the sample rate assumed when the sensor reports none, Hz.
const DefaultFreq = 100

// Gyroscope is the inertial sensor block: raw integer gyro and accel
// readings, the calibration range selectors and the untouched register dump.
type Gyroscope struct {
	Temp   float32
	Gyro   vecmath.Vector3i
	Accel  vecmath.Vector3i
	AfsSel uint8 // accel full-scale selector, 0..3
	FsSel  uint8 // gyro full-scale selector, 0..3
	Freq   float32
	Tick   int64
	Raw    [RawCount]byte
}

// NewGyroscope returns a zeroed block at the default sample rate.
func NewGyroscope() Gyroscope {
	return Gyroscope{Freq: DefaultFreq}
}

// SampleFreq returns Freq, or DefaultFreq when the sensor reported zero.
func (g Gyroscope) SampleFreq() float64 {
	if g.Freq == 0 {
		return DefaultFreq
	}
	return float64(g.Freq)
}

func (g *Gyroscope) EncodeTo(s *bytestream.Stream) {
	s.WriteFloat(g.Temp)
	for _, c := range g.Gyro {
		s.WriteInt32(c)
	}
	for _, c := range g.Accel {
		s.WriteInt32(c)
	}
	s.WriteUint8(g.AfsSel)
	s.WriteUint8(g.FsSel)
	s.WriteFloat(g.Freq)
	s.WriteInt64(g.Tick)
	s.WriteRaw(g.Raw[:])
}

func (g *Gyroscope) DecodeFrom(s *bytestream.Stream) {
	g.Temp = s.ReadFloat()
	for i := range g.Gyro {
		g.Gyro[i] = s.ReadInt32()
	}
	for i := range g.Accel {
		g.Accel[i] = s.ReadInt32()
	}
	g.AfsSel = s.ReadUint8()
	g.FsSel = s.ReadUint8()
	g.Freq = s.ReadFloat()
	g.Tick = s.ReadInt64()
	s.ReadRaw(g.Raw[:])
}

func (g *Gyroscope) EncodedSize() int { return GyroscopeSize }
