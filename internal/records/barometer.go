package records

import "github.com/banshee-data/flightlink/internal/bytestream"

// Barometer is the pressure sensor block. Data and Temp are raw sensor units.
type Barometer struct {
	Tick int64
	Data int32
	Temp int32
}

func (b *Barometer) EncodeTo(s *bytestream.Stream) {
	s.WriteInt64(b.Tick)
	s.WriteInt32(b.Data)
	s.WriteInt32(b.Temp)
}

func (b *Barometer) DecodeFrom(s *bytestream.Stream) {
	b.Tick = s.ReadInt64()
	b.Data = s.ReadInt32()
	b.Temp = s.ReadInt32()
}

func (b *Barometer) EncodedSize() int { return BarometerSize }
