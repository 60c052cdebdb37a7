package records

import (
	"github.com/banshee-data/flightlink/internal/bytestream"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Compass is the magnetometer block.
type Compass struct {
	Mode uint8
	Tick int64
	Data vecmath.Vector3i
}

func (c *Compass) EncodeTo(s *bytestream.Stream) {
	s.WriteUint8(c.Mode)
	s.WriteInt64(c.Tick)
	s.WriteInt32(c.Data.X())
	s.WriteInt32(c.Data.Y())
	s.WriteInt32(c.Data.Z())
}

func (c *Compass) DecodeFrom(s *bytestream.Stream) {
	c.Mode = s.ReadUint8()
	c.Tick = s.ReadInt64()
	c.Data.SetX(s.ReadInt32())
	c.Data.SetY(s.ReadInt32())
	c.Data.SetZ(s.ReadInt32())
}

func (c *Compass) EncodedSize() int { return CompassSize }
