package records

import "github.com/banshee-data/flightlink/internal/bytestream"

// Controls is the command frame sent to the vehicle.
type Controls struct {
	PowerOn  bool
	Throttle float32
	Pitch    float32 // tangaj, degrees
	Roll     float32 // bank, degrees
	Yaw      float32
	Servo    Servo
}

func (c *Controls) EncodeTo(s *bytestream.Stream) {
	beginFrame(s)

	s.WriteBool(c.PowerOn)
	s.WriteFloat(c.Throttle)
	s.WriteFloat(c.Pitch)
	s.WriteFloat(c.Roll)
	s.WriteFloat(c.Yaw)
	c.Servo.EncodeTo(s)
}

func (c *Controls) DecodeFrom(s *bytestream.Stream) {
	beginFrame(s)

	c.PowerOn = s.ReadBool()
	c.Throttle = s.ReadFloat()
	c.Pitch = s.ReadFloat()
	c.Roll = s.ReadFloat()
	c.Yaw = s.ReadFloat()
	c.Servo.DecodeFrom(s)
}

func (c *Controls) EncodedSize() int { return ControlsSize }
