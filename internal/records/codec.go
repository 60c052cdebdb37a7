// Package records defines the fixed-layout telemetry and control records
// exchanged with the inertial sensor and actuator link, and their binary
// encodings over a bytestream.Stream.
//
// Every record writes its fields in a fixed order with fixed widths. Outer
// frames (Controls, Telemetry) switch the stream to big-endian, single
// precision before the first field; nested blocks inherit whatever the stream
// is already configured for. There is no length prefix, checksum or version
// tag: record boundaries follow from the schema alone.
package records

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/flightlink/internal/bytestream"
)

// Encoded sizes in bytes at single precision.
const (
	ServoSize     = 3*4 + 4 + 1 + 1
	ControlsSize  = 1 + 4*4 + ServoSize
	GyroscopeSize = 4 + 3*4 + 3*4 + 1 + 1 + 4 + 8 + RawCount
	CompassSize   = 1 + 8 + 3*4
	BarometerSize = 8 + 4 + 4
	TelemetrySize = 1 + EngineCount*4 + 4*4 + GyroscopeSize + CompassSize + BarometerSize
)

// Record is implemented by every wire record.
type Record interface {
	// EncodeTo appends the record's fields to s.
	EncodeTo(s *bytestream.Stream)
	// DecodeFrom reads the record's fields from s.
	DecodeFrom(s *bytestream.Stream)
	// EncodedSize is the record's wire size at single precision.
	EncodedSize() int
}

// beginFrame forces the wire conventions shared by every outer frame.
func beginFrame(s *bytestream.Stream) {
	s.SetByteOrder(binary.BigEndian)
	s.SetFloatPrecision(bytestream.SinglePrecision)
}

// Marshal encodes r into a new buffer.
func Marshal(r Record) ([]byte, error) {
	s := bytestream.New(make([]byte, 0, r.EncodedSize()), bytestream.ModeWrite)
	r.EncodeTo(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("encode %T: %w", r, err)
	}
	return s.Bytes(), nil
}

// Unmarshal decodes r from buf. A buffer shorter than the record leaves the
// missing fields zeroed and returns an error wrapping bytestream.ErrTruncated.
func Unmarshal(buf []byte, r Record) error {
	s := bytestream.NewReader(buf)
	r.DecodeFrom(s)
	if err := s.Err(); err != nil {
		return fmt.Errorf("decode %T: %w", r, err)
	}
	return nil
}

// UnmarshalZeroFill decodes r from buf under the legacy silent zero-fill
// policy: short input never produces an error.
func UnmarshalZeroFill(buf []byte, r Record) {
	s := bytestream.NewReader(buf)
	s.SetTruncationPolicy(bytestream.ZeroFill)
	r.DecodeFrom(s)
}
