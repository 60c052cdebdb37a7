// Package bytestream provides a cursor-based binary reader/writer over an
// in-memory buffer. It is the single primitive the record codecs use to lay
// fields out on the wire.
//
// A Stream is either a reader or a writer, selected by its Mode. Calls in the
// wrong direction are ignored and recorded as ErrWrongMode. Reads past the end
// of the buffer never panic: they yield zero values and advance the cursor, and
// under the Strict policy the stream also records ErrTruncated.
package bytestream

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrTruncated is recorded when a read needs more bytes than remain.
	ErrTruncated = errors.New("bytestream: read past end of buffer")
	// ErrWrongMode is recorded when a read is issued on a write stream or a
	// write on a read stream.
	ErrWrongMode = errors.New("bytestream: operation not permitted in stream mode")
)

// Mode selects the direction of a Stream.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return "unknown"
	}
}

// FloatPrecision selects how WriteFloat/ReadFloat lay out floating fields.
type FloatPrecision int

const (
	SinglePrecision FloatPrecision = iota // 4-byte IEEE-754
	DoublePrecision                       // 8-byte IEEE-754
)

// TruncationPolicy controls what a short read reports.
type TruncationPolicy int

const (
	// Strict zero-fills the short field and records ErrTruncated.
	Strict TruncationPolicy = iota
	// ZeroFill zero-fills the short field silently.
	ZeroFill
)

// Stream is a binary cursor over a byte slice it owns exclusively.
// It is not safe for concurrent use.
type Stream struct {
	buf       []byte
	pos       int
	mode      Mode
	order     binary.ByteOrder
	precision FloatPrecision
	policy    TruncationPolicy
	err       error
}

// New returns a stream over buf in the given mode. A write stream starts at
// position zero and overwrites buf before growing it.
func New(buf []byte, mode Mode) *Stream {
	return &Stream{
		buf:       buf,
		mode:      mode,
		order:     binary.BigEndian,
		precision: SinglePrecision,
		policy:    Strict,
	}
}

// NewWriter returns an empty write stream.
func NewWriter() *Stream {
	return New(nil, ModeWrite)
}

// NewReader returns a read stream over buf.
func NewReader(buf []byte) *Stream {
	return New(buf, ModeRead)
}

// Mode reports the stream direction.
func (s *Stream) Mode() Mode { return s.mode }

// Pos reports the cursor position.
func (s *Stream) Pos() int { return s.pos }

// Len reports the buffer length.
func (s *Stream) Len() int { return len(s.buf) }

func (s *Stream) ByteOrder() binary.ByteOrder { return s.order }

func (s *Stream) FloatPrecision() FloatPrecision { return s.precision }

func (s *Stream) TruncationPolicy() TruncationPolicy { return s.policy }

// Remaining reports the number of unread bytes, never negative.
func (s *Stream) Remaining() int {
	if s.pos >= len(s.buf) {
		return 0
	}
	return len(s.buf) - s.pos
}

// Bytes returns the underlying buffer. For a write stream this is everything
// written so far.
func (s *Stream) Bytes() []byte { return s.buf }

// Err returns the first error recorded on the stream, if any.
func (s *Stream) Err() error { return s.err }

// SetByteOrder sets the order used by every following multi-byte field.
func (s *Stream) SetByteOrder(order binary.ByteOrder) {
	if order == nil {
		order = binary.BigEndian
	}
	s.order = order
}

// SetFloatPrecision sets the width used by WriteFloat and ReadFloat.
func (s *Stream) SetFloatPrecision(p FloatPrecision) { s.precision = p }

// SetTruncationPolicy sets how short reads are reported.
func (s *Stream) SetTruncationPolicy(p TruncationPolicy) { s.policy = p }

func (s *Stream) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

// reserve returns the n-byte window at the cursor for writing, growing the
// buffer when the write extends past its end, and advances the cursor.
func (s *Stream) reserve(n int) []byte {
	if s.mode != ModeWrite {
		s.setErr(ErrWrongMode)
		return nil
	}
	end := s.pos + n
	if end > len(s.buf) {
		if end > cap(s.buf) {
			grown := make([]byte, end, max(end, 2*cap(s.buf)))
			copy(grown, s.buf)
			s.buf = grown
		} else {
			s.buf = s.buf[:end]
		}
	}
	w := s.buf[s.pos:end]
	s.pos = end
	return w
}

// next returns the n-byte window at the cursor for reading, or nil when the
// buffer is too short. The cursor advances by n either way.
func (s *Stream) next(n int) []byte {
	if s.mode != ModeRead {
		s.setErr(ErrWrongMode)
		return nil
	}
	start := s.pos
	s.pos += n
	if start+n > len(s.buf) {
		if s.policy == Strict {
			s.setErr(ErrTruncated)
		}
		return nil
	}
	return s.buf[start : start+n]
}

func (s *Stream) WriteUint8(v uint8) {
	if w := s.reserve(1); w != nil {
		w[0] = v
	}
}

func (s *Stream) WriteInt8(v int8) { s.WriteUint8(uint8(v)) }

// WriteBool writes a single byte, 1 for true.
func (s *Stream) WriteBool(v bool) {
	var b uint8
	if v {
		b = 1
	}
	s.WriteUint8(b)
}

func (s *Stream) WriteUint16(v uint16) {
	if w := s.reserve(2); w != nil {
		s.order.PutUint16(w, v)
	}
}

func (s *Stream) WriteInt16(v int16) { s.WriteUint16(uint16(v)) }

func (s *Stream) WriteUint32(v uint32) {
	if w := s.reserve(4); w != nil {
		s.order.PutUint32(w, v)
	}
}

func (s *Stream) WriteInt32(v int32) { s.WriteUint32(uint32(v)) }

func (s *Stream) WriteUint64(v uint64) {
	if w := s.reserve(8); w != nil {
		s.order.PutUint64(w, v)
	}
}

func (s *Stream) WriteInt64(v int64) { s.WriteUint64(uint64(v)) }

func (s *Stream) WriteFloat32(v float32) { s.WriteUint32(math.Float32bits(v)) }

func (s *Stream) WriteFloat64(v float64) { s.WriteUint64(math.Float64bits(v)) }

// WriteFloat writes v at the configured float precision.
func (s *Stream) WriteFloat(v float32) {
	if s.precision == DoublePrecision {
		s.WriteFloat64(float64(v))
		return
	}
	s.WriteFloat32(v)
}

// WriteRaw copies src verbatim and returns the number of bytes written.
func (s *Stream) WriteRaw(src []byte) int {
	w := s.reserve(len(src))
	if w == nil {
		return 0
	}
	return copy(w, src)
}

func (s *Stream) ReadUint8() uint8 {
	r := s.next(1)
	if r == nil {
		return 0
	}
	return r[0]
}

func (s *Stream) ReadInt8() int8 { return int8(s.ReadUint8()) }

// ReadBool reads a single byte; any non-zero value is true.
func (s *Stream) ReadBool() bool { return s.ReadUint8() != 0 }

func (s *Stream) ReadUint16() uint16 {
	r := s.next(2)
	if r == nil {
		return 0
	}
	return s.order.Uint16(r)
}

func (s *Stream) ReadInt16() int16 { return int16(s.ReadUint16()) }

func (s *Stream) ReadUint32() uint32 {
	r := s.next(4)
	if r == nil {
		return 0
	}
	return s.order.Uint32(r)
}

func (s *Stream) ReadInt32() int32 { return int32(s.ReadUint32()) }

func (s *Stream) ReadUint64() uint64 {
	r := s.next(8)
	if r == nil {
		return 0
	}
	return s.order.Uint64(r)
}

func (s *Stream) ReadInt64() int64 { return int64(s.ReadUint64()) }

func (s *Stream) ReadFloat32() float32 { return math.Float32frombits(s.ReadUint32()) }

func (s *Stream) ReadFloat64() float64 { return math.Float64frombits(s.ReadUint64()) }

// ReadFloat reads a floating field at the configured precision.
func (s *Stream) ReadFloat() float32 {
	if s.precision == DoublePrecision {
		return float32(s.ReadFloat64())
	}
	return s.ReadFloat32()
}

// ReadRaw fills dst with the next len(dst) bytes and returns how many came
// from the buffer. Bytes past the end of the buffer are zeroed.
func (s *Stream) ReadRaw(dst []byte) int {
	if s.mode != ModeRead {
		s.setErr(ErrWrongMode)
		return 0
	}
	n := copy(dst, s.buf[min(s.pos, len(s.buf)):])
	clear(dst[n:])
	s.pos += len(dst)
	if n < len(dst) && s.policy == Strict {
		s.setErr(ErrTruncated)
	}
	return n
}

// FloatWidth returns the encoded width of a floating field at precision p.
func FloatWidth(p FloatPrecision) int {
	if p == DoublePrecision {
		return 8
	}
	return 4
}
