package link

import (
	"io"
	"time"
)

// SerialPorter is the minimal surface the link needs from a serial device.
// Tests substitute an in-memory implementation.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter is implemented by ports that support read deadlines.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}
