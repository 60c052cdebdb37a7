package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Open opens the serial device at path and returns a Link over it. A
// positive readTimeout bounds each read so Monitor notices cancellation.
func Open(path string, opts PortOptions, readTimeout time.Duration, bufSize int) (*Link[serial.Port], error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
		}
	}

	return New[serial.Port](port, bufSize), nil
}
