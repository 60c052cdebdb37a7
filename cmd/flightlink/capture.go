package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/replay"
)

// captureWriter appends live frames to a pcap file that flight-replay can
// read back.
type captureWriter struct {
	f  *os.File
	bw *bufio.Writer
	pw *replay.Writer
}

func newCaptureWriter(path string, udpPort int) (*captureWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	bw := bufio.NewWriter(f)
	pw, err := replay.NewWriter(bw, udpPort)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &captureWriter{f: f, bw: bw, pw: pw}, nil
}

func (c *captureWriter) run(ctx context.Context, frames <-chan records.Telemetry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tm, ok := <-frames:
			if !ok {
				return nil
			}
			if err := c.pw.WriteFrames(time.Now(), tm); err != nil {
				return fmt.Errorf("write capture: %w", err)
			}
		}
	}
}

func (c *captureWriter) Close() error {
	if err := c.bw.Flush(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
