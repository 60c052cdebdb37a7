// Package replay decodes Telemetry frames from packet captures of the
// vehicle's UDP telemetry feed and writes such captures from live frames.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
)

// Frame is one decoded Telemetry record and the time it was captured.
type Frame struct {
	Telemetry   records.Telemetry
	CaptureTime time.Time
}

// Handler receives each decoded frame in capture order. Returning an error
// stops the replay.
type Handler func(Frame) error

// Stats summarises a replay.
type Stats struct {
	Packets    int    // every packet in the capture
	UDPPackets int    // packets on the telemetry port
	Frames     int    // frames handed to the handler
	Malformed  int    // payloads that were not a whole number of frames
	Bytes      uint64 // payload bytes on the telemetry port
}

func (s Stats) String() string {
	return fmt.Sprintf("%d packets, %d on port, %d frames, %d malformed, %s payload",
		s.Packets, s.UDPPackets, s.Frames, s.Malformed, humanize.Bytes(s.Bytes))
}

// pcapng section header block type
var ngMagic = []byte{0x0A, 0x0D, 0x0D, 0x0A}

type packetReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// ReadFile replays the pcap or pcapng capture at path.
func ReadFile(ctx context.Context, path string, udpPort int, h Handler) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer f.Close()
	return Read(ctx, f, udpPort, h)
}

// Read replays a capture from r. Packets whose UDP source or destination
// port is udpPort are decoded as back-to-back Telemetry frames; trailing
// bytes that do not make a whole frame are counted as malformed and dropped.
func Read(ctx context.Context, r io.Reader, udpPort int, h Handler) (Stats, error) {
	var st Stats

	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return st, fmt.Errorf("failed to read capture header: %w", err)
	}

	var src packetReader
	if bytes.Equal(magic, ngMagic) {
		src, err = pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	} else {
		src, err = pcapgo.NewReader(br)
	}
	if err != nil {
		return st, fmt.Errorf("failed to open capture: %w", err)
	}

	packets := gopacket.NewPacketSource(src, src.LinkType())
	packets.DecodeOptions = gopacket.DecodeOptions{Lazy: true, NoCopy: true}
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("replay: stopping on cancellation after %s", st)
			return st, ctx.Err()
		default:
		}

		packet, err := packets.NextPacket()
		if err == io.EOF {
			monitoring.Logf("replay: complete in %v: %s", time.Since(startTime), st)
			return st, nil
		}
		if err != nil {
			return st, fmt.Errorf("failed to read packet %d: %w", st.Packets+1, err)
		}
		st.Packets++

		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok || (int(udp.DstPort) != udpPort && int(udp.SrcPort) != udpPort) {
			continue
		}
		st.UDPPackets++
		st.Bytes += uint64(len(udp.Payload))

		ts := packet.Metadata().Timestamp
		if err := decodePayload(udp.Payload, ts, &st, h); err != nil {
			return st, err
		}
	}
}

func decodePayload(payload []byte, ts time.Time, st *Stats, h Handler) error {
	if len(payload)%records.TelemetrySize != 0 {
		st.Malformed++
		monitoring.FramesMalformed.WithLabelValues(monitoring.SourceReplay).Inc()
		monitoring.Logf("replay: payload of %d bytes is not a multiple of %d", len(payload), records.TelemetrySize)
	}
	for len(payload) >= records.TelemetrySize {
		t := records.NewTelemetry()
		if err := records.Unmarshal(payload[:records.TelemetrySize], &t); err != nil {
			return err
		}
		payload = payload[records.TelemetrySize:]
		st.Frames++
		monitoring.FramesDecoded.WithLabelValues(monitoring.SourceReplay).Inc()
		if err := h(Frame{Telemetry: t, CaptureTime: ts}); err != nil {
			return err
		}
	}
	return nil
}
