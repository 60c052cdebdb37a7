package replay

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/flightlink/internal/records"
)

const snapLen = 65536

var (
	vehicleMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	groundMAC  = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	vehicleIP  = net.IPv4(192, 168, 4, 1)
	groundIP   = net.IPv4(192, 168, 4, 2)
)

// Writer records Telemetry frames as an Ethernet/IPv4/UDP pcap capture that
// Read can replay.
type Writer struct {
	w       *pcapgo.Writer
	udpPort int
	ipID    uint16
}

// NewWriter writes a pcap file header to w and returns a Writer whose
// packets are addressed to udpPort.
func NewWriter(w io.Writer, udpPort int) (*Writer, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}
	return &Writer{w: pw, udpPort: udpPort}, nil
}

// WriteFrames writes one packet carrying frames back to back.
func (w *Writer) WriteFrames(ts time.Time, frames ...records.Telemetry) error {
	payload := make([]byte, 0, len(frames)*records.TelemetrySize)
	for i := range frames {
		buf, err := records.Marshal(&frames[i])
		if err != nil {
			return err
		}
		payload = append(payload, buf...)
	}
	return w.WritePayload(ts, payload)
}

// WritePayload writes one packet with an arbitrary UDP payload.
func (w *Writer) WritePayload(ts time.Time, payload []byte) error {
	w.ipID++
	eth := &layers.Ethernet{
		SrcMAC:       vehicleMAC,
		DstMAC:       groundMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Id:       w.ipID,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    vehicleIP,
		DstIP:    groundIP,
	}
	udp := &layers.UDP{
		SrcPort: layers.UDPPort(w.udpPort),
		DstPort: layers.UDPPort(w.udpPort),
	}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialize packet: %w", err)
	}

	data := buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(data), Length: len(data)}
	if err := w.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}
