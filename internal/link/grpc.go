package link

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/banshee-data/flightlink/internal/bytestream"
	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
)

// TelemetryServiceName is the gRPC service that streams live frames.
const TelemetryServiceName = "flightlink.Telemetry"

const streamTelemetryMethod = "/" + TelemetryServiceName + "/StreamTelemetry"

// subscriberHeader carries the server-side subscription ID back to the client.
const subscriberHeader = "flightlink-subscriber"

// LinkRetryDelay is the retry hint sent to clients whose stream ended because
// the link closed.
const LinkRetryDelay = time.Second

// StreamRequest opens a telemetry stream. Only every Every-th frame is sent;
// zero and one both send every frame.
type StreamRequest struct {
	Every uint32
}

const streamRequestSize = 4

func (r *StreamRequest) EncodeTo(s *bytestream.Stream) {
	s.SetByteOrder(binary.BigEndian)
	s.WriteUint32(r.Every)
}

func (r *StreamRequest) DecodeFrom(s *bytestream.Stream) {
	s.SetByteOrder(binary.BigEndian)
	r.Every = s.ReadUint32()
}

func (r *StreamRequest) EncodedSize() int { return streamRequestSize }

// Codec is the gRPC codec for the telemetry service. Messages travel in
// their link wire encoding.
type Codec struct{}

func (Codec) Name() string { return "flightlink" }

func (Codec) Marshal(v any) ([]byte, error) {
	r, ok := v.(records.Record)
	if !ok {
		return nil, fmt.Errorf("flightlink codec: cannot marshal %T", v)
	}
	return records.Marshal(r)
}

func (Codec) Unmarshal(data []byte, v any) error {
	r, ok := v.(records.Record)
	if !ok {
		return fmt.Errorf("flightlink codec: cannot unmarshal into %T", v)
	}
	return records.Unmarshal(data, r)
}

// TelemetryServer is implemented by the telemetry service handler.
type TelemetryServer interface {
	StreamTelemetry(*StreamRequest, grpc.ServerStream) error
}

var telemetryServiceDesc = grpc.ServiceDesc{
	ServiceName: TelemetryServiceName,
	HandlerType: (*TelemetryServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamTelemetry",
			Handler:       streamTelemetryHandler,
			ServerStreams: true,
		},
	},
	Metadata: "flightlink/telemetry",
}

func streamTelemetryHandler(srv any, stream grpc.ServerStream) error {
	req := new(StreamRequest)
	if err := stream.RecvMsg(req); err != nil {
		return status.Errorf(codes.InvalidArgument, "read stream request: %v", err)
	}
	return srv.(TelemetryServer).StreamTelemetry(req, stream)
}

// Ensure TelemetryService implements the gRPC interface.
var _ TelemetryServer = (*TelemetryService)(nil)

// TelemetryService streams the frames of a link to gRPC clients.
type TelemetryService struct {
	link LinkInterface
}

// NewTelemetryServer returns a gRPC server with the telemetry service
// registered against l.
func NewTelemetryServer(l LinkInterface, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(Codec{})}, opts...)
	s := grpc.NewServer(opts...)
	s.RegisterService(&telemetryServiceDesc, &TelemetryService{link: l})
	return s
}

// StreamTelemetry subscribes to the link and forwards frames until the client
// goes away or the link closes.
func (s *TelemetryService) StreamTelemetry(req *StreamRequest, stream grpc.ServerStream) error {
	id, c := s.link.Subscribe()
	defer s.link.Unsubscribe(id)

	monitoring.TelemetryStreams.Inc()
	defer monitoring.TelemetryStreams.Dec()
	monitoring.Logf("[gRPC] telemetry stream %s opened: every=%d", id, req.Every)

	if err := stream.SendHeader(metadata.Pairs(subscriberHeader, id)); err != nil {
		return err
	}

	ctx := stream.Context()
	every := max(req.Every, 1)
	var n uint32
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("[gRPC] telemetry stream %s cancelled", id)
			return ctx.Err()
		case t, ok := <-c:
			if !ok {
				return linkClosedError()
			}
			n++
			if (n-1)%every != 0 {
				continue
			}
			if err := stream.SendMsg(&t); err != nil {
				monitoring.Logf("[gRPC] telemetry stream %s send error: %v", id, err)
				return err
			}
		}
	}
}

func linkClosedError() error {
	st := status.New(codes.Unavailable, "telemetry link closed")
	if withRetry, err := st.WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(LinkRetryDelay)}); err == nil {
		st = withRetry
	}
	return st.Err()
}

// TelemetryClient reads a remote link's telemetry stream.
type TelemetryClient struct {
	cc grpc.ClientConnInterface
}

func NewTelemetryClient(cc grpc.ClientConnInterface) *TelemetryClient {
	return &TelemetryClient{cc: cc}
}

// TelemetryStream is an open telemetry stream.
type TelemetryStream struct {
	cs grpc.ClientStream
	// SubscriberID is the link subscription serving this stream.
	SubscriberID string
}

// Stream opens a telemetry stream. It returns once the server has subscribed
// to its link, so every frame published afterwards is delivered. Cancel ctx
// to close the stream.
func (c *TelemetryClient) Stream(ctx context.Context, req StreamRequest) (*TelemetryStream, error) {
	cs, err := c.cc.NewStream(ctx, &telemetryServiceDesc.Streams[0], streamTelemetryMethod, grpc.ForceCodec(Codec{}))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(&req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	md, err := cs.Header()
	if err != nil {
		return nil, err
	}
	ts := &TelemetryStream{cs: cs}
	if v := md.Get(subscriberHeader); len(v) > 0 {
		ts.SubscriberID = v[0]
	}
	return ts, nil
}

// Recv blocks for the next frame.
func (s *TelemetryStream) Recv() (records.Telemetry, error) {
	t := records.NewTelemetry()
	if err := s.cs.RecvMsg(&t); err != nil {
		return records.Telemetry{}, err
	}
	return t, nil
}
