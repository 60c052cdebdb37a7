package link

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/banshee-data/flightlink/internal/records"
)

func newTelemetryClient(t *testing.T, l LinkInterface) *TelemetryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewTelemetryServer(l)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })
	return NewTelemetryClient(cc)
}

func TestTelemetryService_StreamsFrames(t *testing.T) {
	port := NewTestableSerialPort()
	l := New(port, 8)
	client := newTelemetryClient(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := client.Stream(ctx, StreamRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, stream.SubscriberID)

	want1, buf1 := frame(t, 1, 90)
	want2, buf2 := frame(t, 2, 180)
	port.AddReadData(buf1)
	port.AddReadData(buf2)
	require.NoError(t, l.Monitor(context.Background()))

	got, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, want1, got)
	got, err = stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, want2, got)

	require.NoError(t, l.Close())
	_, err = stream.Recv()
	require.Error(t, err)
	st := status.Convert(err)
	assert.Equal(t, codes.Unavailable, st.Code())
	require.Len(t, st.Details(), 1)
	retry, ok := st.Details()[0].(*errdetails.RetryInfo)
	require.True(t, ok, "detail is %T", st.Details()[0])
	assert.Equal(t, LinkRetryDelay, retry.GetRetryDelay().AsDuration())
}

func TestTelemetryService_Every(t *testing.T) {
	port := NewTestableSerialPort()
	l := New(port, 8)
	client := newTelemetryClient(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stream, err := client.Stream(ctx, StreamRequest{Every: 2})
	require.NoError(t, err)

	for tick := int64(1); tick <= 5; tick++ {
		_, buf := frame(t, tick, 0)
		port.AddReadData(buf)
	}
	require.NoError(t, l.Monitor(context.Background()))

	for _, want := range []int64{1, 3, 5} {
		got, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, got.Gyroscope.Tick)
	}
}

func TestTelemetryService_CancelUnsubscribes(t *testing.T) {
	l := NewDisabledLink()
	client := newTelemetryClient(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Stream(ctx, StreamRequest{})
	require.NoError(t, err)

	cancel()
	_, err = stream.Recv()
	assert.Equal(t, codes.Canceled, status.Code(err))

	// the server side releases its subscription once the RPC ends
	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.subscribers) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCodec(t *testing.T) {
	t.Parallel()

	var c Codec
	assert.Equal(t, "flightlink", c.Name())

	buf, err := c.Marshal(&StreamRequest{Every: 0x01020304})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	var req StreamRequest
	require.NoError(t, c.Unmarshal(buf, &req))
	assert.Equal(t, uint32(0x01020304), req.Every)
	assert.Error(t, c.Unmarshal(buf[:2], &req))

	want, buf := frame(t, 9, 270)
	var got records.Telemetry
	require.NoError(t, c.Unmarshal(buf, &got))
	assert.Equal(t, want, got)

	_, err = c.Marshal("not a record")
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(buf, new(string)))
}
