package link

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightlink/internal/records"
)

func newAdminServer(t *testing.T, l LinkInterface) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	AttachAdminRoutes(mux, l)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAdmin_Latest(t *testing.T) {
	port := NewTestableSerialPort()
	l := New(port, 1)
	srv := newAdminServer(t, l)

	resp, err := http.Get(srv.URL + "/debug/flightlink-latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	want, buf := frame(t, 7, 123.5)
	port.AddReadData(buf)
	require.NoError(t, l.Monitor(context.Background()))

	resp, err = http.Get(srv.URL + "/debug/flightlink-latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got records.Telemetry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, want, got)
}

func TestAdmin_SendControls(t *testing.T) {
	port := NewTestableSerialPort()
	srv := newAdminServer(t, New(port, 0))

	resp, err := http.Get(srv.URL + "/debug/flightlink-send-controls-api")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.PostForm(srv.URL+"/debug/flightlink-send-controls-api", url.Values{"throttle": {"fast"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.PostForm(srv.URL+"/debug/flightlink-send-controls-api", url.Values{
		"power_on":      {"1"},
		"throttle":      {"0.25"},
		"yaw":           {"-90"},
		"servo_angle":   {"15"},
		"servo_time_ms": {"250"},
		"servo_start":   {"true"},
		"servo_pin":     {"4"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got records.Controls
	require.NoError(t, records.Unmarshal(port.GetWrittenData(), &got))
	assert.Equal(t, records.Controls{
		PowerOn:  true,
		Throttle: 0.25,
		Yaw:      -90,
		Servo:    records.Servo{Angle: 15, TimeworkMs: 250, FlagStart: true, Pin: 4},
	}, got)

	resp, err = http.Get(srv.URL + "/debug/flightlink-send-controls")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdmin_Tail(t *testing.T) {
	port := NewTestableSerialPort()
	port.BlockReads = true
	l := New(port, 4)
	srv := newAdminServer(t, l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Monitor(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/debug/flightlink-tail", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	ping, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping\n", ping)

	// the handler subscribes before the ping, so this frame is delivered
	want, buf := frame(t, 3, 270)
	port.AddReadData(buf)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var got records.Telemetry
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &got))
		assert.Equal(t, want, got)
		cancel()
		l.Close()
		return
	}
	t.Fatal("no frame on tail stream")
}
