package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/link"
	"github.com/banshee-data/flightlink/internal/quaternion"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/replay"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

const frameInterval = 10 * time.Millisecond

func openTestDB(t *testing.T) *flightdb.DB {
	t.Helper()
	db, err := flightdb.Open(filepath.Join(t.TempDir(), "flight.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func simulatedFrames(n int) chan records.Telemetry {
	c := make(chan records.Telemetry, n)
	for i := 1; i <= n; i++ {
		c <- link.SimulatedFrame(int64(i), frameInterval)
	}
	close(c)
	return c
}

func TestTracker_IntegratesYaw(t *testing.T) {
	trk := newTracker(vecmath.Vector3d{}, 0, vecmath.DefaultTolerance())
	require.NoError(t, trk.run(context.Background(), simulatedFrames(100)))

	r := trk.report()
	assert.Equal(t, 100, r.Samples)
	assert.InDelta(t, 10.0, r.Course, 0.05)
	assert.InDelta(t, 0.0, r.Pitch, 1e-6)
	assert.InDelta(t, 0.0, r.Roll, 1e-6)
	assert.Greater(t, r.Smoothed, 0.0)
	assert.LessOrEqual(t, r.Smoothed, r.Course)
	assert.NotZero(t, r.Reported.Course)
	assert.InDelta(t, 1.0, r.Accel[2], 1e-9)
}

func TestTracker_SmoothAcrossHemispheres(t *testing.T) {
	trk := newTracker(vecmath.Vector3d{}, 0, vecmath.DefaultTolerance())

	trk.smooth(quaternion.Identity().Scale(-1))
	assert.InDelta(t, 1.0, trk.smoothed.Length(), 1e-9)
	assert.InDelta(t, 0.0, trk.smoothed.Course(), 1e-9)

	// the negated form of a 90 degree yaw still pulls the estimate a fifth
	// of the way round
	trk.smooth(quaternion.FromEuler(0, 0, 90).Scale(-1))
	assert.InDelta(t, 1.0, trk.smoothed.Length(), 1e-9)
	assert.InDelta(t, 18.0, trk.smoothed.Course(), 1e-6)

	for i := 0; i < 80; i++ {
		trk.smooth(quaternion.FromEuler(0, 0, 90).Scale(-1))
	}
	assert.InDelta(t, 90.0, trk.smoothed.Course(), 1e-3)
}

func TestTracker_HTTP(t *testing.T) {
	trk := newTracker(vecmath.Vector3d{}, 0, vecmath.DefaultTolerance())
	require.NoError(t, trk.run(context.Background(), simulatedFrames(10)))

	rec := httptest.NewRecorder()
	trk.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attitude", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got attitudeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 10, got.Samples)

	rec = httptest.NewRecorder()
	trk.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/attitude", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0, got.Samples)
	assert.Equal(t, [4]float64{0, 0, 0, 1}, got.Quaternion)

	rec = httptest.NewRecorder()
	trk.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/attitude", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecordingLink_StoresSentControls(t *testing.T) {
	db := openTestDB(t)
	sess, err := db.StartSession("test", time.Now())
	require.NoError(t, err)

	port := link.NewTestableSerialPort()
	l := link.New(port, 4)
	rl := &recordingLink{LinkInterface: l, db: db, sessionID: sess.ID}

	c := records.Controls{PowerOn: true, Throttle: 0.5, Yaw: 15}
	require.NoError(t, rl.SendControls(c))
	assert.Len(t, port.GetWrittenData(), records.ControlsSize)

	sent, err := db.SentControlsFor(sess.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, c, sent[0].Controls)
}

func TestChartHandler(t *testing.T) {
	db := openTestDB(t)
	sess, err := db.StartSession("test", time.Now())
	require.NoError(t, err)
	h := chartHandler(db, sess.ID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart?session=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no samples yet")

	rc := db.NewRecorder(sess.ID, vecmath.Vector3d{}, false)
	require.NoError(t, rc.Run(context.Background(), simulatedFrames(5)))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Session "+sess.ID)
}

func TestCaptureWriter_ReplaysBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.pcap")
	cw, err := newCaptureWriter(path, 5005)
	require.NoError(t, err)
	require.NoError(t, cw.run(context.Background(), simulatedFrames(3)))
	require.NoError(t, cw.Close())

	var ticks []int64
	st, err := replay.ReadFile(context.Background(), path, 5005, func(f replay.Frame) error {
		ticks = append(ticks, f.Telemetry.Gyroscope.Tick)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, st.Frames)
	assert.Equal(t, []int64{1, 2, 3}, ticks)
}
