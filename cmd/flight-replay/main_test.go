package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightlink/internal/flightdb"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/replay"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

const testPort = 5005

var captureStart = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// writeCapture writes n frames whose raw gyro reads bias plus a z rate.
func writeCapture(t *testing.T, n int, bias vecmath.Vector3i) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flight.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := replay.NewWriter(f, testPort)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		tm := records.NewTelemetry()
		tm.Gyroscope.Tick = int64(i)
		tm.Gyroscope.Gyro = bias
		tm.Course = float32(i)
		require.NoError(t, w.WriteFrames(captureStart.Add(time.Duration(i)*10*time.Millisecond), tm))
	}
	// a short payload counts as malformed
	require.NoError(t, w.WritePayload(captureStart, []byte{1, 2, 3}))
	return path
}

func TestReplayInto_DryRun(t *testing.T) {
	path := writeCapture(t, 4, vecmath.Vector3i{})

	id, st, err := replayInto(context.Background(), nil, replayOptions{path: path, udpPort: testPort})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, 4, st.Frames)
	assert.Equal(t, 1, st.Malformed, "the 3-byte payload is not a whole frame")
}

func TestReplayInto_RecordsSession(t *testing.T) {
	path := writeCapture(t, 6, vecmath.Vector3i{131, 0, -131})
	db, err := flightdb.Open(filepath.Join(t.TempDir(), "flight.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	id, st, err := replayInto(context.Background(), db, replayOptions{path: path, udpPort: testPort, calibrate: 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 6, st.Frames)

	sess, err := db.GetSession(id)
	require.NoError(t, err)
	assert.Equal(t, "replay", sess.Source)
	assert.True(t, sess.StartedAt.Equal(captureStart))
	assert.NotNil(t, sess.EndedAt)

	samples, err := db.TelemetrySamples(id)
	require.NoError(t, err)
	require.Len(t, samples, 6)
	assert.Equal(t, float32(5), samples[5].Telemetry.Course)
	// calibration removes the constant bias entirely
	assert.Equal(t, vecmath.Vector3d{}, samples[0].Rate)
	assert.True(t, samples[1].ReceivedAt.Equal(captureStart.Add(10*time.Millisecond)))
}

func TestCalibrationOffset_ShortCapture(t *testing.T) {
	path := writeCapture(t, 2, vecmath.Vector3i{10, 20, 30})
	offset, err := calibrationOffset(context.Background(), path, testPort, 50)
	require.NoError(t, err)
	assert.Equal(t, vecmath.Vector3d{10, 20, 30}, offset)
}
