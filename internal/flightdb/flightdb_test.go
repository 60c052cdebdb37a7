package flightdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightlink/internal/attitude"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "flight.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleTelemetry() records.Telemetry {
	t := records.NewTelemetry()
	t.PowerOn = true
	t.Power = [records.EngineCount]float32{0.1, 0.2, 0.3, 0.4}
	t.Pitch = 1.5
	t.Roll = -2.25
	t.Course = 359.5
	t.Height = 42.125
	t.Gyroscope = records.Gyroscope{
		Temp:   30.5,
		Gyro:   vecmath.Vector3i{-100, 200, 32767},
		Accel:  vecmath.Vector3i{1, -2, 16384},
		AfsSel: 1,
		FsSel:  2,
		Freq:   250,
		Tick:   1 << 40,
	}
	for i := range t.Gyroscope.Raw {
		t.Gyroscope.Raw[i] = byte(i)
	}
	t.Compass = records.Compass{Mode: 3, Tick: 77, Data: vecmath.Vector3i{-5, 6, -7}}
	t.Barometer = records.Barometer{Tick: 88, Data: 101325, Temp: -40}
	return t
}

func TestOpen_MigratesToLatest(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), version)
	assert.False(t, dirty)

	// reopening is a no-op
	again, err := Open(db.Path())
	require.NoError(t, err)
	require.NoError(t, again.Close())

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion-1), version)

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='controls'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(SchemaVersion), version)
}

func TestSessions(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	t0 := time.Unix(1700000000, 123)

	first, err := db.StartSession("/dev/ttyUSB0", t0)
	require.NoError(t, err)
	second, err := db.StartSession("flight.pcap", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, first.ID, 36, "uuid string form")

	require.NoError(t, db.EndSession(first.ID, t0.Add(30*time.Second)))
	assert.ErrorIs(t, db.EndSession("missing", t0), ErrNotFound)

	got, err := db.GetSession(first.ID)
	require.NoError(t, err)
	assert.True(t, got.StartedAt.Equal(t0))
	require.NotNil(t, got.EndedAt)
	assert.True(t, got.EndedAt.Equal(t0.Add(30*time.Second)))

	_, err = db.GetSession("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Nil(t, all[0].EndedAt)

	latest, err := db.LatestSession()
	require.NoError(t, err)
	assert.Equal(t, "flight.pcap", latest.Source)
}

func TestLatestSession_Empty(t *testing.T) {
	t.Parallel()
	_, err := openTestDB(t).LatestSession()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTelemetry_RoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s, err := db.StartSession("test", time.Now())
	require.NoError(t, err)

	tel := sampleTelemetry()
	at := time.Unix(1700000001, 500)
	want := Sample{
		Telemetry:  tel,
		Rate:       attitude.AngularSpeed(tel.Gyroscope, vecmath.Vector3d{}),
		ReceivedAt: at,
	}
	require.NoError(t, db.RecordTelemetry(s.ID, want, true))

	noRaw := want
	noRaw.ReceivedAt = at.Add(time.Millisecond)
	require.NoError(t, db.RecordTelemetry(s.ID, noRaw, false))

	got, err := db.TelemetrySamples(s.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	if diff := cmp.Diff(want, got[0], cmpopts.EquateApproxTime(0)); diff != "" {
		t.Errorf("sample mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, [records.RawCount]byte{}, got[1].Telemetry.Gyroscope.Raw)

	n, err := db.TelemetryCount(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTelemetry_UnknownSessionRejected(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	err := db.RecordTelemetry("no-such-session", Sample{Telemetry: sampleTelemetry()}, false)
	assert.ErrorContains(t, err, "failed to record telemetry")
}

func TestControls_RoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s, err := db.StartSession("test", time.Now())
	require.NoError(t, err)

	c := records.Controls{
		PowerOn: true, Throttle: 0.8, Pitch: 1, Roll: -1, Yaw: 45,
		Servo: records.Servo{FreqMeander: 50, Angle: 30, SpeedOfChange: 5, TimeworkMs: 1200, FlagStart: true, Pin: 3},
	}
	at := time.Unix(1700000002, 0)
	require.NoError(t, db.RecordControls(s.ID, c, at))

	got, err := db.SentControlsFor(s.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c, got[0].Controls)
	assert.True(t, got[0].SentAt.Equal(at))
}

func TestRecorder_Run(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	s, err := db.StartSession("test", time.Now())
	require.NoError(t, err)

	offset := vecmath.Vector3d{-100, 200, 0}
	r := db.NewRecorder(s.ID, offset, false)
	tick := time.Unix(1700000000, 0)
	r.now = func() time.Time { tick = tick.Add(time.Second); return tick }

	frames := make(chan records.Telemetry, 3)
	for i := 0; i < 3; i++ {
		tel := sampleTelemetry()
		tel.Gyroscope.Tick = int64(i)
		frames <- tel
	}
	close(frames)
	require.NoError(t, r.Run(context.Background(), frames))

	got, err := db.TelemetrySamples(s.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(2), got[2].Telemetry.Gyroscope.Tick)
	assert.Equal(t, 0.0, got[0].Rate[0], "offset removes the x reading")
	assert.Equal(t, 0.0, got[0].Rate[1])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx, make(chan records.Telemetry)), context.Canceled)
}

func TestAdminRoutes(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	_, err := db.StartSession("test", time.Now())
	require.NoError(t, err)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/flightdb-sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/debug/flightdb-backup")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/gzip", resp.Header.Get("Content-Type"))
}
