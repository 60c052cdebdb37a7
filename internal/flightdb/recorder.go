package flightdb

import (
	"context"
	"time"

	"github.com/banshee-data/flightlink/internal/attitude"
	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Recorder stores a stream of frames under one session, deriving each
// sample's angular rate with the configured gyro offset.
type Recorder struct {
	db        *DB
	SessionID string
	Offset    vecmath.Vector3d
	WithRaw   bool
	now       func() time.Time
}

// NewRecorder returns a Recorder writing to sessionID.
func (db *DB) NewRecorder(sessionID string, offset vecmath.Vector3d, withRaw bool) *Recorder {
	return &Recorder{db: db, SessionID: sessionID, Offset: offset, WithRaw: withRaw, now: time.Now}
}

// Record stores t as received at the given time.
func (r *Recorder) Record(t records.Telemetry, receivedAt time.Time) error {
	return r.db.RecordTelemetry(r.SessionID, Sample{
		Telemetry:  t,
		Rate:       attitude.AngularSpeed(t.Gyroscope, r.Offset),
		ReceivedAt: receivedAt,
	}, r.WithRaw)
}

// Run records every frame from frames until the channel closes or ctx is
// done. Failed inserts are logged and skipped.
func (r *Recorder) Run(ctx context.Context, frames <-chan records.Telemetry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-frames:
			if !ok {
				return nil
			}
			if err := r.Record(t, r.now()); err != nil {
				monitoring.Logf("flightdb: %v", err)
			}
		}
	}
}
