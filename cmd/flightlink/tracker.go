package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/banshee-data/flightlink/internal/attitude"
	"github.com/banshee-data/flightlink/internal/quaternion"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// smoothing is the slerp weight given to each new integrated attitude.
const smoothing = 0.2

// tracker integrates the live gyro stream into an attitude estimate and
// serves it as JSON.
type tracker struct {
	mu       sync.Mutex
	in       *attitude.Integrator
	tol      vecmath.Tolerance
	smoothed quaternion.Quaternion
	reported records.Telemetry
}

type attitudeReport struct {
	Samples    int        `json:"samples"`
	Quaternion [4]float64 `json:"quaternion"` // x, y, z, w
	Pitch      float64    `json:"pitch"`
	Roll       float64    `json:"roll"`
	Course     float64    `json:"course"`
	Smoothed   float64    `json:"smoothed_course"`
	Accel      [3]float64 `json:"accel_g"`
	Reported   struct {
		Pitch  float32 `json:"pitch"`
		Roll   float32 `json:"roll"`
		Course float32 `json:"course"`
	} `json:"reported"`
}

func newTracker(offset vecmath.Vector3d, tickPeriod float64, tol vecmath.Tolerance) *tracker {
	return &tracker{
		in:       attitude.NewIntegrator(offset, tickPeriod),
		tol:      tol,
		smoothed: quaternion.Identity(),
	}
}

func (t *tracker) update(tm records.Telemetry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.smooth(t.in.Update(tm.Gyroscope))
	t.reported = tm
}

// smooth moves the smoothed estimate toward q along the shorter arc. q and -q
// are the same rotation, and slerping between them collapses to zero.
func (t *tracker) smooth(q quaternion.Quaternion) {
	if quaternion.Dot(t.smoothed, q) < 0 {
		q = q.Scale(-1)
	}
	t.smoothed = quaternion.SlerpTol(t.smoothed, q, smoothing, t.tol)
}

func (t *tracker) run(ctx context.Context, frames <-chan records.Telemetry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tm, ok := <-frames:
			if !ok {
				return nil
			}
			t.update(tm)
		}
	}
}

func (t *tracker) report() attitudeReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.in.Attitude()
	var r attitudeReport
	r.Samples = t.in.Samples()
	r.Quaternion = [4]float64{q.X(), q.Y(), q.Z(), q.W}
	r.Pitch, r.Roll, _ = q.Euler()
	r.Course = q.Course()
	r.Smoothed = t.smoothed.Course()
	r.Accel = attitude.Acceleration(t.reported.Gyroscope)
	r.Reported.Pitch = t.reported.Pitch
	r.Reported.Roll = t.reported.Roll
	r.Reported.Course = t.reported.Course
	return r
}

// ServeHTTP reports the current estimate. A POST resets it to level.
func (t *tracker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		t.mu.Lock()
		t.in.Reset()
		t.smoothed = quaternion.Identity()
		t.mu.Unlock()
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t.report())
}
