package flightdb

import (
	"fmt"
	"time"

	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

// Sample is a stored telemetry frame with its derived angular rate.
type Sample struct {
	Telemetry  records.Telemetry
	Rate       vecmath.Vector3d // deg/s
	ReceivedAt time.Time
}

const telemetryColumns = `power_on, power_0, power_1, power_2, power_3,
	tangaj, bank, course, height,
	temp, gyro_x, gyro_y, gyro_z, accel_x, accel_y, accel_z, afs_sel, fs_sel, freq, tick, raw,
	rate_x, rate_y, rate_z,
	compass_mode, compass_tick, compass_x, compass_y, compass_z,
	baro_tick, pressure, baro_temp, received_at`

// RecordTelemetry stores one sample. The raw register dump is stored only
// when withRaw is set.
func (db *DB) RecordTelemetry(sessionID string, s Sample, withRaw bool) error {
	t := s.Telemetry
	g := t.Gyroscope

	var raw []byte
	if withRaw {
		raw = g.Raw[:]
	}

	_, err := db.Exec(`INSERT INTO telemetry (session_id, `+telemetryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		t.PowerOn, t.Power[0], t.Power[1], t.Power[2], t.Power[3],
		t.Pitch, t.Roll, t.Course, t.Height,
		g.Temp, g.Gyro[0], g.Gyro[1], g.Gyro[2], g.Accel[0], g.Accel[1], g.Accel[2], g.AfsSel, g.FsSel, g.Freq, g.Tick, raw,
		s.Rate[0], s.Rate[1], s.Rate[2],
		t.Compass.Mode, t.Compass.Tick, t.Compass.Data[0], t.Compass.Data[1], t.Compass.Data[2],
		t.Barometer.Tick, t.Barometer.Data, t.Barometer.Temp, s.ReceivedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record telemetry: %w", err)
	}
	monitoring.RowsRecorded.WithLabelValues("telemetry").Inc()
	return nil
}

// TelemetrySamples returns every sample of a session in arrival order.
func (db *DB) TelemetrySamples(sessionID string) ([]Sample, error) {
	rows, err := db.Query(`SELECT `+telemetryColumns+` FROM telemetry
		WHERE session_id = ? ORDER BY received_at, telemetry_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			s        Sample
			t        = &s.Telemetry
			g        = &t.Gyroscope
			raw      []byte
			received int64
		)
		err := rows.Scan(
			&t.PowerOn, &t.Power[0], &t.Power[1], &t.Power[2], &t.Power[3],
			&t.Pitch, &t.Roll, &t.Course, &t.Height,
			&g.Temp, &g.Gyro[0], &g.Gyro[1], &g.Gyro[2], &g.Accel[0], &g.Accel[1], &g.Accel[2], &g.AfsSel, &g.FsSel, &g.Freq, &g.Tick, &raw,
			&s.Rate[0], &s.Rate[1], &s.Rate[2],
			&t.Compass.Mode, &t.Compass.Tick, &t.Compass.Data[0], &t.Compass.Data[1], &t.Compass.Data[2],
			&t.Barometer.Tick, &t.Barometer.Data, &t.Barometer.Temp, &received,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan telemetry: %w", err)
		}
		copy(g.Raw[:], raw)
		s.ReceivedAt = time.Unix(0, received)
		out = append(out, s)
	}
	return out, rows.Err()
}

// TelemetryCount returns the number of samples stored for a session.
func (db *DB) TelemetryCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM telemetry WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
