package flightdb

import (
	"fmt"
	"time"

	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
)

// SentControls is a stored controls frame.
type SentControls struct {
	Controls records.Controls
	SentAt   time.Time
}

const controlsColumns = `power_on, throttle, tangaj, bank, yaw,
	servo_freq, servo_angle, servo_speed, servo_time_ms, servo_start, servo_pin, sent_at`

// RecordControls stores a controls frame written to the vehicle.
func (db *DB) RecordControls(sessionID string, c records.Controls, sentAt time.Time) error {
	sv := c.Servo
	_, err := db.Exec(`INSERT INTO controls (session_id, `+controlsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		c.PowerOn, c.Throttle, c.Pitch, c.Roll, c.Yaw,
		sv.FreqMeander, sv.Angle, sv.SpeedOfChange, sv.TimeworkMs, sv.FlagStart, sv.Pin, sentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record controls: %w", err)
	}
	monitoring.RowsRecorded.WithLabelValues("controls").Inc()
	return nil
}

// SentControlsFor returns the controls frames of a session in send order.
func (db *DB) SentControlsFor(sessionID string) ([]SentControls, error) {
	rows, err := db.Query(`SELECT `+controlsColumns+` FROM controls
		WHERE session_id = ? ORDER BY sent_at, controls_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query controls: %w", err)
	}
	defer rows.Close()

	var out []SentControls
	for rows.Next() {
		var (
			sc   SentControls
			c    = &sc.Controls
			sent int64
		)
		if err := rows.Scan(
			&c.PowerOn, &c.Throttle, &c.Pitch, &c.Roll, &c.Yaw,
			&c.Servo.FreqMeander, &c.Servo.Angle, &c.Servo.SpeedOfChange, &c.Servo.TimeworkMs,
			&c.Servo.FlagStart, &c.Servo.Pin, &sent,
		); err != nil {
			return nil, fmt.Errorf("failed to scan controls: %w", err)
		}
		sc.SentAt = time.Unix(0, sent)
		out = append(out, sc)
	}
	return out, rows.Err()
}
