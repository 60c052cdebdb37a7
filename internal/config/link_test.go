package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/flightlink/internal/vecmath"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyLinkConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := EmptyLinkConfig()
	assert.Equal(t, "/dev/ttyUSB0", cfg.GetSerialPort())
	assert.Equal(t, 115200, cfg.GetBaudRate())
	assert.Equal(t, 8, cfg.GetDataBits())
	assert.Equal(t, "N", cfg.GetParity())
	assert.Equal(t, 1, cfg.GetStopBits())
	assert.Equal(t, 500*time.Millisecond, cfg.GetReadTimeout())
	assert.Equal(t, 16, cfg.GetSubscriberBuffer())
	assert.Equal(t, 5005, cfg.GetReplayUDPPort())
	assert.Equal(t, 0.0, cfg.GetTickPeriod())
	assert.Equal(t, vecmath.Vector3d{}, cfg.GetGyroOffset())
	assert.Equal(t, vecmath.DefaultTolerance(), cfg.GetTolerance())
	assert.Equal(t, "flightlink.db", cfg.GetDBPath())
	assert.True(t, cfg.GetRecordRaw())
	assert.NoError(t, cfg.Validate())
}

func TestDefaultLinkConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultLinkConfig()
	require.NotNil(t, cfg.BaudRate)
	assert.Equal(t, 115200, *cfg.BaudRate)
	require.NotNil(t, cfg.ReadTimeout)
	assert.Equal(t, "500ms", *cfg.ReadTimeout)
	assert.Equal(t, EmptyLinkConfig().GetTolerance(), cfg.GetTolerance())
	assert.NoError(t, cfg.Validate())
}

func TestLoadLinkConfig_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "link.json", `{
  "serial_port": "/dev/ttyACM1",
  "baud_rate": 57600,
  "parity": "E",
  "read_timeout": "250ms",
  "tick_period": "1ms",
  "gyro_offset": [1.5, -2, 0.25],
  "null_epsilon": 1e-6,
  "record_raw": false
}`)
	cfg, err := LoadLinkConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", cfg.GetSerialPort())
	assert.Equal(t, 57600, cfg.GetBaudRate())
	assert.Equal(t, "E", cfg.GetParity())
	assert.Equal(t, 250*time.Millisecond, cfg.GetReadTimeout())
	assert.InDelta(t, 0.001, cfg.GetTickPeriod(), 1e-12)
	assert.Equal(t, vecmath.Vector3d{1.5, -2, 0.25}, cfg.GetGyroOffset())
	assert.Equal(t, vecmath.Tolerance{Null: 1e-6, Length: vecmath.LengthEpsilon}, cfg.GetTolerance())
	assert.False(t, cfg.GetRecordRaw())
	// unset fields keep defaults
	assert.Equal(t, 8, cfg.GetDataBits())
}

func TestLoadLinkConfig_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "link.yaml", `
serial_port: /dev/serial0
stop_bits: 2
replay_udp_port: 6000
length_epsilon: 0.001
db_path: /var/lib/flightlink/flights.db
`)
	cfg, err := LoadLinkConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/serial0", cfg.GetSerialPort())
	assert.Equal(t, 2, cfg.GetStopBits())
	assert.Equal(t, 6000, cfg.GetReplayUDPPort())
	assert.Equal(t, 0.001, cfg.GetTolerance().Length)
	assert.Equal(t, "/var/lib/flightlink/flights.db", cfg.GetDBPath())
}

func TestLoadLinkConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "link.txt", `{}`, "extension"},
		{"bad json", "link.json", `{`, "failed to parse"},
		{"bad yaml", "link.yml", "baud_rate: [", "failed to parse"},
		{"negative baud", "link.json", `{"baud_rate": -1}`, "baud_rate"},
		{"data bits", "link.json", `{"data_bits": 9}`, "data_bits"},
		{"parity", "link.json", `{"parity": "X"}`, "parity"},
		{"stop bits", "link.json", `{"stop_bits": 3}`, "stop_bits"},
		{"timeout", "link.json", `{"read_timeout": "soon"}`, "read_timeout"},
		{"tick period", "link.json", `{"tick_period": "-1ms"}`, "tick_period"},
		{"udp port", "link.json", `{"replay_udp_port": 70000}`, "replay_udp_port"},
		{"null epsilon", "link.json", `{"null_epsilon": 0}`, "null_epsilon"},
		{"length epsilon", "link.json", `{"length_epsilon": -1}`, "length_epsilon"},
		{"subscriber buffer", "link.json", `{"subscriber_buffer": -2}`, "subscriber_buffer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadLinkConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadLinkConfig(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorContains(t, err, "failed to stat")
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "big.json")
		require.NoError(t, os.WriteFile(path, make([]byte, maxFileSize+1), 0644))
		_, err := LoadLinkConfig(path)
		assert.ErrorContains(t, err, "too large")
	})
}
