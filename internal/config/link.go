package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/flightlink/internal/vecmath"
)

// DefaultConfigPath is where cmd/flightlink looks for link settings when no
// -config flag is given.
const DefaultConfigPath = "config/flightlink.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// LinkConfig holds the settings of the serial link, the replay reader and
// the flight recorder. Unset fields fall back to the defaults returned by
// the Get* accessors, so partial files are safe.
type LinkConfig struct {
	// Serial port
	SerialPort  *string `json:"serial_port,omitempty" yaml:"serial_port,omitempty"`
	BaudRate    *int    `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	DataBits    *int    `json:"data_bits,omitempty" yaml:"data_bits,omitempty"`
	Parity      *string `json:"parity,omitempty" yaml:"parity,omitempty"`
	StopBits    *int    `json:"stop_bits,omitempty" yaml:"stop_bits,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"` // duration string like "500ms"

	// Fan-out
	SubscriberBuffer *int `json:"subscriber_buffer,omitempty" yaml:"subscriber_buffer,omitempty"`

	// Replay
	ReplayUDPPort *int `json:"replay_udp_port,omitempty" yaml:"replay_udp_port,omitempty"`

	// Attitude
	TickPeriod    *string     `json:"tick_period,omitempty" yaml:"tick_period,omitempty"` // duration of one sensor tick, "" uses 1/freq
	GyroOffset    *[3]float64 `json:"gyro_offset,omitempty" yaml:"gyro_offset,omitempty"`
	NullEpsilon   *float64    `json:"null_epsilon,omitempty" yaml:"null_epsilon,omitempty"`
	LengthEpsilon *float64    `json:"length_epsilon,omitempty" yaml:"length_epsilon,omitempty"`

	// Recorder
	DBPath    *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RecordRaw *bool   `json:"record_raw,omitempty" yaml:"record_raw,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }

// EmptyLinkConfig returns a LinkConfig with every field unset.
func EmptyLinkConfig() *LinkConfig {
	return &LinkConfig{}
}

// DefaultLinkConfig returns a LinkConfig with every field set to its default.
func DefaultLinkConfig() *LinkConfig {
	c := EmptyLinkConfig()
	offset := c.GetGyroOffset()
	tol := c.GetTolerance()
	return &LinkConfig{
		SerialPort:       ptrString(c.GetSerialPort()),
		BaudRate:         ptrInt(c.GetBaudRate()),
		DataBits:         ptrInt(c.GetDataBits()),
		Parity:           ptrString(c.GetParity()),
		StopBits:         ptrInt(c.GetStopBits()),
		ReadTimeout:      ptrString(c.GetReadTimeout().String()),
		SubscriberBuffer: ptrInt(c.GetSubscriberBuffer()),
		ReplayUDPPort:    ptrInt(c.GetReplayUDPPort()),
		TickPeriod:       ptrString(""),
		GyroOffset:       &[3]float64{offset[0], offset[1], offset[2]},
		NullEpsilon:      ptrFloat64(tol.Null),
		LengthEpsilon:    ptrFloat64(tol.Length),
		DBPath:           ptrString(c.GetDBPath()),
		RecordRaw:        ptrBool(c.GetRecordRaw()),
	}
}

// LoadLinkConfig loads a LinkConfig from a .json, .yaml or .yml file no
// larger than 1MB, and validates it.
func LoadLinkConfig(path string) (*LinkConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyLinkConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the set values are usable.
func (c *LinkConfig) Validate() error {
	if c.BaudRate != nil && *c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", *c.BaudRate)
	}
	if c.DataBits != nil && (*c.DataBits < 5 || *c.DataBits > 8) {
		return fmt.Errorf("data_bits must be between 5 and 8, got %d", *c.DataBits)
	}
	if c.Parity != nil {
		switch *c.Parity {
		case "", "N", "E", "O", "M", "S":
		default:
			return fmt.Errorf("parity must be one of N, E, O, M, S, got %q", *c.Parity)
		}
	}
	if c.StopBits != nil && *c.StopBits != 1 && *c.StopBits != 2 {
		return fmt.Errorf("stop_bits must be 1 or 2, got %d", *c.StopBits)
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}
	if c.TickPeriod != nil && *c.TickPeriod != "" {
		d, err := time.ParseDuration(*c.TickPeriod)
		if err != nil {
			return fmt.Errorf("invalid tick_period '%s': %w", *c.TickPeriod, err)
		}
		if d < 0 {
			return fmt.Errorf("tick_period must be non-negative, got %s", d)
		}
	}
	if c.SubscriberBuffer != nil && *c.SubscriberBuffer < 0 {
		return fmt.Errorf("subscriber_buffer must be non-negative, got %d", *c.SubscriberBuffer)
	}
	if c.ReplayUDPPort != nil && (*c.ReplayUDPPort <= 0 || *c.ReplayUDPPort > 65535) {
		return fmt.Errorf("replay_udp_port out of range: %d", *c.ReplayUDPPort)
	}
	if c.NullEpsilon != nil && *c.NullEpsilon <= 0 {
		return fmt.Errorf("null_epsilon must be positive, got %g", *c.NullEpsilon)
	}
	if c.LengthEpsilon != nil && *c.LengthEpsilon <= 0 {
		return fmt.Errorf("length_epsilon must be positive, got %g", *c.LengthEpsilon)
	}
	return nil
}

// GetSerialPort returns the serial device path or the default.
func (c *LinkConfig) GetSerialPort() string {
	if c.SerialPort == nil || *c.SerialPort == "" {
		return "/dev/ttyUSB0"
	}
	return *c.SerialPort
}

// GetBaudRate returns the baud rate or the default.
func (c *LinkConfig) GetBaudRate() int {
	if c.BaudRate == nil {
		return 115200
	}
	return *c.BaudRate
}

// GetDataBits returns the data bits or the default.
func (c *LinkConfig) GetDataBits() int {
	if c.DataBits == nil {
		return 8
	}
	return *c.DataBits
}

// GetParity returns the parity letter or the default.
func (c *LinkConfig) GetParity() string {
	if c.Parity == nil || *c.Parity == "" {
		return "N"
	}
	return *c.Parity
}

// GetStopBits returns the stop bits or the default.
func (c *LinkConfig) GetStopBits() int {
	if c.StopBits == nil {
		return 1
	}
	return *c.StopBits
}

// GetReadTimeout parses and returns ReadTimeout as a time.Duration.
func (c *LinkConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetSubscriberBuffer returns the subscriber channel capacity or the default.
func (c *LinkConfig) GetSubscriberBuffer() int {
	if c.SubscriberBuffer == nil {
		return 16
	}
	return *c.SubscriberBuffer
}

// GetReplayUDPPort returns the UDP port carrying telemetry in captures.
func (c *LinkConfig) GetReplayUDPPort() int {
	if c.ReplayUDPPort == nil {
		return 5005
	}
	return *c.ReplayUDPPort
}

// GetTickPeriod returns the sensor tick period in seconds, or 0 when each
// sample should advance by 1/freq.
func (c *LinkConfig) GetTickPeriod() float64 {
	if c.TickPeriod == nil || *c.TickPeriod == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.TickPeriod)
	if err != nil || d < 0 {
		return 0
	}
	return d.Seconds()
}

// GetGyroOffset returns the raw gyro calibration offset, zero by default.
func (c *LinkConfig) GetGyroOffset() vecmath.Vector3d {
	if c.GyroOffset == nil {
		return vecmath.Vector3d{}
	}
	return vecmath.Vector3d(*c.GyroOffset)
}

// GetTolerance returns the numeric thresholds used by normalization and
// interpolation.
func (c *LinkConfig) GetTolerance() vecmath.Tolerance {
	tol := vecmath.DefaultTolerance()
	if c.NullEpsilon != nil {
		tol.Null = *c.NullEpsilon
	}
	if c.LengthEpsilon != nil {
		tol.Length = *c.LengthEpsilon
	}
	return tol
}

// GetDBPath returns the flight database path or the default.
func (c *LinkConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "flightlink.db"
	}
	return *c.DBPath
}

// GetRecordRaw reports whether the raw register dump is stored with each
// telemetry row.
func (c *LinkConfig) GetRecordRaw() bool {
	if c.RecordRaw == nil {
		return true
	}
	return *c.RecordRaw
}
