package link

import (
	"bytes"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/flightlink/internal/quaternion"
	"github.com/banshee-data/flightlink/internal/records"
	"github.com/banshee-data/flightlink/internal/vecmath"
)

var errPortClosed = errors.New("serial port closed")

// SimulatedPort is a SerialPorter that emits synthetic Telemetry frames at a
// fixed interval and swallows writes. It backs the -dev mode of the
// flightlink command.
type SimulatedPort struct {
	r      *io.PipeReader
	w      *io.PipeWriter
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	writes bytes.Buffer
}

// NewSimulatedPort starts generating a slow level yaw turn at 1/interval Hz.
func NewSimulatedPort(interval time.Duration) *SimulatedPort {
	r, w := io.Pipe()
	p := &SimulatedPort{r: r, w: w, done: make(chan struct{})}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var tick int64
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
			}
			tick++
			t := SimulatedFrame(tick, interval)
			buf, err := records.Marshal(&t)
			if err != nil {
				return
			}
			if _, err := w.Write(buf); err != nil {
				return
			}
		}
	}()
	return p
}

// SimulatedFrame returns the frame a vehicle yawing at 10 deg/s would report
// at the given tick.
func SimulatedFrame(tick int64, interval time.Duration) records.Telemetry {
	const yawRate = 10.0 // deg/s
	const fsSel = 0

	elapsed := float64(tick) * interval.Seconds()
	q := quaternion.FromEuler(2*math.Sin(elapsed), 3*math.Cos(elapsed/2), yawRate*elapsed)
	pitch, roll, _ := q.Euler()

	t := records.NewTelemetry()
	t.PowerOn = true
	t.Power = [records.EngineCount]float32{0.5, 0.5, 0.5, 0.5}
	t.Pitch = float32(pitch)
	t.Roll = float32(roll)
	t.Course = float32(q.Course())
	t.Height = float32(100 + 5*math.Sin(elapsed/4))
	t.Gyroscope.FsSel = fsSel
	t.Gyroscope.Freq = float32(1 / interval.Seconds())
	t.Gyroscope.Tick = tick
	t.Gyroscope.Temp = 31.5
	t.Gyroscope.Gyro = vecmath.Vector3i{0, 0, int32(math.Round(yawRate * 32768 / 250))}
	t.Gyroscope.Accel = vecmath.Vector3i{0, 0, 16384}
	t.Compass = records.Compass{Mode: 1, Tick: tick, Data: vecmath.Vector3i{
		int32(400 * math.Cos(vecmath.DegToRad(float64(t.Course)))),
		int32(-400 * math.Sin(vecmath.DegToRad(float64(t.Course)))),
		-200,
	}}
	t.Barometer = records.Barometer{Tick: tick, Data: 101325 - int32(12*t.Height), Temp: 2150}
	return t
}

func (p *SimulatedPort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *SimulatedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes.Write(b)
}

// Written returns every byte written to the port.
func (p *SimulatedPort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.writes.Bytes())
}

func (p *SimulatedPort) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.r.Close()
	})
	return nil
}

// TestableSerialPort implements SerialPorter with configurable behaviour for
// tests.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls
	ReadBuffer *bytes.Buffer
	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error
	// WriteError is returned by the next Write call if set
	WriteError error
	// ShortWrite makes Write report one byte fewer than it was given
	ShortWrite bool
	// CloseError is returned by Close if set
	CloseError error

	Closed      bool
	ReadCalls   int
	WriteCalls  int
	ReadTimeout time.Duration

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates an empty TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

func (t *TestableSerialPort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return 0, errPortClosed
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if t.BlockReads {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errPortClosed
		}
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++
	if t.Closed {
		return 0, errPortClosed
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	if t.ShortWrite && len(p) > 0 {
		return t.WriteBuffer.Write(p[:len(p)-1])
	}
	return t.WriteBuffer.Write(p)
}

func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadTimeout = timeout
	return nil
}

// AddReadData queues data for subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// GetWrittenData returns a copy of everything written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return bytes.Clone(t.WriteBuffer.Bytes())
}
