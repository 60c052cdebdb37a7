// Package link multiplexes the vehicle's serial telemetry stream: it reads
// fixed-size Telemetry frames from one port, fans them out to any number of
// subscribers and serialises Controls commands back to the device.
package link

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/flightlink/internal/monitoring"
	"github.com/banshee-data/flightlink/internal/records"
)

var ErrWriteFailed = errors.New("failed to write to serial port")

// Link is a telemetry multiplexer over a single serial port.
type Link[T SerialPorter] struct {
	port    T
	bufSize int

	subscribers  map[string]chan records.Telemetry
	subscriberMu sync.Mutex
	commandMu    sync.Mutex

	stateMu    sync.Mutex
	latest     records.Telemetry
	haveLatest bool
	stats      Stats
	closing    bool
}

// Stats counts link traffic since the link was created.
type Stats struct {
	FramesRead    uint64
	BytesRead     uint64
	Malformed     uint64
	ControlsSent  uint64
	Dropped       uint64
	LastFrameTime time.Time
}

// LinkInterface is satisfied by Link and DisabledLink.
type LinkInterface interface {
	// Subscribe returns a channel receiving every decoded frame. The ID
	// identifies the channel when unsubscribing.
	Subscribe() (string, chan records.Telemetry)
	Unsubscribe(string)
	// SendControls encodes c and writes it to the device.
	SendControls(records.Controls) error
	// Latest returns the most recent frame, if any has arrived.
	Latest() (records.Telemetry, bool)
	Stats() Stats
	// Monitor reads frames until ctx is cancelled, the port reaches EOF or
	// a read fails.
	Monitor(context.Context) error
	Close() error
}

// New returns a Link over port. Subscriber channels are created with
// capacity bufSize.
func New[T SerialPorter](port T, bufSize int) *Link[T] {
	if bufSize < 0 {
		bufSize = 0
	}
	return &Link[T]{
		port:        port,
		bufSize:     bufSize,
		subscribers: make(map[string]chan records.Telemetry),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (l *Link[T]) Subscribe() (string, chan records.Telemetry) {
	id := randomID()
	ch := make(chan records.Telemetry, l.bufSize)
	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	l.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber channel.
func (l *Link[T]) Unsubscribe(id string) {
	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	if ch, ok := l.subscribers[id]; ok {
		close(ch)
		delete(l.subscribers, id)
	}
}

// SendControls writes one encoded Controls frame to the port.
func (l *Link[T]) SendControls(c records.Controls) error {
	buf, err := records.Marshal(&c)
	if err != nil {
		return err
	}

	l.commandMu.Lock()
	defer l.commandMu.Unlock()
	n, err := l.port.Write(buf)
	if err != nil {
		return fmt.Errorf("send controls: %w", err)
	}
	if n != len(buf) {
		return ErrWriteFailed
	}

	l.stateMu.Lock()
	l.stats.ControlsSent++
	l.stateMu.Unlock()
	monitoring.ControlsSent.Inc()
	return nil
}

// Latest returns the most recently decoded frame.
func (l *Link[T]) Latest() (records.Telemetry, bool) {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.latest, l.haveLatest
}

// Stats returns a snapshot of the traffic counters.
func (l *Link[T]) Stats() Stats {
	l.stateMu.Lock()
	defer l.stateMu.Unlock()
	return l.stats
}

// readFrame fills buf from the port. Reads that return no data (a port read
// timeout) are retried until ctx is done.
func (l *Link[T]) readFrame(ctx context.Context, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		m, err := l.port.Read(buf[n:])
		n += m
		if err != nil {
			if errors.Is(err, io.EOF) && n > 0 && n < len(buf) {
				return n, io.ErrUnexpectedEOF
			}
			return n, err
		}
	}
	return n, nil
}

// Monitor reads Telemetry frames from the port and delivers them to every
// subscriber. Full subscriber channels are skipped so one slow reader does
// not stall the link.
func (l *Link[T]) Monitor(ctx context.Context) error {
	// releases the reader goroutine when Monitor returns on its own
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frameChan := make(chan records.Telemetry)
	readErrChan := make(chan error, 1)

	// the blocking port read runs in its own goroutine so the outer loop can
	// observe cancellation
	go func() {
		defer close(frameChan)
		buf := make([]byte, records.TelemetrySize)
		for {
			n, err := l.readFrame(ctx, buf)
			if err != nil {
				if errors.Is(err, io.ErrUnexpectedEOF) {
					l.countMalformed(n)
				}
				if !errors.Is(err, io.EOF) {
					select {
					case readErrChan <- err:
					case <-ctx.Done():
					}
				}
				return
			}

			t := records.NewTelemetry()
			if err := records.Unmarshal(buf, &t); err != nil {
				l.countMalformed(n)
				monitoring.Logf("link: %v", err)
				continue
			}
			select {
			case frameChan <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("read telemetry frame: %w", err)

		case t, ok := <-frameChan:
			if !ok {
				select {
				case err := <-readErrChan:
					return fmt.Errorf("read telemetry frame: %w", err)
				default:
				}
				return nil
			}
			if l.publish(t) {
				return nil
			}
		}
	}
}

func (l *Link[T]) countMalformed(n int) {
	l.stateMu.Lock()
	l.stats.Malformed++
	l.stats.BytesRead += uint64(n)
	l.stateMu.Unlock()
	monitoring.FramesMalformed.WithLabelValues(monitoring.SourceSerial).Inc()
}

// publish records t as the latest frame and fans it out. It reports true
// once the link is closing.
func (l *Link[T]) publish(t records.Telemetry) bool {
	now := time.Now()

	l.stateMu.Lock()
	if l.closing {
		l.stateMu.Unlock()
		return true
	}
	l.latest = t
	l.haveLatest = true
	l.stats.FramesRead++
	l.stats.BytesRead += records.TelemetrySize
	l.stats.LastFrameTime = now
	l.stateMu.Unlock()

	monitoring.FramesDecoded.WithLabelValues(monitoring.SourceSerial).Inc()
	monitoring.LastCourse.Set(float64(t.Course))

	l.subscriberMu.Lock()
	defer l.subscriberMu.Unlock()
	for _, ch := range l.subscribers {
		select {
		case ch <- t:
		default:
			l.stateMu.Lock()
			l.stats.Dropped++
			l.stateMu.Unlock()
			monitoring.SubscriberDrops.Inc()
		}
	}
	return false
}

// Close closes every subscriber channel and the port.
func (l *Link[T]) Close() error {
	l.stateMu.Lock()
	l.closing = true
	st := l.stats
	l.stateMu.Unlock()

	l.subscriberMu.Lock()
	for id, ch := range l.subscribers {
		close(ch)
		delete(l.subscribers, id)
	}
	l.subscriberMu.Unlock()

	monitoring.Logf("link: closing after %d frames (%s), %d malformed",
		st.FramesRead, humanize.Bytes(st.BytesRead), st.Malformed)
	return l.port.Close()
}
