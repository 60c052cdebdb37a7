package link

import (
	"context"
	"sync"

	"github.com/banshee-data/flightlink/internal/records"
)

// DisabledLink is a no-op LinkInterface used when no vehicle is attached.
// Subscriber channels are tracked so they close deterministically on
// Unsubscribe or Close.
type DisabledLink struct {
	mu          sync.Mutex
	subscribers map[string]chan records.Telemetry
	closing     bool
}

func NewDisabledLink() *DisabledLink {
	return &DisabledLink{
		subscribers: make(map[string]chan records.Telemetry),
	}
}

func (d *DisabledLink) Subscribe() (string, chan records.Telemetry) {
	id := randomID()
	ch := make(chan records.Telemetry)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		// already closing: hand back a closed channel so callers don't block
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledLink) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

func (d *DisabledLink) SendControls(records.Controls) error { return nil }

func (d *DisabledLink) Latest() (records.Telemetry, bool) { return records.Telemetry{}, false }

func (d *DisabledLink) Stats() Stats { return Stats{} }

func (d *DisabledLink) Monitor(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }

func (d *DisabledLink) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}
