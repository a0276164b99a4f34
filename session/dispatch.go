package session

import (
	"sync"

	"github.com/robertof/go-gearvr-controller/device"
)

type registration struct {
	id uint64
	fn device.Listener
}

// dispatcher delivers events to listeners in the order they were queued.
// Only one goroutine delivers at a time; events queued by a listener (or by
// another goroutine) while delivery is running are picked up by the same loop.
type dispatcher struct {
	mu sync.Mutex

	listeners []registration
	nextID    uint64

	pending []device.Event
	running bool
}

// AddListener registers l and returns a function removing it again.
func (d *dispatcher) AddListener(l device.Listener) (remove func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID += 1
	id := d.nextID
	d.listeners = append(d.listeners, registration{id: id, fn: l})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		for i, r := range d.listeners {
			if r.id == id {
				d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

func (d *dispatcher) queue(events ...device.Event) {
	if len(events) == 0 {
		return
	}

	d.mu.Lock()
	d.pending = append(d.pending, events...)
	d.mu.Unlock()
}

func (d *dispatcher) flush() {
	d.mu.Lock()

	if d.running {
		d.mu.Unlock()
		return
	}

	d.running = true

	for len(d.pending) > 0 {
		ev := d.pending[0]
		d.pending = d.pending[1:]
		listeners := append([]registration(nil), d.listeners...)

		d.mu.Unlock()

		for _, l := range listeners {
			l.fn(ev)
		}

		d.mu.Lock()
	}

	d.pending = nil
	d.running = false
	d.mu.Unlock()
}
