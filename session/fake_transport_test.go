package session_test

import (
	"context"
	"errors"
	"sync"

	"github.com/robertof/go-gearvr-controller/device"
)

var errFake = errors.New("fake failure")

// fakeLink records writes and lets tests push notifications.
type fakeLink struct {
	mu sync.Mutex

	writes   [][]byte
	handler  func([]byte)
	closed   bool
	down     bool
	profile  device.Profile
	failOn   map[string]error
	closeErr error
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		profile: device.Profile{
			Service:              true,
			NotifyCharacteristic: true,
			WriteCharacteristic:  true,
			Server:               true,
		},
		failOn: make(map[string]error),
	}
}

func (l *fakeLink) Write(opcode []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.failOn[string(opcode)]; err != nil {
		return err
	}

	l.writes = append(l.writes, append([]byte(nil), opcode...))

	return nil
}

func (l *fakeLink) Subscribe(handler func([]byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.failOn["subscribe"]; err != nil {
		return err
	}

	l.handler = handler

	return nil
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true

	return l.closeErr
}

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return !l.closed && !l.down
}

func (l *fakeLink) Profile() device.Profile {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.profile
}

func (l *fakeLink) notify(data []byte) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()

	if h != nil {
		h(data)
	}
}

func (l *fakeLink) recordedWrites() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([][]byte(nil), l.writes...)
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.closed
}

// fakeTransport hands out fakeLinks. When gate is set, OpenSession blocks
// until it is closed, so tests can observe the Connecting window.
type fakeTransport struct {
	mu sync.Mutex

	unavailable bool
	selectErr   error
	openErr     error
	gate        chan struct{}
	opening     chan struct{}

	links []*fakeLink
	next  *fakeLink
}

func (t *fakeTransport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.unavailable
}

func (t *fakeTransport) RequestDevice(_ context.Context, f device.Filter) (device.Peripheral, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.selectErr != nil {
		return device.Peripheral{}, t.selectErr
	}

	return device.Peripheral{Addr: "2c:ba:ba:00:00:01", Name: "Gear VR Controller(0001)"}, nil
}

func (t *fakeTransport) OpenSession(ctx context.Context, _ device.Peripheral) (device.Link, error) {
	t.mu.Lock()
	gate, opening := t.gate, t.opening
	t.mu.Unlock()

	if opening != nil {
		close(opening)
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.openErr != nil {
		return nil, t.openErr
	}

	link := t.next
	if link == nil {
		link = newFakeLink()
	}
	t.next = nil

	t.links = append(t.links, link)

	return link, nil
}

func (t *fakeTransport) opened() []*fakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*fakeLink(nil), t.links...)
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []device.Event
}

func (r *recorder) listen(e device.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) kinds() (out []device.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		out = append(out, e.Kind)
	}

	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
