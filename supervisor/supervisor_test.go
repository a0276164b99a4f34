package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robertof/go-gearvr-controller/device"
)

var errFake = errors.New("fake failure")

type fakeSession struct {
	mu          sync.Mutex
	state       device.State
	failures    int
	failWith    error
	connects    int
	disconnects []bool
	listeners   []device.Listener
	connected   chan struct{}
}

func newFakeSession(failures int) *fakeSession {
	return &fakeSession{
		failures:  failures,
		failWith:  errFake,
		connected: make(chan struct{}, 8),
	}
}

func (s *fakeSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connects += 1

	if s.failures != 0 {
		s.failures -= 1
		return s.failWith
	}

	s.state = device.StateConnected
	s.connected <- struct{}{}

	return nil
}

func (s *fakeSession) Disconnect(connectionDead bool) error {
	s.mu.Lock()
	s.disconnects = append(s.disconnects, connectionDead)
	s.state = device.StateDisconnected
	listeners := append([]device.Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(device.DisconnectEvent())
	}

	return nil
}

func (s *fakeSession) State() device.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *fakeSession) AddListener(l device.Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)

	return func() {}
}

func (s *fakeSession) counts() (connects int, disconnects []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connects, append([]bool(nil), s.disconnects...)
}

func waitConnected(t *testing.T, s *fakeSession) {
	t.Helper()

	select {
	case <-s.connected:
	case <-time.After(time.Second):
		t.Fatalf("session was never connected")
	}
}

func TestConnectWithRetries(t *testing.T) {
	s := newFakeSession(2)
	sup := New(s, Options{MaxRetries: 2, BackoffFactor: time.Millisecond})

	if err := sup.ConnectWithRetries(context.Background()); err != nil {
		t.Fatalf("ConnectWithRetries: got %v, wanted nil", err)
	}

	if connects, _ := s.counts(); connects != 3 {
		t.Fatalf("connect attempts: got %d, wanted 3", connects)
	}
}

func TestConnectWithRetries_GivesUp(t *testing.T) {
	s := newFakeSession(5)
	sup := New(s, Options{MaxRetries: 1, BackoffFactor: time.Millisecond})

	if err := sup.ConnectWithRetries(context.Background()); !errors.Is(err, errFake) {
		t.Fatalf("ConnectWithRetries: got %v, wanted %v", err, errFake)
	}

	if connects, _ := s.counts(); connects != 2 {
		t.Fatalf("connect attempts: got %d, wanted 2", connects)
	}
}

func TestConnectWithRetries_InvalidStateNotRetried(t *testing.T) {
	s := newFakeSession(5)
	s.failWith = device.ErrInvalidState
	sup := New(s, Options{MaxRetries: 3, BackoffFactor: time.Millisecond})

	if err := sup.ConnectWithRetries(context.Background()); !errors.Is(err, device.ErrInvalidState) {
		t.Fatalf("ConnectWithRetries: got %v, wanted %v", err, device.ErrInvalidState)
	}

	if connects, _ := s.counts(); connects != 1 {
		t.Fatalf("connect attempts: got %d, wanted 1", connects)
	}
}

func TestConnectWithRetries_ContextCancelled(t *testing.T) {
	s := newFakeSession(-1)
	sup := New(s, Options{MaxRetries: -1, BackoffFactor: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sup.ConnectWithRetries(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ConnectWithRetries: got %v, wanted %v", err, context.Canceled)
	}
}

func TestBackoff(t *testing.T) {
	sup := New(nil, Options{BackoffFactor: 10 * time.Millisecond})

	for attempt, wanted := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond} {
		if got := sup.backoff(attempt); got != wanted {
			t.Fatalf("backoff(%d): got %v, wanted %v", attempt, got, wanted)
		}
	}

	if got := New(nil, Options{}).backoff(3); got != 0 {
		t.Fatalf("backoff without factor: got %v, wanted 0", got)
	}
}

func TestRun_DisconnectsOnShutdown(t *testing.T) {
	s := newFakeSession(0)
	sup := New(s, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- sup.Run(ctx) }()

	waitConnected(t, s)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, wanted %v", err, context.Canceled)
	}

	if _, disconnects := s.counts(); len(disconnects) != 1 || disconnects[0] {
		t.Fatalf("disconnects: got %v, wanted [false]", disconnects)
	}
}

func TestRun_ReturnsAfterDropWithoutReconnect(t *testing.T) {
	s := newFakeSession(0)
	sup := New(s, Options{})

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background()) }()

	waitConnected(t, s)
	s.Disconnect(true)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: got %v, wanted nil", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after disconnect")
	}
}

func TestRun_Reconnects(t *testing.T) {
	s := newFakeSession(0)
	sup := New(s, Options{Reconnect: true, BackoffFactor: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- sup.Run(ctx) }()

	waitConnected(t, s)
	s.Disconnect(true)
	waitConnected(t, s)

	cancel()
	<-done

	if connects, _ := s.counts(); connects != 2 {
		t.Fatalf("connect attempts: got %d, wanted 2", connects)
	}
}
