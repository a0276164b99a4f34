// Package session drives the connection lifecycle of a single controller:
// connecting, mode setup, telemetry decoding, liveness watchdog and teardown.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robertof/go-gearvr-controller/clock"
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/device/gearvr"
	"github.com/robertof/go-gearvr-controller/utils"
	"github.com/rs/zerolog/log"
)

const DefaultWatchdogTimeout = 500 * time.Millisecond

type Options struct {
	// Which controller to connect to.
	Filter device.Filter
	// Forced disconnect after this long without a valid notification.
	WatchdogTimeout time.Duration
	// Defaults to clock.Real().
	Clock clock.Clock
}

// Snapshot is a consistent view of the session state.
type Snapshot struct {
	State    device.State
	Controls device.Controls
}

// Manager owns one controller session. Connect and Disconnect never queue:
// calling either while a transition is in flight fails with
// device.ErrInvalidState.
type Manager struct {
	transport device.Transport
	opts      Options

	mu       sync.Mutex
	state    device.State
	controls device.Controls
	link     device.Link

	watchdog    clock.Timer
	watchdogGen uint64

	events dispatcher
}

func NewManager(t device.Transport, opts Options) *Manager {
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = DefaultWatchdogTimeout
	}

	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}

	return &Manager{
		transport: t,
		opts:      opts,
	}
}

// AddListener registers a listener for controller events. Listeners are
// called sequentially, in event order, and may call back into the Manager.
func (m *Manager) AddListener(l device.Listener) (remove func()) {
	return m.events.AddListener(l)
}

func (m *Manager) State() device.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

func (m *Manager) Controls() device.Controls {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.controls
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		State:    m.state,
		Controls: m.controls,
	}
}

// Connected reports whether a link is held, the link itself is up and its
// whole GATT profile has been resolved.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	link := m.link
	m.mu.Unlock()

	return link != nil && link.Connected() && link.Profile().Complete()
}

// Connect opens a session with the controller and enables sensor streaming.
// On failure the session is left Disconnected with no link retained.
func (m *Manager) Connect(ctx context.Context) (err error) {
	m.mu.Lock()

	if m.state != device.StateDisconnected {
		state := m.state
		m.mu.Unlock()

		return fmt.Errorf("%w: cannot connect while %v", device.ErrInvalidState, state)
	}

	m.state = device.StateConnecting
	m.controls = device.Controls{}
	m.mu.Unlock()

	log.Debug().Stringer("Filter", m.opts.Filter).Msg("session: connecting")

	connected := false

	defer func() {
		if !connected {
			m.abortConnect()
		}
	}()

	link, err := m.openLink(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.link = link
	m.mu.Unlock()

	err = link.Subscribe(func(data []byte) {
		m.handleNotification(link, data)
	})

	if err != nil {
		return fmt.Errorf("%w: failed to subscribe to notifications: %w", device.ErrLinkFailure, err)
	}

	// sensors may only be enabled once the controller accepted VR mode.
	for _, op := range []gearvr.Opcode{gearvr.OpcodeVRMode, gearvr.OpcodeSensorsMode} {
		if err := link.Write(op.Bytes()); err != nil {
			return fmt.Errorf("%w: failed to send %v: %w", device.ErrLinkFailure, op, err)
		}

		log.Trace().Stringer("Opcode", op).Msg("session: sent setup command")
	}

	m.mu.Lock()
	m.state = device.StateConnected
	m.events.queue(device.ConnectEvent())
	m.mu.Unlock()

	connected = true
	m.events.flush()

	log.Info().Stringer("Filter", m.opts.Filter).Msg("session: controller connected")

	return nil
}

func (m *Manager) openLink(ctx context.Context) (device.Link, error) {
	if !m.transport.Available() {
		return nil, fmt.Errorf("%w: no usable bluetooth adapter", device.ErrTransportUnavailable)
	}

	p, err := m.transport.RequestDevice(ctx, m.opts.Filter)
	if err != nil {
		return nil, classify(err, device.ErrDeviceNotSelected, "failed to select controller")
	}

	log.Debug().Stringer("Peripheral", p).Msg("session: controller selected, opening session")

	link, err := m.transport.OpenSession(ctx, p)
	if err != nil {
		return nil, classify(err, device.ErrLinkFailure, "failed to open session")
	}

	return link, nil
}

// abortConnect releases whatever a failed Connect acquired and returns to
// Disconnected.
func (m *Manager) abortConnect() {
	m.mu.Lock()
	link := m.link
	m.link = nil
	m.stopWatchdog()
	m.mu.Unlock()

	if link != nil {
		if err := link.Close(); err != nil {
			log.Warn().Err(err).Msg("session: failed to close link after failed connect")
		}
	}

	m.mu.Lock()
	m.controls = device.Controls{}
	m.state = device.StateDisconnected
	m.mu.Unlock()
}

// Disconnect tears the session down. Unless connectionDead is set, the
// controller is asked to power off first; failure to do so is ignored. Local
// state is always reset and a disconnect event emitted, even when closing the
// link fails, in which case the error is returned afterwards.
func (m *Manager) Disconnect(connectionDead bool) (err error) {
	m.mu.Lock()

	if m.state != device.StateConnected {
		state := m.state
		m.mu.Unlock()

		return fmt.Errorf("%w: cannot disconnect while %v", device.ErrInvalidState, state)
	}

	m.stopWatchdog()
	m.state = device.StateDisconnecting
	link := m.link
	m.mu.Unlock()

	log.Debug().Bool("ConnectionDead", connectionDead).Msg("session: disconnecting")

	defer func() {
		m.mu.Lock()
		m.stopWatchdog()
		m.controls = device.Controls{}
		m.link = nil
		m.state = device.StateDisconnected
		m.events.queue(device.DisconnectEvent())
		m.mu.Unlock()

		m.events.flush()

		log.Info().Err(err).Msg("session: controller disconnected")
	}()

	if !connectionDead {
		if err := safeCall(func() error { return link.Write(gearvr.OpcodePowerOff.Bytes()) }); err != nil {
			log.Warn().Err(err).Msg("session: failed to power off controller, tearing down anyway")
		}
	}

	if err := link.Close(); err != nil {
		return fmt.Errorf("%w: failed to close session: %w", device.ErrLinkFailure, err)
	}

	return nil
}

// SendCommand writes an arbitrary opcode to a connected controller.
func (m *Manager) SendCommand(op gearvr.Opcode) error {
	m.mu.Lock()
	link := m.link
	m.mu.Unlock()

	if link == nil || !link.Connected() || !link.Profile().Complete() {
		return fmt.Errorf("%w: cannot send %v", device.ErrNotConnected, op)
	}

	if err := link.Write(op.Bytes()); err != nil {
		return fmt.Errorf("%w: failed to send %v: %w", device.ErrLinkFailure, op, err)
	}

	return nil
}

func (m *Manager) handleNotification(link device.Link, data []byte) {
	m.mu.Lock()

	if m.link != link || m.state != device.StateConnected {
		state := m.state
		m.mu.Unlock()

		log.Trace().Stringer("State", state).Msg("session: dropping notification outside of connected session")
		return
	}

	next, events, ok := gearvr.Decode(m.controls, data)

	if !ok {
		m.mu.Unlock()

		log.Trace().Int("Length", len(data)).Msg("session: ignoring undecodable notification")
		return
	}

	m.controls = next
	m.rearmWatchdog()
	m.events.queue(events...)
	m.mu.Unlock()

	m.events.flush()
}

// rearmWatchdog replaces the pending watchdog timer. Caller holds m.mu.
func (m *Manager) rearmWatchdog() {
	m.stopWatchdog()

	m.watchdogGen += 1
	gen := m.watchdogGen

	m.watchdog = m.opts.Clock.AfterFunc(m.opts.WatchdogTimeout, func() {
		m.watchdogExpired(gen)
	})
}

// stopWatchdog cancels the pending watchdog timer, if any. Caller holds m.mu.
func (m *Manager) stopWatchdog() {
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
}

func (m *Manager) watchdogExpired(gen uint64) {
	m.mu.Lock()

	// a timer superseded by a rearm or cancelled by a disconnect may still
	// fire if it raced with Stop().
	if m.watchdog == nil || gen != m.watchdogGen {
		m.mu.Unlock()
		return
	}

	m.watchdog = nil
	m.mu.Unlock()

	log.Warn().
		Dur("Timeout", m.opts.WatchdogTimeout).
		Msg("session: no telemetry received in time, treating link as dead")

	if err := m.Disconnect(true); err != nil {
		log.Debug().Err(err).Msg("session: watchdog disconnect failed")
	}
}

var taxonomy = []error{
	device.ErrInvalidState,
	device.ErrNotConnected,
	device.ErrTransportUnavailable,
	device.ErrDeviceNotSelected,
	device.ErrLinkFailure,
}

// classify wraps err with fallback unless the transport already tagged it
// with one of the session errors.
func classify(err error, fallback error, msg string) error {
	if utils.ErrorIsAnyOf(err, taxonomy...) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	return fmt.Errorf("%w: %s: %w", fallback, msg, err)
}

// safeCall turns a panicking best-effort step into an error so the teardown
// after it still runs.
func safeCall(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return f()
}
