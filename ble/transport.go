package ble

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/robertof/go-gearvr-controller/device"
	"github.com/rs/zerolog/log"
)

const DefaultScanTimeout = 10 * time.Second

type TransportOptions struct {
	DeviceID   int
	ConnParams ConnParams
	Flags      Flags
	// Addresses to allow-list on the adapter when FlagEnableDeviceAllowList is set.
	AllowList []net.HardwareAddr
	// How long RequestDevice scans before giving up.
	ScanTimeout time.Duration
	// GATT handles resolved when a session is opened.
	Service              string
	NotifyCharacteristic string
	WriteCharacteristic  string
}

// Transport implements device.Transport on a local HCI adapter. The adapter is
// opened on first use so that a missing adapter surfaces as "unavailable"
// rather than a startup failure.
type Transport struct {
	opts TransportOptions

	mu     sync.Mutex
	handle *Handle
}

func NewTransport(opts TransportOptions) *Transport {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = DefaultScanTimeout
	}

	return &Transport{opts: opts}
}

func (t *Transport) init() (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle != nil {
		return t.handle, nil
	}

	h, err := InitWithConnParams(t.opts.DeviceID, t.opts.ConnParams, t.opts.Flags)
	if err != nil {
		return nil, err
	}

	if t.opts.Flags&FlagEnableDeviceAllowList == FlagEnableDeviceAllowList {
		if err := h.SetAllowListedAddresses(t.opts.AllowList); err != nil {
			log.Error().Err(err).Msg("ble: failed to set device allow list")
		}
	}

	t.handle = h

	return h, nil
}

// Handle returns the underlying adapter handle, opening it if needed.
func (t *Transport) Handle() (*Handle, error) {
	return t.init()
}

func (t *Transport) Available() bool {
	if _, err := t.init(); err != nil {
		log.Warn().Err(err).Int("DeviceID", t.opts.DeviceID).Msg("ble: adapter unavailable")
		return false
	}

	return true
}

func (t *Transport) RequestDevice(ctx context.Context, f device.Filter) (p device.Peripheral, err error) {
	h, err := t.init()
	if err != nil {
		return p, fmt.Errorf("%w: %w", device.ErrTransportUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.ScanTimeout)
	defer cancel()

	log.Debug().Stringer("Filter", f).Dur("Timeout", t.opts.ScanTimeout).Msg("ble: scanning for device")

	a, err := h.ScanFirst(ctx, func(a Advertisement) bool {
		return MatchesFilter(f, a)
	})

	if err != nil {
		return p, fmt.Errorf("%w: no device matching %v found: %w", device.ErrDeviceNotSelected, f, err)
	}

	return device.Peripheral{
		Addr: a.Addr().String(),
		Name: a.LocalName(),
	}, nil
}

func (t *Transport) OpenSession(ctx context.Context, p device.Peripheral) (device.Link, error) {
	h, err := t.init()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", device.ErrTransportUnavailable, err)
	}

	client, err := h.Connect(ctx, p.Addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %v: %w", device.ErrLinkFailure, p, err)
	}

	l, err := resolveLink(client, t.opts.Service, t.opts.NotifyCharacteristic, t.opts.WriteCharacteristic)
	if err != nil {
		if cerr := client.CancelConnection(); cerr != nil {
			log.Debug().Err(cerr).Msg("ble: failed to cancel connection after profile discovery failure")
		}

		return nil, fmt.Errorf("%w: %w", device.ErrLinkFailure, err)
	}

	log.Debug().Stringer("Peripheral", p).Msg("ble: GATT session ready")

	return l, nil
}

func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
}
