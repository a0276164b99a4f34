package device

import (
	"context"
	"fmt"
)

// Filter selects which peripheral RequestDevice should pick.
type Filter struct {
	// Exact address to look for. Empty matches any address.
	Addr string
	// Advertised local name prefix. Empty matches any name.
	NamePrefix string
	// GATT service the peripheral must expose once connected.
	Service string
}

func (f Filter) String() string {
	return fmt.Sprintf("filter[addr=%q, name=%q, service=%v]", f.Addr, f.NamePrefix, f.Service)
}

// Peripheral is a selected, not yet connected, device.
type Peripheral struct {
	Addr string
	Name string
}

func (p Peripheral) String() string {
	return fmt.Sprintf("peripheral[name=%q, addr=%v]", p.Name, p.Addr)
}

// Profile reports which GATT handles a link has resolved.
type Profile struct {
	Service              bool
	NotifyCharacteristic bool
	WriteCharacteristic  bool
	Server               bool
}

func (p Profile) Complete() bool {
	return p.Service && p.NotifyCharacteristic && p.WriteCharacteristic && p.Server
}

// Transport is the Bluetooth capability a session is built on.
type Transport interface {
	// Available reports whether a usable adapter is present.
	Available() bool
	// RequestDevice picks a peripheral matching the filter. Returns an error
	// wrapping ErrDeviceNotSelected when selection is aborted.
	RequestDevice(ctx context.Context, f Filter) (Peripheral, error)
	// OpenSession connects to the peripheral and resolves its GATT profile.
	OpenSession(ctx context.Context, p Peripheral) (Link, error)
}

// Link is an open GATT session with a peripheral.
type Link interface {
	// Write sends an opcode to the write characteristic and waits for the
	// peripheral to accept it.
	Write(opcode []byte) error
	// Subscribe registers the handler for notifications of the notify
	// characteristic. Notifications must be delivered sequentially.
	Subscribe(handler func([]byte)) error
	Close() error
	Connected() bool
	Profile() Profile
}
