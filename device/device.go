package device

import (
	"errors"
	"strconv"
)

var (
	// A connect or disconnect was attempted while another one is in flight, or
	// from a state that does not allow it.
	ErrInvalidState = errors.New("invalid state")
	// A command was issued without an established link.
	ErrNotConnected = errors.New("not connected")
	// The Bluetooth adapter is missing or disabled.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// Device selection was aborted or no matching device was found.
	ErrDeviceNotSelected = errors.New("device not selected")
	// GATT level connect, write or notify failure.
	ErrLinkFailure = errors.New("link failure")
	// Notification payload could not be decoded.
	ErrInvalidData = errors.New("invalid data")
)

// State is the connection lifecycle state of a controller session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

// Transient reports whether a lifecycle transition is in flight.
func (s State) Transient() bool {
	return s == StateConnecting || s == StateDisconnecting
}

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		panic("unknown state value: " + strconv.Itoa(int(s)))
	}
}
