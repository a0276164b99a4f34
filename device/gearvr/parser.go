package gearvr

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/robertof/go-gearvr-controller/device"
)

// Packet is the subset of a telemetry notification this driver decodes.
type Packet struct {
	Buttons device.ButtonStates
	RawX    uint16
	RawY    uint16
}

func (p Packet) String() string {
	return fmt.Sprintf("Packet[Buttons=%v,RawX=%d,RawY=%d]", p.Buttons, p.RawX, p.RawY)
}

func ParsePacket(data []byte) (p Packet, err error) {
	if len(data) < PacketMinLength {
		return p, errors.Wrapf(device.ErrInvalidData,
			"unexpected packet length (%d), want >= %d", len(data), PacketMinLength)
	}

	mask := data[offsetButtons]

	for bit, button := range buttonBits {
		p.Buttons[button] = mask&(1<<bit) != 0
	}

	t := data[offsetTouch : offsetTouch+3]
	p.RawX = uint16(t[0]&0x0f)<<6 | uint16(t[1]&0xfc)>>2
	p.RawY = uint16(t[1]&0x03)<<8 | uint16(t[2])

	return p, nil
}

// Controls converts the packet into normalized controls. A zero coordinate on
// either axis reads as "not touched": the pad edge is indistinguishable from a
// lifted finger.
func (p Packet) Controls() (c device.Controls) {
	c.Buttons = p.Buttons

	if p.RawX != 0 && p.RawY != 0 {
		c.Touched = true
		c.Touch = device.Touch{
			X: float64(p.RawX)/touchScale - 1.0,
			Y: float64(p.RawY)/touchScale - 1.0,
		}
	}

	return c
}

// Diff returns the events produced by moving from prev to next. Buttons are
// edge-triggered; touch is reported on every touched frame and released once.
func Diff(prev, next device.Controls) (events []device.Event) {
	for _, button := range buttonBits {
		was, is := prev.Buttons[button], next.Buttons[button]

		switch {
		case !was && is:
			events = append(events, device.ButtonDownEvent(button))
		case was && !is:
			events = append(events, device.ButtonUpEvent(button))
		}
	}

	if next.Touched {
		events = append(events, device.TouchEvent(next.Touch))
	} else if prev.Touched {
		events = append(events, device.TouchReleaseEvent())
	}

	return events
}

// Decode folds one notification payload into prev. Payloads that cannot be
// parsed are no-op frames: prev is returned unchanged, with no events and
// ok set to false.
func Decode(prev device.Controls, data []byte) (next device.Controls, events []device.Event, ok bool) {
	p, err := ParsePacket(data)

	if err != nil {
		return prev, nil, false
	}

	next = p.Controls()

	return next, Diff(prev, next), true
}
