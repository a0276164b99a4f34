package device

import (
	"fmt"
	"strconv"
)

type EventKind uint8

const (
	EventConnect EventKind = iota
	EventDisconnect
	EventButtonDown
	EventButtonUp
	EventTouch
	EventTouchRelease
)

// EventKinds lists every event kind in declaration order.
var EventKinds = []EventKind{
	EventConnect,
	EventDisconnect,
	EventButtonDown,
	EventButtonUp,
	EventTouch,
	EventTouchRelease,
}

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventButtonDown:
		return "buttondown"
	case EventButtonUp:
		return "buttonup"
	case EventTouch:
		return "touch"
	case EventTouchRelease:
		return "touchrelease"
	default:
		panic("unknown event kind: " + strconv.Itoa(int(k)))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a semantic controller event. Button is only meaningful for
// EventButtonDown/EventButtonUp and Touch only for EventTouch.
type Event struct {
	Kind   EventKind
	Button Button
	Touch  Touch
}

func ConnectEvent() Event {
	return Event{Kind: EventConnect}
}

func DisconnectEvent() Event {
	return Event{Kind: EventDisconnect}
}

func ButtonDownEvent(b Button) Event {
	return Event{Kind: EventButtonDown, Button: b}
}

func ButtonUpEvent(b Button) Event {
	return Event{Kind: EventButtonUp, Button: b}
}

func TouchEvent(t Touch) Event {
	return Event{Kind: EventTouch, Touch: t}
}

func TouchReleaseEvent() Event {
	return Event{Kind: EventTouchRelease}
}

func (e Event) String() string {
	switch e.Kind {
	case EventButtonDown, EventButtonUp:
		return fmt.Sprintf("%v(%v)", e.Kind, e.Button)
	case EventTouch:
		return fmt.Sprintf("%v%v", e.Kind, e.Touch)
	default:
		return e.Kind.String()
	}
}

// Listener receives controller events.
type Listener func(Event)
