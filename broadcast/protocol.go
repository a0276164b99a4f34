package broadcast

import (
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgEvent    MessageType = "event"
)

type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

type EventPayload struct {
	Kind   device.EventKind `json:"kind"`
	Button *device.Button   `json:"button,omitempty"`
	Touch  *device.Touch    `json:"touch,omitempty"`
}

type SnapshotPayload struct {
	State   string          `json:"state"`
	Buttons map[string]bool `json:"buttons"`
	Touch   *device.Touch   `json:"touch"`
}

func eventMessage(e device.Event) Message {
	p := EventPayload{Kind: e.Kind}

	switch e.Kind {
	case device.EventButtonDown, device.EventButtonUp:
		button := e.Button
		p.Button = &button
	case device.EventTouch:
		touch := e.Touch
		p.Touch = &touch
	}

	return Message{Type: MsgEvent, Payload: p}
}

func snapshotMessage(s session.Snapshot) Message {
	p := SnapshotPayload{
		State:   s.State.String(),
		Buttons: make(map[string]bool, device.NumButtons),
	}

	for _, b := range device.Buttons {
		p.Buttons[b.String()] = s.Controls.Buttons.Pressed(b)
	}

	if s.Controls.Touched {
		touch := s.Controls.Touch
		p.Touch = &touch
	}

	return Message{Type: MsgSnapshot, Payload: p}
}
