package device

import (
	"fmt"
	"strconv"
	"strings"
)

type Button uint8

const (
	ButtonTrigger Button = iota
	ButtonTouchpad
	ButtonBack
	ButtonHome
	ButtonVolUp
	ButtonVolDown

	NumButtons = int(ButtonVolDown) + 1
)

// Buttons lists every button in declaration order.
var Buttons = [NumButtons]Button{
	ButtonTrigger,
	ButtonTouchpad,
	ButtonBack,
	ButtonHome,
	ButtonVolUp,
	ButtonVolDown,
}

func (b Button) String() string {
	switch b {
	case ButtonTrigger:
		return "trigger"
	case ButtonTouchpad:
		return "touchpad"
	case ButtonBack:
		return "back"
	case ButtonHome:
		return "home"
	case ButtonVolUp:
		return "volumeup"
	case ButtonVolDown:
		return "volumedown"
	default:
		panic("unknown button value: " + strconv.Itoa(int(b)))
	}
}

func (b Button) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// ButtonStates holds the pressed state of every button. Being an array, it
// always has exactly one entry per Button.
type ButtonStates [NumButtons]bool

func (bs ButtonStates) Pressed(b Button) bool {
	return bs[b]
}

func (bs ButtonStates) String() string {
	var pressed []string

	for _, b := range Buttons {
		if bs[b] {
			pressed = append(pressed, b.String())
		}
	}

	return "[" + strings.Join(pressed, ",") + "]"
}

// Touch is a normalized touchpad position, each axis roughly in [-1, 1].
type Touch struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (t Touch) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", t.X, t.Y)
}

// Controls is the decoded input state of a controller. When Touched is false,
// Touch is always the zero value.
type Controls struct {
	Buttons ButtonStates
	Touch   Touch
	Touched bool
}

func (c Controls) String() string {
	touch := "none"

	if c.Touched {
		touch = c.Touch.String()
	}

	return fmt.Sprintf("Controls[Buttons=%v,Touch=%v]", c.Buttons, touch)
}
