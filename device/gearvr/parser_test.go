package gearvr_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/device/gearvr"
)

// packet builds a minimal telemetry payload with the given button mask and
// raw touch coordinates.
func packet(mask byte, rawX, rawY uint16) []byte {
	data := make([]byte, gearvr.PacketMinLength)

	data[54] = byte(rawX>>6) & 0x0f
	data[55] = byte(rawX<<2)&0xfc | byte(rawY>>8)&0x03
	data[56] = byte(rawY)
	data[58] = mask

	return data
}

func TestParsePacket_Buttons(t *testing.T) {
	tests := []struct {
		mask   byte
		button device.Button
	}{
		{1 << 0, device.ButtonTrigger},
		{1 << 1, device.ButtonHome},
		{1 << 2, device.ButtonBack},
		{1 << 3, device.ButtonTouchpad},
		{1 << 4, device.ButtonVolUp},
		{1 << 5, device.ButtonVolDown},
	}

	for _, tt := range tests {
		got, err := gearvr.ParsePacket(packet(tt.mask, 0, 0))

		if err != nil {
			t.Fatalf("ParsePacket(mask=%#x) got error: %v", tt.mask, err)
		}

		var want device.ButtonStates
		want[tt.button] = true

		if got.Buttons != want {
			t.Fatalf("ParsePacket(mask=%#x): got %v, wanted %v", tt.mask, got.Buttons, want)
		}
	}
}

func TestParsePacket_TouchCoordinates(t *testing.T) {
	for _, raw := range [][2]uint16{{0, 0}, {157, 157}, {315, 315}, {1, 200}, {0x3ff, 0x3ff}} {
		got, err := gearvr.ParsePacket(packet(0, raw[0], raw[1]))

		if err != nil {
			t.Fatalf("ParsePacket(%v) got error: %v", raw, err)
		}

		if got.RawX != raw[0] || got.RawY != raw[1] {
			t.Fatalf("ParsePacket(%v): got (%d, %d)", raw, got.RawX, got.RawY)
		}
	}
}

func TestParsePacket_Short(t *testing.T) {
	_, err := gearvr.ParsePacket(make([]byte, gearvr.PacketMinLength-1))

	if !errors.Is(err, device.ErrInvalidData) {
		t.Fatalf("ParsePacket(short): got error %v, wanted %v", err, device.ErrInvalidData)
	}
}

func TestControls_Touch(t *testing.T) {
	c := gearvr.Packet{RawX: 157, RawY: 157}.Controls()

	if !c.Touched {
		t.Fatalf("Controls(157, 157): got untouched")
	}

	want := 157/157.5 - 1.0

	if math.Abs(c.Touch.X-want) > 1e-9 || math.Abs(c.Touch.Y-want) > 1e-9 {
		t.Fatalf("Controls(157, 157): got %v, wanted (%.5f, %.5f)", c.Touch, want, want)
	}

	if math.Abs(c.Touch.X - -0.003) > 0.001 {
		t.Fatalf("Controls(157, 157): got X=%v, wanted about -0.003", c.Touch.X)
	}
}

func TestControls_ZeroAxisIsUntouched(t *testing.T) {
	for _, p := range []gearvr.Packet{{RawX: 0, RawY: 200}, {RawX: 200, RawY: 0}, {}} {
		if c := p.Controls(); c.Touched || c.Touch != (device.Touch{}) {
			t.Fatalf("%v.Controls(): got %v, wanted untouched", p, c)
		}
	}
}

func TestDecode_ButtonEdges(t *testing.T) {
	var state device.Controls
	var got [][]device.Event

	for _, mask := range []byte{0, 1, 1, 0} {
		var events []device.Event
		var ok bool

		state, events, ok = gearvr.Decode(state, packet(mask, 0, 0))
		if !ok {
			t.Fatalf("Decode(mask=%#x): got ok=false", mask)
		}

		got = append(got, events)
	}

	want := [][]device.Event{
		nil,
		{device.ButtonDownEvent(device.ButtonTrigger)},
		nil,
		{device.ButtonUpEvent(device.ButtonTrigger)},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Decode([0,1,1,0]): got %v, wanted %v", got, want)
	}
}

func TestDecode_MultipleButtons(t *testing.T) {
	prev := device.Controls{}
	prev.Buttons[device.ButtonHome] = true

	next, events, _ := gearvr.Decode(prev, packet(1<<0|1<<5, 0, 0))

	want := []device.Event{
		device.ButtonDownEvent(device.ButtonTrigger),
		device.ButtonUpEvent(device.ButtonHome),
		device.ButtonDownEvent(device.ButtonVolDown),
	}

	if !reflect.DeepEqual(events, want) {
		t.Fatalf("Decode: got %v, wanted %v", events, want)
	}

	if !next.Buttons[device.ButtonTrigger] || next.Buttons[device.ButtonHome] ||
		!next.Buttons[device.ButtonVolDown] {
		t.Fatalf("Decode: got buttons %v", next.Buttons)
	}
}

func TestDecode_TouchSequence(t *testing.T) {
	frames := [][]byte{
		packet(0, 0, 0),
		packet(0, 100, 200),
		packet(0, 100, 200),
		packet(0, 0, 200),
		packet(0, 0, 0),
	}

	var kinds [][]device.EventKind
	var state device.Controls

	for _, frame := range frames {
		var events []device.Event

		state, events, _ = gearvr.Decode(state, frame)

		var k []device.EventKind
		for _, e := range events {
			k = append(k, e.Kind)
		}

		kinds = append(kinds, k)
	}

	want := [][]device.EventKind{
		nil,
		{device.EventTouch},
		{device.EventTouch},
		{device.EventTouchRelease},
		nil,
	}

	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("Decode(touch sequence): got %v, wanted %v", kinds, want)
	}

	if state.Touched {
		t.Fatalf("Decode(touch sequence): final state still touched: %v", state)
	}
}

func TestDecode_ShortPayloadIsNoop(t *testing.T) {
	prev := device.Controls{Touched: true, Touch: device.Touch{X: 0.5, Y: -0.5}}
	prev.Buttons[device.ButtonBack] = true

	next, events, ok := gearvr.Decode(prev, []byte{1, 2, 3})

	if ok || events != nil || next != prev {
		t.Fatalf("Decode(short): got (%v, %v, %v), wanted (%v, nil, false)", next, events, ok, prev)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	prev := device.Controls{}
	prev.Buttons[device.ButtonVolUp] = true
	data := packet(1<<3, 42, 84)

	n1, e1, _ := gearvr.Decode(prev, data)
	n2, e2, _ := gearvr.Decode(prev, data)

	if n1 != n2 || !reflect.DeepEqual(e1, e2) {
		t.Fatalf("Decode not deterministic: (%v, %v) != (%v, %v)", n1, e1, n2, e2)
	}
}
