package device_test

import (
	"reflect"
	"testing"

	"github.com/robertof/go-gearvr-controller/device"
)

func TestNewDeviceSpec(t *testing.T) {
	tests := []struct {
		in   string
		want device.DeviceSpec
	}{
		{"", device.DeviceSpec{}},
		{"addr=2C:BA:BA:00:11:22", device.DeviceSpec{"addr": "2C:BA:BA:00:11:22"}},
		{" addr = 2C:BA:BA:00:11:22 , name = left ", device.DeviceSpec{
			"addr": "2C:BA:BA:00:11:22",
			"name": "left",
		}},
		{"addr=aa,bogus", device.DeviceSpec{"addr": "aa"}},
	}

	for _, tt := range tests {
		got := device.NewDeviceSpec(tt.in)

		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("NewDeviceSpec(%q): got %+#v, wanted %+#v", tt.in, got, tt.want)
		}
	}
}

func TestStateTransient(t *testing.T) {
	want := map[device.State]bool{
		device.StateDisconnected:  false,
		device.StateConnecting:    true,
		device.StateConnected:     false,
		device.StateDisconnecting: true,
	}

	for state, transient := range want {
		if got := state.Transient(); got != transient {
			t.Fatalf("%v.Transient(): got %v, wanted %v", state, got, transient)
		}
	}
}

func TestProfileComplete(t *testing.T) {
	full := device.Profile{
		Service:              true,
		NotifyCharacteristic: true,
		WriteCharacteristic:  true,
		Server:               true,
	}

	if !full.Complete() {
		t.Fatalf("%+v.Complete(): got false, wanted true", full)
	}

	partial := full
	partial.WriteCharacteristic = false

	if partial.Complete() {
		t.Fatalf("%+v.Complete(): got true, wanted false", partial)
	}
}
