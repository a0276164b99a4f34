package gearvr_test

import (
	"testing"

	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/device/gearvr"
)

func TestFactory_FromSpec(t *testing.T) {
	f := &gearvr.Factory{}

	got, err := f.FromSpec(device.NewDeviceSpec("addr=2C:BA:BA:0A:0B:0C"))

	if err != nil {
		t.Fatalf("FromSpec got error: %v", err)
	}

	want := device.Filter{
		Addr:       "2c:ba:ba:0a:0b:0c",
		NamePrefix: gearvr.NamePrefix,
		Service:    gearvr.ServiceUUID,
	}

	if got != want {
		t.Fatalf("FromSpec: got %+v, wanted %+v", got, want)
	}
}

func TestFactory_FromSpec_InvalidAddr(t *testing.T) {
	f := &gearvr.Factory{}

	if _, err := f.FromSpec(device.NewDeviceSpec("addr=nope")); err == nil {
		t.Fatalf("FromSpec(addr=nope): got nil error")
	}
}
