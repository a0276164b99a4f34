package gearvr

import (
	"fmt"
	"net"
	"strings"

	"github.com/robertof/go-gearvr-controller/device"
	"github.com/rs/zerolog/log"
)

type Factory struct{}

func (f *Factory) FromSpec(spec device.DeviceSpec) (device.Filter, error) {
	filter := device.Filter{
		NamePrefix: NamePrefix,
		Service:    ServiceUUID,
	}

	if name := spec.Name(); name != "" {
		filter.NamePrefix = name
	}

	if addr := spec.Addr(); addr != "" {
		hwAddr, err := net.ParseMAC(addr)
		if err != nil {
			return filter, fmt.Errorf("invalid addr: %w", err)
		}

		filter.Addr = strings.ToLower(hwAddr.String())
	}

	log.Debug().Stringer("Filter", filter).Msg("gearvr: built device filter from spec")

	return filter, nil
}

func (f *Factory) Help() string {
	return `Supported parameters:
addr (string): MAC address of the controller. When omitted, the first controller found is used.
name (string): Advertised name prefix to match (default "` + NamePrefix + `")`
}
