package device

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// DeviceSpec is a parsed `key=value,key=value` device description.
type DeviceSpec map[string]string

const (
	DeviceSpecFieldName    = "name"
	DeviceSpecFieldAddress = "addr"
)

func NewDeviceSpec(s string) DeviceSpec {
	spec := DeviceSpec{}

	if strings.TrimSpace(s) == "" {
		return spec
	}

	for _, entry := range strings.Split(s, ",") {
		parts := strings.SplitN(entry, "=", 2)

		if len(parts) != 2 {
			log.Warn().Str("Entry", entry).Msg("Skipping invalid device spec entry")
			continue
		}

		spec[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}

	return spec
}

func (ds DeviceSpec) Name() string {
	return ds[DeviceSpecFieldName]
}

func (ds DeviceSpec) Addr() string {
	return ds[DeviceSpecFieldAddress]
}
