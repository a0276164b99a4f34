package ble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/rs/zerolog/log"
)

// link is a device.Link over a go-ble client connection.
type link struct {
	client  Client
	service *ble.Service
	notify  *Characteristic
	write   *Characteristic
}

// resolveLink locates the service and the two characteristics of the link in the
// client's GATT profile.
func resolveLink(c Client, serviceUUID, notifyUUID, writeUUID string) (*link, error) {
	svcID, err := ble.Parse(serviceUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid service UUID %q: %w", serviceUUID, err)
	}

	notifyID, err := ble.Parse(notifyUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", notifyUUID, err)
	}

	writeID, err := ble.Parse(writeUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid characteristic UUID %q: %w", writeUUID, err)
	}

	p, err := c.DiscoverProfile(false)
	if err != nil {
		return nil, fmt.Errorf("cannot discover profile for device: %w", err)
	}

	l := &link{client: c}

	for _, svc := range p.Services {
		if !svc.UUID.Equal(svcID) {
			continue
		}

		l.service = svc

		for _, char := range svc.Characteristics {
			switch {
			case char.UUID.Equal(notifyID):
				l.notify = char
			case char.UUID.Equal(writeID):
				l.write = char
			}
		}
	}

	if !l.Profile().Complete() {
		return nil, fmt.Errorf("device is missing GATT handles: %+v", l.Profile())
	}

	return l, nil
}

func (l *link) Write(opcode []byte) error {
	// without response would not tell us whether the controller accepted it.
	if err := l.client.WriteCharacteristic(l.write, opcode, false); err != nil {
		return fmt.Errorf("failed to write characteristic '%v': %w", l.write.UUID, err)
	}

	return nil
}

func (l *link) Subscribe(handler func([]byte)) error {
	err := l.client.Subscribe(l.notify, false, func(data []byte) {
		notificationsCounter.Inc()
		handler(data)
	})

	if err != nil {
		return fmt.Errorf("failed to subscribe to characteristic '%v': %w", l.notify.UUID, err)
	}

	return nil
}

func (l *link) Close() error {
	if err := l.client.ClearSubscriptions(); err != nil {
		log.Debug().Err(err).Msg("ble: failed to clear subscriptions before closing link")
	}

	if err := l.client.CancelConnection(); err != nil {
		return fmt.Errorf("failed to cancel connection: %w", err)
	}

	return nil
}

func (l *link) Connected() bool {
	select {
	case <-l.client.Disconnected():
		return false
	default:
		return true
	}
}

func (l *link) Profile() device.Profile {
	return device.Profile{
		Service:              l.service != nil,
		NotifyCharacteristic: l.notify != nil,
		WriteCharacteristic:  l.write != nil,
		Server:               l.client != nil,
	}
}
