package ble

import (
	"context"

	"github.com/go-ble/ble"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	successfulConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearvr_controller_ble_successful_connections_total",
	})
	failedConnectionsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearvr_controller_ble_failed_connections_total",
	})
	disconnectsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearvr_controller_ble_disconnections_total",
	})
	notificationsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gearvr_controller_ble_notifications_total",
	})
)

func (h *Handle) Connect(ctx context.Context, addr string) (Client, error) {
	conn, err := h.dev.Dial(ctx, ble.NewAddr(addr))

	if err != nil {
		failedConnectionsCounter.Inc()
		return nil, err
	}

	successfulConnectionsCounter.Inc()
	log.Debug().Str("Addr", addr).Msg("ble: successfully opened new connection to device")

	// spawn a watchdog logging when the connection breaks.
	go func() {
		<-conn.Disconnected()

		disconnectsCounter.Inc()
		log.Debug().Str("Addr", addr).Msg("ble: connection with device closed")
	}()

	return conn, nil
}
