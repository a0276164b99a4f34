package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robertof/go-gearvr-controller/device"
	"github.com/robertof/go-gearvr-controller/session"
)

var (
	descState = prometheus.NewDesc(
		"gearvr_controller_state",
		"Connection state of the controller session. One series per state, 1 for the current one.",
		[]string{"state"},
		nil,
	)

	descButton = prometheus.NewDesc(
		"gearvr_controller_button_pressed",
		"Whether a controller button is currently pressed.",
		[]string{"button"},
		nil,
	)

	descTouched = prometheus.NewDesc(
		"gearvr_controller_touchpad_touched",
		"Whether the touchpad is currently touched.",
		nil,
		nil,
	)

	descTouch = prometheus.NewDesc(
		"gearvr_controller_touchpad_position",
		"Normalized touchpad position, between -1 and 1. Absent while not touched.",
		[]string{"axis"},
		nil,
	)
)

var states = []device.State{
	device.StateDisconnected,
	device.StateConnecting,
	device.StateConnected,
	device.StateDisconnecting,
}

type CollectFunc func() session.Snapshot

type collector struct {
	CollectFunc
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.CollectFunc()

	for _, state := range states {
		ch <- prometheus.MustNewConstMetric(
			descState,
			prometheus.GaugeValue,
			boolToFloat(snap.State == state),
			state.String(),
		)
	}

	for _, button := range device.Buttons {
		ch <- prometheus.MustNewConstMetric(
			descButton,
			prometheus.GaugeValue,
			boolToFloat(snap.Controls.Buttons.Pressed(button)),
			button.String(),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		descTouched,
		prometheus.GaugeValue,
		boolToFloat(snap.Controls.Touched),
	)

	if snap.Controls.Touched {
		ch <- prometheus.MustNewConstMetric(descTouch, prometheus.GaugeValue, snap.Controls.Touch.X, "x")
		ch <- prometheus.MustNewConstMetric(descTouch, prometheus.GaugeValue, snap.Controls.Touch.Y, "y")
	}
}

func RegisterCollector(f CollectFunc, reg prometheus.Registerer) {
	c := &collector{f}

	reg.MustRegister(c)
}

// EventCounter counts emitted controller events by kind. Register it as a
// listener with Listen.
type EventCounter struct {
	counter *prometheus.CounterVec
}

func NewEventCounter(reg prometheus.Registerer) *EventCounter {
	ec := &EventCounter{
		counter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gearvr_controller_events_total",
			Help: "Controller events emitted, by kind.",
		}, []string{"kind"}),
	}

	// expose every kind from the start instead of only after its first event.
	for _, kind := range device.EventKinds {
		ec.counter.WithLabelValues(kind.String())
	}

	reg.MustRegister(ec.counter)

	return ec
}

func (ec *EventCounter) Listen(e device.Event) {
	ec.counter.WithLabelValues(e.Kind.String()).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
