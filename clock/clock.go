// Package clock abstracts timer scheduling so watchdogs can be driven
// deterministically in tests.
package clock

import "time"

type Clock interface {
	// AfterFunc calls f in its own goroutine once d has elapsed, unless the
	// returned Timer is stopped first.
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	// Stop prevents the Timer from firing. Returns false if the timer has
	// already fired or been stopped.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
